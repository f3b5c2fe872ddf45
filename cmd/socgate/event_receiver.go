package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/socgate/socgate/internal/activation"
	"github.com/socgate/socgate/internal/logging"
)

const maxEventBytes = 1 << 20

var receiverAddr string

var eventReceiverCmd = &cobra.Command{
	Use:   "event-receiver",
	Short: "Receive governance events from a webhook sink and log them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := logging.Default()
		if logLevel != "" || logFormat != "" {
			level := "info"
			if logLevel != "" {
				level = logLevel
			}
			logger = logging.New(level, logFormat, os.Stderr)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := &http.Server{
			Addr:              receiverAddr,
			Handler:           eventReceiverHandler(logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logger.Info("event receiver listening (POST JSON to /activation)", slog.String("addr", receiverAddr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			return srv.Close()
		}
	},
}

func init() {
	eventReceiverCmd.Flags().StringVar(&receiverAddr, "addr", ":8099", "listen address")
}

func eventReceiverHandler(logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	handle := func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, maxEventBytes))
		_ = req.Body.Close()
		if err != nil {
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}

		var ev activation.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			logger.Warn("received malformed event", slog.Int("len", len(body)), slog.Any("error", err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"invalid"}` + "\n"))
			return
		}

		logger.Info("received governance event",
			slog.String("request_id", ev.RequestID),
			slog.String("version", ev.Version),
			slog.String("state", ev.Summary.State),
			slog.String("label", ev.Summary.Label),
			slog.Bool("blocked", ev.Summary.Blocked),
			slog.String("stage", ev.Summary.Stage),
			slog.Int("redactions", ev.Redaction.Total),
			slog.String("guard", ev.Response.Decision.Final),
			slog.Float64("total_ms", ev.TimingMs.Total),
		)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	}
	r.Post("/activation", handle)
	r.Post("/", handle)
	return r
}
