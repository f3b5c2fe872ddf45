package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/socgate/socgate/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant over JSON/HTTP",
	Long: `serve exposes /v1/redact, /v1/classify and /v1/assist. Callers pass their
upstream token as "Authorization: Bearer <token>"; it is forwarded to the
hosted model and never stored or logged.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var reg *prometheus.Registry
		if cfg.Metrics.Enabled {
			reg = prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		opts := appOptions{Surface: "http"}
		if reg != nil {
			opts.Registerer = reg
		}
		a, err := buildApp(ctx, cfg, opts)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		srvOpts := server.Options{
			Logger:              a.logger,
			MaxRequestBodyBytes: cfg.Server.MaxRequestBodyBytes,
			ReadHeaderTimeout:   cfg.Server.ReadHeaderTimeout,
			MetricsPath:         cfg.Metrics.Path,
		}
		if reg != nil {
			srvOpts.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
		}

		a.logger.Info("starting socgate",
			slog.String("addr", cfg.Server.Addr),
			slog.String("provider", cfg.Provider.Type),
			slog.String("model", cfg.Model.ID),
			slog.Bool("metrics", cfg.Metrics.Enabled),
			slog.Bool("telemetry", cfg.Telemetry.Enabled),
		)
		return server.New(a.assistant, srvOpts).ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides config)")
}
