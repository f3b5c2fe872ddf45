package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/socgate/socgate/internal/config"
	"github.com/socgate/socgate/internal/logging"
	"github.com/socgate/socgate/internal/mockprovider"
)

var (
	mockAddr         string
	mockDelay        time.Duration
	mockFailStatus   int
	mockMalformed    bool
	mockRequireToken string
)

var mockUpstreamCmd = &cobra.Command{
	Use:   "mock-upstream",
	Short: "Run an OpenAI-compatible mock of the hosted model",
	Long: `mock-upstream answers classifier calls with a keyword-derived label and
generation calls with a five-section SOC answer. Point provider.base_url at the
printed URL to exercise socgate without a real token.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			cfg = config.Default()
		}
		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		format := cfg.Logging.Format
		if logFormat != "" {
			format = logFormat
		}
		logger := logging.New(level, format, os.Stderr)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdown, baseURL, err := mockprovider.Start(mockAddr, mockprovider.Options{
			Delay:        mockDelay,
			FailStatus:   mockFailStatus,
			Malformed:    mockMalformed,
			RequireToken: mockRequireToken,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), baseURL)

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdown(shutdownCtx)
	},
}

func init() {
	f := mockUpstreamCmd.Flags()
	f.StringVar(&mockAddr, "addr", mockprovider.DefaultAddr, "listen address")
	f.DurationVar(&mockDelay, "delay", 0, "delay before every completion")
	f.IntVar(&mockFailStatus, "fail-status", 0, "answer every completion with this HTTP status")
	f.BoolVar(&mockMalformed, "malformed", false, "answer 200 without a choices array")
	f.StringVar(&mockRequireToken, "require-token", "", "reject bearer tokens other than this one")
}
