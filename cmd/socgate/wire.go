package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/socgate/socgate/internal/activation"
	"github.com/socgate/socgate/internal/assistant"
	"github.com/socgate/socgate/internal/config"
	"github.com/socgate/socgate/internal/logging"
	"github.com/socgate/socgate/internal/metrics"
	"github.com/socgate/socgate/internal/mockprovider"
	"github.com/socgate/socgate/internal/policy"
	"github.com/socgate/socgate/internal/provider"
	"github.com/socgate/socgate/internal/responseguard"
	"github.com/socgate/socgate/internal/telemetry"
)

// mockCredential stands in for a real token when the in-process mock upstream is used.
const mockCredential = "mock-token"

// app is everything a command needs to run interactions.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	assistant  *assistant.Assistant
	credential string
	telemetry  *telemetry.Provider
	emitter    *activation.Emitter

	stopMock func(context.Context) error
}

type appOptions struct {
	// Registerer receives the assistant's Prometheus metrics; nil disables them.
	Registerer prometheus.Registerer
	Surface    string
	// LogWriter defaults to stderr so command output on stdout stays clean.
	LogWriter io.Writer
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return logging.New(cfg.Logging.Level, cfg.Logging.Format, w)
}

func buildApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	logger := newLogger(cfg, opts.LogWriter)
	a := &app{cfg: cfg, logger: logger}

	baseURL := cfg.Provider.BaseURL
	providerName := strings.ToLower(strings.TrimSpace(cfg.Provider.Type))
	if providerName == "mock" {
		stop, url, err := mockprovider.Start("127.0.0.1:0", mockprovider.Options{Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("start mock upstream: %w", err)
		}
		a.stopMock = stop
		baseURL = url
	}

	a.credential = strings.TrimSpace(os.Getenv(cfg.Provider.TokenEnv))
	if a.credential == "" && providerName == "mock" {
		a.credential = mockCredential
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  cfg.Telemetry.Service,
		Version:  version,
	}, logger)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.telemetry = tp

	sinks, err := activation.SinksFromConfig(cfg.Activation.Sinks, logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.emitter = activation.NewEmitter(logger, sinks...)

	p := provider.NewOpenAI(baseURL, cfg.Model.RespondTimeout, cfg.Provider.MaxResponseBytes)
	router := policy.NewRouter(p, policy.Settings{
		Model:             cfg.Model.ID,
		ClassifyTimeout:   cfg.Model.ClassifyTimeout,
		RespondTimeout:    cfg.Model.RespondTimeout,
		ClassifyMaxTokens: cfg.Model.ClassifyMaxTokens,
	}, policy.WithTracer(tp.Tracer()), policy.WithLogger(logger))

	assistantOpts := []assistant.Option{
		assistant.WithGuard(responseguard.New(responseguard.FromConfig(cfg.ResponseGuard))),
		assistant.WithEmitter(a.emitter),
		assistant.WithTelemetry(tp),
		assistant.WithLogger(logger),
		assistant.WithActivationLevel(cfg.Logging.ActivationLevel),
		assistant.WithProviderName(providerName),
		assistant.WithLimits(assistant.Limits{
			DefaultTemperature: *cfg.Generation.Temperature,
			DefaultMaxTokens:   cfg.Generation.MaxTokens,
			MinMaxTokens:       cfg.Generation.MinMaxTokens,
			MaxMaxTokens:       cfg.Generation.MaxMaxTokens,
		}),
	}
	if opts.Registerer != nil {
		assistantOpts = append(assistantOpts, assistant.WithMetrics(metrics.NewAssistantMetrics(opts.Registerer)))
	}
	a.assistant = assistant.New(router, assistantOpts...)
	return a, nil
}

// requireCredential returns the upstream token or an error naming the env var to set.
func (a *app) requireCredential() (string, error) {
	if a.credential == "" {
		return "", fmt.Errorf("%w: set %s (a .env file is read too)", assistant.ErrMissingCredential, a.cfg.Provider.TokenEnv)
	}
	return a.credential, nil
}

func (a *app) close(ctx context.Context) {
	if a == nil {
		return
	}
	a.emitter.Close(ctx)
	a.telemetry.Shutdown(ctx)
	if a.stopMock != nil {
		if err := a.stopMock(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("mock upstream shutdown failed", slog.Any("error", err))
		}
	}
}
