package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/socgate/socgate"

// Config controls telemetry setup.
type Config struct {
	Enabled  bool
	Endpoint string
	Protocol string // grpc | http
	Service  string
	Version  string
}

// Provider wires tracer/meter providers and exposes helpers.
type Provider struct {
	Enabled bool
	tracer  trace.Tracer
	meter   metric.Meter

	interactionsCounter   metric.Int64Counter
	interactionDuration   metric.Float64Histogram
	upstreamDuration      metric.Float64Histogram
	redactionsCounter     metric.Int64Counter
	guardWarningsCounter  metric.Int64Counter
	shutdownTraceProvider func(context.Context) error
	shutdownMeterProvider func(context.Context) error
}

// Interaction is the metric-safe summary of one assistant run.
// It carries labels and timings only, never request or answer text.
type Interaction struct {
	State         string
	Label         string
	DurationMs    float64
	ClassifyMs    float64
	RespondMs     float64
	Redactions    map[string]int
	GuardDecision string
}

// NewProvider configures OTLP exporters and providers. When disabled, it returns no-op providers.
func NewProvider(ctx context.Context, cfg Config, logger *slog.Logger) (*Provider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !cfg.Enabled {
		return Noop(), nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	protocol := strings.ToLower(strings.TrimSpace(cfg.Protocol))
	logger.Info("telemetry enabled; failed uploads are expected when no collector is listening",
		slog.String("protocol", protocol),
		slog.String("endpoint", cfg.Endpoint),
	)

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.Service),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	var (
		spanExp   sdktrace.SpanExporter
		metricExp sdkmetric.Exporter
	)
	switch protocol {
	case "", "grpc":
		if spanExp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure()); err != nil {
			return nil, err
		}
		if metricExp, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.Endpoint), otlpmetricgrpc.WithInsecure()); err != nil {
			return nil, err
		}
	case "http":
		if spanExp, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure()); err != nil {
			return nil, err
		}
		if metricExp, err = otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Endpoint), otlpmetrichttp.WithInsecure()); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported telemetry protocol %q", cfg.Protocol)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(spanExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
	)
	otel.SetMeterProvider(mp)

	return newProvider(tp.Tracer(instrumentationName), mp.Meter(instrumentationName), tp.Shutdown, mp.Shutdown), nil
}

// Noop returns a disabled provider whose tracer and meter discard everything.
func Noop() *Provider {
	p := newProvider(
		tracenoop.NewTracerProvider().Tracer(""),
		metricnoop.NewMeterProvider().Meter(""),
		nil, nil,
	)
	p.Enabled = false
	return p
}

func newProvider(tracer trace.Tracer, meter metric.Meter, shutdownTrace, shutdownMeter func(context.Context) error) *Provider {
	p := &Provider{
		Enabled:               true,
		tracer:                tracer,
		meter:                 meter,
		shutdownTraceProvider: shutdownTrace,
		shutdownMeterProvider: shutdownMeter,
	}
	p.initInstruments()
	return p
}

func (p *Provider) initInstruments() {
	// Instrument errors are ignored; telemetry is best-effort.
	p.interactionsCounter, _ = p.meter.Int64Counter("socgate_interactions_total")
	p.interactionDuration, _ = p.meter.Float64Histogram("socgate_interaction_duration_ms")
	p.upstreamDuration, _ = p.meter.Float64Histogram("socgate_upstream_duration_ms")
	p.redactionsCounter, _ = p.meter.Int64Counter("socgate_redactions_total")
	p.guardWarningsCounter, _ = p.meter.Int64Counter("socgate_response_guard_warnings_total")
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return tracenoop.NewTracerProvider().Tracer("")
	}
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	if p == nil {
		return metricnoop.NewMeterProvider().Meter("")
	}
	return p.meter
}

// Shutdown flushes providers.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if p.shutdownTraceProvider != nil {
		_ = p.shutdownTraceProvider(ctx)
	}
	if p.shutdownMeterProvider != nil {
		_ = p.shutdownMeterProvider(ctx)
	}
}

// RecordInteraction emits counters and histograms for one finished run.
func (p *Provider) RecordInteraction(ctx context.Context, in Interaction) {
	if p == nil {
		return
	}
	labels := metric.WithAttributes(
		attribute.String("socgate.state", in.State),
		attribute.String("socgate.decision", in.Label),
	)
	p.interactionsCounter.Add(ctx, 1, labels)
	p.interactionDuration.Record(ctx, in.DurationMs, labels)
	if in.ClassifyMs > 0 {
		p.upstreamDuration.Record(ctx, in.ClassifyMs, metric.WithAttributes(attribute.String("socgate.operation", "classify")))
	}
	if in.RespondMs > 0 {
		p.upstreamDuration.Record(ctx, in.RespondMs, metric.WithAttributes(attribute.String("socgate.operation", "respond")))
	}
	for category, n := range in.Redactions {
		if n > 0 {
			p.redactionsCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("socgate.category", category)))
		}
	}
	if in.GuardDecision == "warn" {
		p.guardWarningsCounter.Add(ctx, 1, labels)
	}
}
