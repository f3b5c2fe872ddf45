package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/socgate/socgate/internal/inference"
	"github.com/socgate/socgate/internal/provider"
)

// DefaultModel is the hosted model used for both classification and generation.
const DefaultModel = "Qwen/Qwen2.5-Coder-32B-Instruct"

// ErrRefused is returned by Respond when asked to answer a REFUSE-labelled request.
var ErrRefused = errors.New("request refused by policy")

// Settings is the immutable upstream configuration shared by both calls.
type Settings struct {
	Model             string
	ClassifyTimeout   time.Duration
	RespondTimeout    time.Duration
	ClassifyMaxTokens int
}

// DefaultSettings mirrors the hosted deployment: short classify, long generate.
func DefaultSettings() Settings {
	return Settings{
		Model:             DefaultModel,
		ClassifyTimeout:   60 * time.Second,
		RespondTimeout:    180 * time.Second,
		ClassifyMaxTokens: 10,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if strings.TrimSpace(s.Model) == "" {
		s.Model = d.Model
	}
	if s.ClassifyTimeout <= 0 {
		s.ClassifyTimeout = d.ClassifyTimeout
	}
	if s.RespondTimeout <= 0 {
		s.RespondTimeout = d.RespondTimeout
	}
	if s.ClassifyMaxTokens <= 0 {
		s.ClassifyMaxTokens = d.ClassifyMaxTokens
	}
	return s
}

// Generation carries the caller-chosen sampling parameters for Respond.
type Generation struct {
	Temperature float64
	MaxTokens   int
}

// Router asks the upstream model for a policy label and, when allowed, an answer.
// Both calls expect text that has already been redacted.
type Router struct {
	provider provider.Provider
	settings Settings
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Option customizes a Router.
type Option func(*Router)

// WithTracer records a span per upstream call.
func WithTracer(t trace.Tracer) Option {
	return func(r *Router) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithLogger sets the logger used for soft-failure diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRouter builds a Router over p. Zero-valued settings fields take defaults.
func NewRouter(p provider.Provider, settings Settings, opts ...Option) *Router {
	r := &Router{
		provider: p,
		settings: settings.withDefaults(),
		tracer:   noop.NewTracerProvider().Tracer(""),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the router's effective settings.
func (r *Router) Settings() Settings {
	return r.settings
}

// Classify asks the model for a policy label for redactedText.
// Transport failures are returned as errors, never folded into a label.
func (r *Router) Classify(ctx context.Context, credential, redactedText string) (Label, error) {
	ctx, span := r.tracer.Start(ctx, "policy.classify", trace.WithAttributes(
		attribute.String("socgate.model", r.settings.Model),
	))
	defer span.End()

	resp, err := r.provider.ChatCompletion(ctx, &inference.Request{
		Model:       r.settings.Model,
		Messages:    ClassifierMessages(redactedText),
		Temperature: 0,
		MaxTokens:   r.settings.ClassifyMaxTokens,
		Timeout:     r.settings.ClassifyTimeout,
		Credential:  credential,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classify failed")
		return "", fmt.Errorf("classify: %w", err)
	}

	label := ParseLabel(resp.Message.Content)
	if !mentionsLabel(resp.Message.Content) {
		r.logger.Debug("classifier output named no label; defaulting to CAUTION",
			slog.Int("output_len", len(resp.Message.Content)),
			slog.Bool("fallback", resp.Fallback),
		)
	}
	span.SetAttributes(attribute.String("socgate.decision", label.String()))
	return label, nil
}

// Respond asks the model for a structured SOC answer. label must be ALLOW or CAUTION.
// An unexpected 2xx body yields a truncated copy of the payload rather than an error.
func (r *Router) Respond(ctx context.Context, credential, redactedRequest, redactedEvidence string, label Label, gen Generation) (string, error) {
	if label == Refuse {
		return "", ErrRefused
	}
	if !label.Valid() {
		return "", fmt.Errorf("respond: unknown policy label %q", string(label))
	}

	ctx, span := r.tracer.Start(ctx, "policy.respond", trace.WithAttributes(
		attribute.String("socgate.model", r.settings.Model),
		attribute.String("socgate.decision", label.String()),
		attribute.Int("socgate.max_tokens", gen.MaxTokens),
	))
	defer span.End()

	resp, err := r.provider.ChatCompletion(ctx, &inference.Request{
		Model:       r.settings.Model,
		Messages:    SOCMessages(redactedRequest, redactedEvidence, label),
		Temperature: gen.Temperature,
		MaxTokens:   gen.MaxTokens,
		Timeout:     r.settings.RespondTimeout,
		Credential:  credential,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "respond failed")
		return "", fmt.Errorf("respond: %w", err)
	}

	if resp.Fallback {
		r.logger.Warn("upstream answer had unexpected shape; returning raw payload",
			slog.Int("payload_len", len(resp.Message.Content)),
		)
		span.SetAttributes(attribute.Bool("socgate.fallback", true))
	}
	return resp.Message.Content, nil
}

func mentionsLabel(text string) bool {
	upper := strings.ToUpper(text)
	for _, l := range precedence {
		if strings.Contains(upper, string(l)) {
			return true
		}
	}
	return false
}
