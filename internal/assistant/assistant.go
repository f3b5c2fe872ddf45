// Package assistant runs one governed SOC interaction: redact, classify,
// then either refuse or generate a structured answer.
package assistant

import (
	"errors"
	"log/slog"
	"time"

	"github.com/socgate/socgate/internal/activation"
	"github.com/socgate/socgate/internal/metrics"
	"github.com/socgate/socgate/internal/policy"
	"github.com/socgate/socgate/internal/redact"
	"github.com/socgate/socgate/internal/responseguard"
	"github.com/socgate/socgate/internal/telemetry"
)

// State is a step of the interaction state machine.
type State string

const (
	StateStart      State = "START"
	StateRedacted   State = "REDACTED"
	StateClassified State = "CLASSIFIED"
	StateBlocked    State = "BLOCKED"
	StateResponding State = "RESPONDING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Stage names the upstream call that failed.
type Stage string

const (
	StageClassify Stage = "classify"
	StageRespond  Stage = "respond"
)

var (
	ErrMissingCredential = errors.New("missing credential: provide a Hugging Face token")
	ErrEmptyRequest      = errors.New("request is empty")
	ErrInvalidGeneration = errors.New("invalid generation parameters")
)

// Interaction is one analyst request. Temperature nil and MaxTokens zero take
// the configured defaults.
type Interaction struct {
	RequestID   string
	Request     string
	Evidence    string
	Credential  string
	Temperature *float64
	MaxTokens   int
	// Surface records where the request came from (cli, http) for governance events.
	Surface string
}

// Timings holds per-step durations of a run.
type Timings struct {
	Classify time.Duration
	Respond  time.Duration
	Total    time.Duration
}

// Outcome records how an interaction ended. It never holds the credential
// or unredacted input.
type Outcome struct {
	RequestID        string
	State            State
	Label            policy.Label
	RedactedRequest  string
	RedactedEvidence string
	Redactions       map[string]int
	// Answer is the generated text when DONE and the refusal message when BLOCKED.
	Answer      string
	Guard       responseguard.Result
	FailedStage Stage
	Err         error
	Timings     Timings
}

// Decision is the result of Decide: the label the classifier would assign.
type Decision struct {
	Label           policy.Label
	RedactedRequest string
	Redactions      map[string]int
}

// Limits bounds caller-supplied generation parameters.
type Limits struct {
	DefaultTemperature float64
	DefaultMaxTokens   int
	MinMaxTokens       int
	MaxMaxTokens       int
}

// DefaultLimits matches the hosted deployment's sliders.
func DefaultLimits() Limits {
	return Limits{
		DefaultTemperature: 0.2,
		DefaultMaxTokens:   450,
		MinMaxTokens:       128,
		MaxMaxTokens:       1200,
	}
}

// Assistant wires the redactor, policy router and response guard together.
// It holds no per-interaction state and is safe for concurrent use.
type Assistant struct {
	redactor        *redact.Redactor
	router          *policy.Router
	guard           *responseguard.Guard
	emitter         *activation.Emitter
	metrics         *metrics.AssistantMetrics
	telemetry       *telemetry.Provider
	logger          *slog.Logger
	limits          Limits
	activationLevel string
	providerName    string
}

type Option func(*Assistant)

func WithRedactor(r *redact.Redactor) Option {
	return func(a *Assistant) {
		if r != nil {
			a.redactor = r
		}
	}
}

func WithGuard(g *responseguard.Guard) Option {
	return func(a *Assistant) { a.guard = g }
}

func WithEmitter(e *activation.Emitter) Option {
	return func(a *Assistant) { a.emitter = e }
}

func WithMetrics(m *metrics.AssistantMetrics) Option {
	return func(a *Assistant) { a.metrics = m }
}

func WithTelemetry(p *telemetry.Provider) Option {
	return func(a *Assistant) {
		if p != nil {
			a.telemetry = p
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithLimits(l Limits) Option {
	return func(a *Assistant) { a.limits = l }
}

// WithActivationLevel sets whether governance events carry redacted previews
// ("redacted") or counts only ("metadata").
func WithActivationLevel(level string) Option {
	return func(a *Assistant) { a.activationLevel = level }
}

func WithProviderName(name string) Option {
	return func(a *Assistant) { a.providerName = name }
}

// New builds an Assistant over router.
func New(router *policy.Router, opts ...Option) *Assistant {
	a := &Assistant{
		redactor:        redact.New(),
		router:          router,
		guard:           responseguard.New(responseguard.DefaultConfig()),
		telemetry:       telemetry.Noop(),
		logger:          slog.New(slog.DiscardHandler),
		limits:          DefaultLimits(),
		activationLevel: activation.LevelMetadata,
		providerName:    "openai",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Limits returns the generation bounds in effect.
func (a *Assistant) Limits() Limits {
	return a.limits
}

// Preview shows what will be sent upstream for text.
func (a *Assistant) Preview(text string) redact.Result {
	return a.redactor.Apply(text)
}

// Model returns the upstream model id used for both calls.
func (a *Assistant) Model() string {
	return a.router.Settings().Model
}
