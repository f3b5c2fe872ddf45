package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/socgate/socgate/internal/activation"
	"github.com/socgate/socgate/internal/policy"
	"github.com/socgate/socgate/internal/redact"
	"github.com/socgate/socgate/internal/telemetry"
)

// Run executes one interaction. The returned Outcome is never nil. The error is
// non-nil for validation failures (state START, no upstream call) and for
// transport failures (state FAILED). A REFUSE label is not an error.
func (a *Assistant) Run(ctx context.Context, in Interaction) (*Outcome, error) {
	started := time.Now()
	out := &Outcome{
		RequestID: activation.EnsureRequestID(in.RequestID),
		State:     StateStart,
	}

	gen, err := a.validate(in.Credential, in.Request, in.Temperature, in.MaxTokens)
	if err != nil {
		out.Err = err
		a.logger.Debug("interaction rejected", slog.String("request_id", out.RequestID), slog.Any("error", err))
		return out, err
	}

	ctx, span := a.telemetry.Tracer().Start(ctx, "assistant.run",
		trace.WithAttributes(telemetry.SafeAttributes(map[string]any{
			"socgate.request_id":  out.RequestID,
			"socgate.surface":     in.Surface,
			"socgate.output_cap":  gen.MaxTokens,
			"socgate.temperature": gen.Temperature,
		})...),
	)
	defer span.End()

	reqResult := a.redactor.Apply(in.Request)
	evResult := a.redactor.Apply(in.Evidence)
	out.RedactedRequest = reqResult.Text
	out.RedactedEvidence = evResult.Text
	out.Redactions = mergeCounts(reqResult.Counts, evResult.Counts)
	out.State = StateRedacted

	classifyStart := time.Now()
	label, err := a.router.Classify(ctx, in.Credential, out.RedactedRequest)
	out.Timings.Classify = time.Since(classifyStart)
	a.metrics.ObserveUpstream(string(StageClassify), out.Timings.Classify.Seconds(), err)
	if err != nil {
		return a.fail(ctx, span, out, in, StageClassify, err, started)
	}
	out.Label = label
	out.State = StateClassified

	if label == policy.Refuse {
		out.State = StateBlocked
		out.Answer = policy.RefusalMessage
		a.finish(ctx, span, out, in, started)
		return out, nil
	}

	out.State = StateResponding
	respondStart := time.Now()
	answer, err := a.router.Respond(ctx, in.Credential, out.RedactedRequest, out.RedactedEvidence, label, gen)
	out.Timings.Respond = time.Since(respondStart)
	a.metrics.ObserveUpstream(string(StageRespond), out.Timings.Respond.Seconds(), err)
	if err != nil {
		return a.fail(ctx, span, out, in, StageRespond, err, started)
	}

	out.Answer = answer
	out.Guard = a.guard.Evaluate(answer)
	out.State = StateDone
	a.finish(ctx, span, out, in, started)
	return out, nil
}

// Decide redacts request and asks only for the policy label.
func (a *Assistant) Decide(ctx context.Context, credential, request string) (*Decision, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, ErrMissingCredential
	}
	if strings.TrimSpace(request) == "" {
		return nil, ErrEmptyRequest
	}

	res := a.redactor.Apply(request)
	start := time.Now()
	label, err := a.router.Classify(ctx, credential, res.Text)
	a.metrics.ObserveUpstream(string(StageClassify), time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}
	return &Decision{Label: label, RedactedRequest: res.Text, Redactions: res.Counts}, nil
}

func (a *Assistant) validate(credential, request string, temperature *float64, maxTokens int) (policy.Generation, error) {
	if strings.TrimSpace(credential) == "" {
		return policy.Generation{}, ErrMissingCredential
	}
	if strings.TrimSpace(request) == "" {
		return policy.Generation{}, ErrEmptyRequest
	}

	gen := policy.Generation{
		Temperature: a.limits.DefaultTemperature,
		MaxTokens:   a.limits.DefaultMaxTokens,
	}
	if temperature != nil {
		gen.Temperature = *temperature
	}
	if maxTokens != 0 {
		gen.MaxTokens = maxTokens
	}
	if gen.Temperature < 0 || gen.Temperature > 1 {
		return gen, fmt.Errorf("%w: temperature %.2f outside [0, 1]", ErrInvalidGeneration, gen.Temperature)
	}
	if gen.MaxTokens < a.limits.MinMaxTokens || gen.MaxTokens > a.limits.MaxMaxTokens {
		return gen, fmt.Errorf("%w: max_tokens %d outside [%d, %d]", ErrInvalidGeneration, gen.MaxTokens, a.limits.MinMaxTokens, a.limits.MaxMaxTokens)
	}
	return gen, nil
}

func (a *Assistant) fail(ctx context.Context, span trace.Span, out *Outcome, in Interaction, stage Stage, err error, started time.Time) (*Outcome, error) {
	out.State = StateFailed
	out.FailedStage = stage
	out.Err = err
	span.RecordError(err)
	span.SetStatus(codes.Error, string(stage)+" failed")
	a.finish(ctx, span, out, in, started)
	return out, err
}

func (a *Assistant) finish(ctx context.Context, span trace.Span, out *Outcome, in Interaction, started time.Time) {
	out.Timings.Total = time.Since(started)
	total := redact.CountTotal(out.Redactions)

	span.SetAttributes(telemetry.SafeAttributes(map[string]any{
		"socgate.state":            string(out.State),
		"socgate.decision":         string(out.Label),
		"socgate.redactions_total": total,
		"socgate.guard":            out.Guard.Decision,
	})...)

	a.metrics.ObserveInteraction(string(out.State), string(out.Label))
	a.metrics.ObserveRedactions(out.Redactions)
	a.metrics.ObserveGuard(out.Guard.Decision)
	a.telemetry.RecordInteraction(ctx, telemetry.Interaction{
		State:         string(out.State),
		Label:         string(out.Label),
		DurationMs:    millis(out.Timings.Total),
		ClassifyMs:    millis(out.Timings.Classify),
		RespondMs:     millis(out.Timings.Respond),
		Redactions:    out.Redactions,
		GuardDecision: out.Guard.Decision,
	})

	findings := make([]activation.Finding, 0, len(out.Guard.Hits))
	for _, h := range out.Guard.Hits {
		findings = append(findings, activation.Finding{RuleID: h.RuleID, Category: h.Category, Action: h.Action, Evidence: h.Evidence})
	}
	settings := a.router.Settings()
	// Delivery failures are logged by the emitter and never change the outcome.
	_ = a.emitter.Emit(ctx, activation.BuildEvent(activation.BuildParams{
		RequestID:        out.RequestID,
		Level:            a.activationLevel,
		Model:            settings.Model,
		Provider:         a.providerName,
		Surface:          in.Surface,
		State:            string(out.State),
		Label:            string(out.Label),
		Stage:            string(out.FailedStage),
		Err:              out.Err,
		RedactionCounts:  out.Redactions,
		RedactedRequest:  out.RedactedRequest,
		RedactedEvidence: out.RedactedEvidence,
		Answer:           answerForEvent(out),
		GuardDecision:    out.Guard.Decision,
		GuardNote:        out.Guard.Note,
		Findings:         findings,
		Classify:         out.Timings.Classify,
		Respond:          out.Timings.Respond,
		Total:            out.Timings.Total,
	}))

	level := slog.LevelInfo
	if out.State == StateFailed {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("request_id", out.RequestID),
		slog.String("state", string(out.State)),
		slog.String("label", string(out.Label)),
		slog.Int("redactions", total),
		slog.Duration("classify", out.Timings.Classify),
		slog.Duration("respond", out.Timings.Respond),
		slog.Duration("total", out.Timings.Total),
	}
	if out.Err != nil {
		attrs = append(attrs, slog.String("stage", string(out.FailedStage)), slog.Any("error", out.Err))
	}
	if out.Guard.Decision == "warn" {
		attrs = append(attrs, slog.Any("guard_rules", out.Guard.RuleIDs))
	}
	a.logger.LogAttrs(ctx, level, "interaction finished", attrs...)
}

func answerForEvent(out *Outcome) string {
	if out.State == StateDone {
		return out.Answer
	}
	return ""
}

func mergeCounts(a, b map[string]int) map[string]int {
	out := make(map[string]int, len(a)+len(b))
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
