package activation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/socgate/socgate/internal/redact"
)

// Schema version of Event.
const Version = "1"

const (
	LevelMetadata = "metadata"
	LevelRedacted = "redacted"
)

const previewLimit = 500

// Finding is one response-guard hit attached to an event.
type Finding struct {
	RuleID   string `json:"rule_id"`
	Category string `json:"category"`
	Action   string `json:"action"`
	Evidence string `json:"evidence,omitempty"`
}

type Meta struct {
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Surface  string `json:"surface,omitempty"` // cli | http
}

type Summary struct {
	State   string `json:"state"`
	Label   string `json:"label,omitempty"`
	Blocked bool   `json:"blocked"`
	Stage   string `json:"stage,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Redaction struct {
	Counts map[string]int `json:"counts,omitempty"`
	Total  int            `json:"total"`
}

type RequestPreview struct {
	Request  string `json:"request,omitempty"`
	Evidence string `json:"evidence,omitempty"`
}

type ResponseDecision struct {
	Final    string    `json:"final"` // allow | warn | block | none
	Note     string    `json:"note,omitempty"`
	Findings []Finding `json:"findings,omitempty"`
}

type ResponsePayload struct {
	Decision ResponseDecision `json:"decision"`
	Preview  string           `json:"preview,omitempty"`
}

type TimingMs struct {
	Classify float64 `json:"classify"`
	Respond  float64 `json:"respond"`
	Total    float64 `json:"total"`
}

// Event is the governance record emitted once per assistant run.
// Text fields only ever hold redacted content, and only at the redacted level.
type Event struct {
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id"`
	Meta      Meta            `json:"meta"`
	Summary   Summary         `json:"summary"`
	Redaction Redaction       `json:"redaction"`
	Request   RequestPreview  `json:"request"`
	Response  ResponsePayload `json:"response"`
	TimingMs  TimingMs        `json:"timing_ms"`
}

// BuildParams collects inputs needed to assemble an Event.
type BuildParams struct {
	RequestID        string
	Level            string
	Model            string
	Provider         string
	Surface          string
	State            string
	Label            string
	Stage            string
	Err              error
	RedactionCounts  map[string]int
	RedactedRequest  string
	RedactedEvidence string
	Answer           string
	GuardDecision    string
	GuardNote        string
	Findings         []Finding
	Classify         time.Duration
	Respond          time.Duration
	Total            time.Duration
}

// BuildEvent assembles an Event. Previews are included only at LevelRedacted and
// are passed through redact.Secrets again before truncation.
func BuildEvent(p BuildParams) *Event {
	ev := &Event{
		Version:   Version,
		Timestamp: time.Now().UTC(),
		RequestID: EnsureRequestID(p.RequestID),
		Meta: Meta{
			Model:    p.Model,
			Provider: p.Provider,
			Surface:  p.Surface,
		},
		Summary: Summary{
			State:   p.State,
			Label:   p.Label,
			Blocked: p.State == "BLOCKED",
			Stage:   p.Stage,
		},
		Redaction: buildRedaction(p.RedactionCounts),
		Response: ResponsePayload{
			Decision: ResponseDecision{
				Final:    responseFinal(p),
				Note:     p.GuardNote,
				Findings: cloneFindings(p.Findings),
			},
		},
		TimingMs: TimingMs{
			Classify: durationMillis(p.Classify),
			Respond:  durationMillis(p.Respond),
			Total:    durationMillis(p.Total),
		},
	}
	if p.Err != nil {
		ev.Summary.Error = truncate(redact.Secrets(p.Err.Error()), previewLimit)
	}

	if normalizeLevel(p.Level) == LevelRedacted {
		ev.Request.Request = preview(p.RedactedRequest)
		ev.Request.Evidence = preview(p.RedactedEvidence)
		ev.Response.Preview = preview(p.Answer)
	}
	return ev
}

// EnsureRequestID returns id, or a fresh random UUID when id is empty.
func EnsureRequestID(id string) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return uuid.NewString()
}

func normalizeLevel(level string) string {
	if strings.EqualFold(strings.TrimSpace(level), LevelRedacted) {
		return LevelRedacted
	}
	return LevelMetadata
}

func responseFinal(p BuildParams) string {
	switch p.State {
	case "BLOCKED":
		return "block"
	case "DONE":
		if p.GuardDecision == "warn" {
			return "warn"
		}
		return "allow"
	default:
		return "none"
	}
}

func buildRedaction(counts map[string]int) Redaction {
	out := Redaction{}
	for k, v := range counts {
		if v <= 0 {
			continue
		}
		if out.Counts == nil {
			out.Counts = make(map[string]int, len(counts))
		}
		out.Counts[k] = v
		out.Total += v
	}
	return out
}

func cloneFindings(in []Finding) []Finding {
	if len(in) == 0 {
		return nil
	}
	out := make([]Finding, len(in))
	copy(out, in)
	return out
}

func preview(s string) string {
	return truncate(redact.Secrets(s), previewLimit)
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
