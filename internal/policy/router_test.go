package policy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/socgate/socgate/internal/inference"
	"github.com/socgate/socgate/internal/provider"
)

func TestClassifyBuildsGovernanceExchange(t *testing.T) {
	fake := provider.NewFake("ALLOW")
	r := NewRouter(fake, Settings{})

	label, err := r.Classify(context.Background(), "cred-1", "Summarize alert: [REDACTED_EMAIL] failed logins")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if label != Allow {
		t.Fatalf("expected ALLOW, got %s", label)
	}

	calls := fake.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 upstream call, got %d", len(calls))
	}
	req := calls[0]
	if req.Model != DefaultModel {
		t.Fatalf("unexpected model %q", req.Model)
	}
	if req.Temperature != 0 {
		t.Fatalf("classify must use temperature 0, got %v", req.Temperature)
	}
	if req.MaxTokens != 10 {
		t.Fatalf("expected small token cap, got %d", req.MaxTokens)
	}
	if req.Timeout != 60*time.Second {
		t.Fatalf("expected classify timeout 60s, got %s", req.Timeout)
	}
	if req.Credential != "cred-1" {
		t.Fatalf("credential not forwarded")
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != inference.RoleSystem || req.Messages[1].Role != inference.RoleUser {
		t.Fatalf("unexpected message layout: %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, "Return ONLY ALLOW, REFUSE, or CAUTION") {
		t.Fatalf("system message must restrict output to labels: %q", req.Messages[0].Content)
	}
	if !strings.Contains(req.Messages[1].Content, "governance classifier") ||
		!strings.HasSuffix(strings.TrimSpace(req.Messages[1].Content), "Summarize alert: [REDACTED_EMAIL] failed logins") {
		t.Fatalf("governance prompt missing request: %q", req.Messages[1].Content)
	}
}

func TestClassifyAmbiguousOutputIsCaution(t *testing.T) {
	r := NewRouter(provider.NewFake("I am not sure about this one"), Settings{})
	label, err := r.Classify(context.Background(), "cred", "text")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if label != Caution {
		t.Fatalf("expected CAUTION default, got %s", label)
	}
}

func TestClassifyPropagatesTransportError(t *testing.T) {
	upstream := &provider.TransportError{StatusCode: http.StatusInternalServerError, Body: "boom"}
	r := NewRouter(provider.NewFailingFake(upstream), Settings{})

	label, err := r.Classify(context.Background(), "cred", "text")
	if err == nil {
		t.Fatalf("expected error")
	}
	if label != "" {
		t.Fatalf("transport failure must not map to a label, got %s", label)
	}
	var te *provider.TransportError
	if !errors.As(err, &te) || te.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected TransportError with status 500, got %v", err)
	}
}

func TestRespondRefuseMakesNoCall(t *testing.T) {
	fake := provider.NewFake("should not be used")
	r := NewRouter(fake, Settings{})

	_, err := r.Respond(context.Background(), "cred", "req", "", Refuse, Generation{Temperature: 0.2, MaxTokens: 450})
	if !errors.Is(err, ErrRefused) {
		t.Fatalf("expected ErrRefused, got %v", err)
	}
	if n := len(fake.Calls()); n != 0 {
		t.Fatalf("expected no upstream calls, got %d", n)
	}
}

func TestRespondUnknownLabel(t *testing.T) {
	fake := provider.NewFake("x")
	r := NewRouter(fake, Settings{})
	if _, err := r.Respond(context.Background(), "cred", "req", "", Label("MAYBE"), Generation{}); err == nil {
		t.Fatalf("expected error for unknown label")
	}
	if n := len(fake.Calls()); n != 0 {
		t.Fatalf("expected no upstream calls, got %d", n)
	}
}

func TestRespondPromptByLabel(t *testing.T) {
	fake := provider.NewFake("answer")
	r := NewRouter(fake, Settings{RespondTimeout: 90 * time.Second})
	gen := Generation{Temperature: 0.35, MaxTokens: 600}

	if _, err := r.Respond(context.Background(), "cred", "triage this", "", Allow, gen); err != nil {
		t.Fatalf("respond allow: %v", err)
	}
	if _, err := r.Respond(context.Background(), "cred", "attribute this", "ioc list", Caution, gen); err != nil {
		t.Fatalf("respond caution: %v", err)
	}

	calls := fake.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}

	allow := calls[0]
	if allow.Temperature != 0.35 || allow.MaxTokens != 600 {
		t.Fatalf("generation params not forwarded: %+v", allow)
	}
	if allow.Timeout != 90*time.Second {
		t.Fatalf("expected respond timeout, got %s", allow.Timeout)
	}
	sys := allow.Messages[0].Content
	if strings.Contains(sys, "Be conservative") {
		t.Fatalf("ALLOW prompt must not carry caution clause")
	}
	last := -1
	for _, h := range SectionHeaders {
		idx := strings.Index(sys, h)
		if idx <= last {
			t.Fatalf("section %q missing or out of order in system prompt", h)
		}
		last = idx
	}
	for _, rule := range []string{"bypass MFA", "disable EDR/AV/logging", "exfiltrate data", "erase traces", "evade detection", "ask for it"} {
		if !strings.Contains(sys, rule) {
			t.Fatalf("system rules missing %q", rule)
		}
	}
	user := allow.Messages[1].Content
	if user != "USER REQUEST:\ntriage this\n\nEVIDENCE / CONTEXT (may be empty):" {
		t.Fatalf("unexpected user content %q", user)
	}

	caution := calls[1]
	if !strings.HasSuffix(caution.Messages[0].Content, "Avoid definitive attribution/CVE claims without evidence.") {
		t.Fatalf("CAUTION prompt missing clause: %q", caution.Messages[0].Content)
	}
	if !strings.HasSuffix(caution.Messages[1].Content, "EVIDENCE / CONTEXT (may be empty):\nioc list") {
		t.Fatalf("evidence not embedded: %q", caution.Messages[1].Content)
	}
}

func TestRespondMalformedBodyReturnsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error_hint":"` + strings.Repeat("z", 4000) + `"}`))
	}))
	defer srv.Close()

	r := NewRouter(provider.NewOpenAI(srv.URL, time.Second, 0), Settings{})
	out, err := r.Respond(context.Background(), "cred", "req", "", Allow, Generation{Temperature: 0.2, MaxTokens: 450})
	if err != nil {
		t.Fatalf("expected fallback, got error %v", err)
	}
	if out == "" {
		t.Fatalf("expected non-empty fallback")
	}
	if len(out) > provider.FallbackLimit {
		t.Fatalf("fallback not truncated: %d bytes", len(out))
	}
}

func TestSettingsDefaults(t *testing.T) {
	r := NewRouter(provider.NewFake(), Settings{Model: "custom/model"})
	s := r.Settings()
	if s.Model != "custom/model" {
		t.Fatalf("model override lost: %s", s.Model)
	}
	if s.ClassifyTimeout != 60*time.Second || s.RespondTimeout != 180*time.Second || s.ClassifyMaxTokens != 10 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}
