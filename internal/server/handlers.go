package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/socgate/socgate/internal/assistant"
	"github.com/socgate/socgate/internal/policy"
	"github.com/socgate/socgate/internal/provider"
	"github.com/socgate/socgate/internal/redact"
)

type redactRequest struct {
	Text string `json:"text"`
}

type redactResponse struct {
	Redacted string         `json:"redacted"`
	Counts   map[string]int `json:"counts"`
}

type classifyRequest struct {
	Request string `json:"request"`
}

type classifyResponse struct {
	RequestID       string         `json:"request_id"`
	Label           string         `json:"decision"`
	RedactedRequest string         `json:"redacted_request"`
	Redactions      map[string]int `json:"redactions"`
}

type assistRequest struct {
	Request     string   `json:"request"`
	Evidence    string   `json:"evidence,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

type guardSummary struct {
	Decision string   `json:"decision"`
	Rules    []string `json:"rules,omitempty"`
	Warning  string   `json:"warning,omitempty"`
}

type assistResponse struct {
	RequestID        string         `json:"request_id"`
	State            string         `json:"state"`
	Label            string         `json:"decision"`
	Answer           string         `json:"answer"`
	RedactedRequest  string         `json:"redacted_request"`
	RedactedEvidence string         `json:"redacted_evidence,omitempty"`
	Redactions       map[string]int `json:"redactions"`
	Guard            guardSummary   `json:"guard"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Label     string `json:"decision,omitempty"`
	Status    int    `json:"upstream_status,omitempty"`
	// Detail is the scrubbed, truncated upstream body or network error.
	Detail    string `json:"upstream_body,omitempty"`
}

func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	var req redactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := s.assistant.Preview(req.Text)
	writeJSON(w, http.StatusOK, redactResponse{Redacted: res.Text, Counts: res.Counts})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reqID := requestIDFrom(r.Context())
	d, err := s.assistant.Decide(r.Context(), credentialFrom(r.Context()), req.Request)
	if err != nil {
		s.writeAssistantError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, classifyResponse{
		RequestID:       reqID,
		Label:           d.Label.String(),
		RedactedRequest: d.RedactedRequest,
		Redactions:      d.Redactions,
	})
}

func (s *Server) handleAssist(w http.ResponseWriter, r *http.Request) {
	var req assistRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := s.assistant.Run(r.Context(), assistant.Interaction{
		RequestID:   requestIDFrom(r.Context()),
		Request:     req.Request,
		Evidence:    req.Evidence,
		Credential:  credentialFrom(r.Context()),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Surface:     "http",
	})
	if err != nil {
		s.writeAssistantError(w, out.RequestID, err)
		return
	}

	if out.State == assistant.StateBlocked {
		writeJSON(w, http.StatusForbidden, errorBody{Error: errorDetail{
			Message:   out.Answer,
			Type:      "policy_refused",
			RequestID: out.RequestID,
			Label:     out.Label.String(),
		}})
		return
	}

	writeJSON(w, http.StatusOK, assistResponse{
		RequestID:        out.RequestID,
		State:            string(out.State),
		Label:            out.Label.String(),
		Answer:           out.Answer,
		RedactedRequest:  out.RedactedRequest,
		RedactedEvidence: out.RedactedEvidence,
		Redactions:       out.Redactions,
		Guard: guardSummary{
			Decision: out.Guard.Decision,
			Rules:    out.Guard.RuleIDs,
			Warning:  out.Guard.Warning(),
		},
	})
}

func (s *Server) writeAssistantError(w http.ResponseWriter, reqID string, err error) {
	var te *provider.TransportError
	switch {
	case errors.Is(err, assistant.ErrMissingCredential):
		writeError(w, http.StatusUnauthorized, err.Error(), "authentication_error")
	case errors.Is(err, assistant.ErrEmptyRequest), errors.Is(err, assistant.ErrInvalidGeneration):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request_error")
	case errors.Is(err, policy.ErrRefused):
		writeError(w, http.StatusForbidden, policy.RefusalMessage, "policy_refused")
	case errors.As(err, &te):
		s.logger.Warn("upstream model error", slog.String("request_id", reqID), slog.Int("status", te.StatusCode))
		msg := "Upstream model request failed"
		detail := ""
		if te.Err != nil {
			detail = redact.Secrets(te.Err.Error())
		}
		if te.StatusCode != 0 {
			msg = fmt.Sprintf("Upstream model returned status %d", te.StatusCode)
			detail = redact.Secrets(te.Body)
		}
		writeJSON(w, http.StatusBadGateway, errorBody{Error: errorDetail{
			Message:   msg,
			Type:      "upstream_error",
			RequestID: reqID,
			Status:    te.StatusCode,
			Detail:    detail,
		}})
	default:
		s.logger.Error("assistant failure", slog.String("request_id", reqID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Internal error", "internal_error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", "invalid_request_error")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+strings.TrimSpace(err.Error()), "invalid_request_error")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes an OpenAI-style error JSON.
func writeError(w http.ResponseWriter, status int, message, typ string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Message: message, Type: typ}})
}
