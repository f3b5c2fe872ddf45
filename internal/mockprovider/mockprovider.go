package mockprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DefaultAddr is where the mock upstream listens when no address is given.
const DefaultAddr = "127.0.0.1:18080"

// Options controls how the mock upstream answers.
type Options struct {
	// Delay is applied before every chat completion.
	Delay time.Duration
	// FailStatus, when non-zero, makes every chat completion return this status.
	FailStatus int
	// Malformed returns a 200 body without a choices array.
	Malformed bool
	// RequireToken, when set, rejects requests whose bearer token differs.
	RequireToken string
	Logger       *slog.Logger
}

var (
	refuseRe  = regexp.MustCompile(`(?i)phish|malware|ransomware|keylogger|exfiltrat|bypass|evade|disable\s+(?:edr|av|antivirus|logging)|erase\s+(?:logs|traces)`)
	cautionRe = regexp.MustCompile(`(?i)attribut|\bapt\s?\d*\b|\bcve-?\d*|zero[- ]day|nation[- ]state`)
)

// Label returns the keyword-derived policy label for a request.
func Label(request string) string {
	switch {
	case refuseRe.MatchString(request):
		return "REFUSE"
	case cautionRe.MatchString(request):
		return "CAUTION"
	default:
		return "ALLOW"
	}
}

// Handler returns an OpenAI-compatible chat completions handler.
func Handler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Debug("mock upstream request", slog.String("method", req.Method), slog.String("path", req.URL.Path))
			next.ServeHTTP(w, req)
		})
	})

	chat := func(w http.ResponseWriter, req *http.Request) {
		handleChat(w, req, opts)
	}
	r.Post("/v1/chat/completions", chat)
	r.Post("/chat/completions", chat)
	r.Get("/v1/models", writeModels)
	r.Get("/models", writeModels)
	r.NotFound(writeNotFoundJSON)
	return r
}

// Start launches the mock upstream on addr and returns a shutdown function and base URL
// (for example http://127.0.0.1:18080/v1).
func Start(addr string, opts Options) (func(context.Context) error, string, error) {
	if strings.TrimSpace(addr) == "" {
		addr = DefaultAddr
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           Handler(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mock upstream server error", slog.Any("error", err))
		}
	}()

	baseURL := "http://" + ln.Addr().String() + "/v1"
	logger.Info("mock upstream listening",
		slog.String("base_url", baseURL),
		slog.Duration("delay", opts.Delay),
		slog.Int("fail_status", opts.FailStatus),
		slog.Bool("malformed", opts.Malformed),
	)
	return srv.Shutdown, baseURL, nil
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func handleChat(w http.ResponseWriter, r *http.Request, opts Options) {
	if opts.Delay > 0 {
		select {
		case <-time.After(opts.Delay):
		case <-r.Context().Done():
			return
		}
	}

	if opts.RequireToken != "" && r.Header.Get("Authorization") != "Bearer "+opts.RequireToken {
		writeError(w, http.StatusUnauthorized, "Invalid credentials in Authorization header")
		return
	}
	if opts.FailStatus != 0 {
		writeError(w, opts.FailStatus, "mock upstream configured to fail")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "invalid chat request")
		return
	}

	if opts.Malformed {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-mock",
			"object": "chat.completion",
			"note":   "choices intentionally omitted",
		})
		return
	}

	system, user := "", ""
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "user":
			user = m.Content
		}
	}

	var content string
	if strings.Contains(system, "Return ONLY ALLOW, REFUSE, or CAUTION") {
		content = Label(requestFromGovernancePrompt(user))
	} else {
		content = socAnswer(user, strings.Contains(system, "Be conservative"))
	}
	writeChatCompletion(w, req.Model, content)
}

func requestFromGovernancePrompt(prompt string) string {
	const marker = "User request:"
	if i := strings.LastIndex(prompt, marker); i >= 0 {
		return prompt[i+len(marker):]
	}
	return prompt
}

func socAnswer(userContent string, cautious bool) string {
	request := userContent
	if after, ok := strings.CutPrefix(request, "USER REQUEST:\n"); ok {
		request = after
	}
	if i := strings.Index(request, "\n\nEVIDENCE / CONTEXT"); i >= 0 {
		request = request[:i]
	}
	request = strings.TrimSpace(request)
	if len(request) > 160 {
		request = request[:160] + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "1) Summary\nMock triage for: %s\n\n", request)
	b.WriteString("2) Likely hypotheses\n- Benign administrative activity (low confidence; evidence gap: change tickets)\n- Credential misuse (medium confidence; evidence gap: source IP history)\n\n")
	b.WriteString("3) Triage steps\n- Correlate the alert with authentication and endpoint telemetry.\n- Confirm the affected account owner out of band.\n\n")
	b.WriteString("4) Evidence to collect\n- Authentication logs, EDR process tree, proxy logs for the time window.\n\n")
	b.WriteString("5) Escalation criteria\n- Escalate on confirmed successful access or lateral movement.")
	if cautious {
		b.WriteString("\n\nNote: attribution is not supported by the available evidence; a human analyst should review.")
	}
	return b.String()
}

func writeChatCompletion(w http.ResponseWriter, model, content string) {
	if model == "" {
		model = "mock-llm"
	}
	resp := map[string]any{
		"id":      "chatcmpl-" + uuid.NewString(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     5,
			"completion_tokens": 5,
			"total_tokens":      10,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "mock_error",
		},
	})
}

func writeNotFoundJSON(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func writeModels(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data": []map[string]any{
			{
				"id":       "mock-llm",
				"object":   "model",
				"owned_by": "mock",
			},
		},
	})
}
