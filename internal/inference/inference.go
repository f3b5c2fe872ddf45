package inference

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a normalized representation of a chat message.
type Message struct {
	Role    string
	Content string
}

// Request is one chat-completion call against the upstream model.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// Timeout bounds the whole upstream call. Zero means the provider default.
	Timeout time.Duration
	// Credential is the caller's bearer token. It is held only for the call
	// and must never be logged or serialized.
	Credential string
}

// Usage holds token accounting reported by the upstream.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response represents a normalized inference response.
type Response struct {
	Message Message
	Usage   Usage
	// Fallback is set when the upstream answered 2xx with an unexpected body
	// shape; Message.Content then holds a truncated copy of the raw payload.
	Fallback bool
}
