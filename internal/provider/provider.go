package provider

import (
	"context"
	"unicode/utf8"

	"github.com/socgate/socgate/internal/inference"
	"github.com/socgate/socgate/internal/redact"
)

// Provider sends one chat-style request upstream and returns the reply.
type Provider interface {
	ChatCompletion(ctx context.Context, req *inference.Request) (*inference.Response, error)
}

const (
	// ErrorBodyLimit caps how much of a non-2xx body is kept in a TransportError.
	ErrorBodyLimit = 700
	// FallbackLimit caps the raw payload returned when a 2xx body has an unexpected shape.
	FallbackLimit = 1500
)

// TransportError is a hard upstream failure: a non-200 status or a network
// level error (StatusCode 0). It is never retried.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

// Error scrubs credentials, since upstream bodies may echo the Authorization header.
func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return redact.Sprintf("upstream request failed: %v", e.Err)
	}
	return redact.Sprintf("upstream error %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
