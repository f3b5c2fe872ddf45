package provider

import (
	"context"
	"sync"

	"github.com/socgate/socgate/internal/inference"
)

// FakeProvider replays scripted replies and records every request it sees.
// Replies are consumed in order; the last one repeats once the script runs out.
type FakeProvider struct {
	Replies []string
	Errors  []error

	mu    sync.Mutex
	calls []inference.Request
}

// NewFake returns a FakeProvider that answers every call in order with replies.
func NewFake(replies ...string) *FakeProvider {
	return &FakeProvider{Replies: replies}
}

// NewFailingFake returns a FakeProvider whose every call fails with err.
func NewFailingFake(err error) *FakeProvider {
	return &FakeProvider{Errors: []error{err}}
}

func (f *FakeProvider) ChatCompletion(ctx context.Context, req *inference.Request) (*inference.Response, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, *req)
	f.mu.Unlock()

	if err := pick(f.Errors, idx); err != nil {
		return nil, err
	}

	return &inference.Response{
		Message: inference.Message{
			Role:    inference.RoleAssistant,
			Content: pick(f.Replies, idx),
		},
		Usage: inference.Usage{
			PromptTokens:     2,
			CompletionTokens: 3,
			TotalTokens:      5,
		},
	}, nil
}

// Calls returns copies of the requests received so far.
func (f *FakeProvider) Calls() []inference.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]inference.Request, len(f.calls))
	copy(out, f.calls)
	return out
}

func pick[T any](items []T, idx int) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	if idx >= len(items) {
		return items[len(items)-1]
	}
	return items[idx]
}
