package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Sink consumes governance events (log, webhook).
type Sink interface {
	Name() string
	Deliver(context.Context, *Event) error
	Close(context.Context) error
}

// Metrics holds per-sink delivery counters.
type Metrics struct {
	delivered   uint64
	sinkSuccess map[string]uint64
	sinkFailure map[string]uint64
}

func (m Metrics) Delivered() uint64 { return m.delivered }

func (m Metrics) SinkSuccess(name string) uint64 { return m.sinkSuccess[name] }

func (m Metrics) SinkFailure(name string) uint64 { return m.sinkFailure[name] }

// Emitter delivers each event to every sink before returning.
// A failing sink does not stop delivery to the others.
type Emitter struct {
	sinks  []Sink
	logger *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// NewEmitter returns an Emitter over sinks. A nil logger discards delivery errors.
func NewEmitter(logger *slog.Logger, sinks ...Sink) *Emitter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := Metrics{
		sinkSuccess: make(map[string]uint64, len(sinks)),
		sinkFailure: make(map[string]uint64, len(sinks)),
	}
	for _, s := range sinks {
		m.sinkSuccess[s.Name()] = 0
		m.sinkFailure[s.Name()] = 0
	}
	return &Emitter{sinks: sinks, logger: logger, metrics: m}
}

// Emit delivers ev to all sinks and returns the joined delivery errors.
func (e *Emitter) Emit(ctx context.Context, ev *Event) error {
	if e == nil || ev == nil {
		return nil
	}

	var errs []error
	for _, s := range e.sinks {
		err := s.Deliver(ctx, ev)

		e.mu.Lock()
		if err != nil {
			e.metrics.sinkFailure[s.Name()]++
		} else {
			e.metrics.sinkSuccess[s.Name()]++
		}
		e.mu.Unlock()

		if err != nil {
			e.logger.Warn("governance event delivery failed",
				slog.String("sink", s.Name()),
				slog.String("request_id", ev.RequestID),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}

	e.mu.Lock()
	e.metrics.delivered++
	e.mu.Unlock()
	return errors.Join(errs...)
}

// Close closes every sink.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	for _, s := range e.sinks {
		if err := s.Close(ctx); err != nil {
			e.logger.Warn("governance sink close error", slog.String("sink", s.Name()), slog.Any("error", err))
		}
	}
}

// MetricsSnapshot copies current counters.
func (e *Emitter) MetricsSnapshot() Metrics {
	if e == nil {
		return Metrics{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := Metrics{
		delivered:   e.metrics.delivered,
		sinkSuccess: make(map[string]uint64, len(e.metrics.sinkSuccess)),
		sinkFailure: make(map[string]uint64, len(e.metrics.sinkFailure)),
	}
	for k, v := range e.metrics.sinkSuccess {
		out.sinkSuccess[k] = v
	}
	for k, v := range e.metrics.sinkFailure {
		out.sinkFailure[k] = v
	}
	return out
}
