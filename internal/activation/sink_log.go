package activation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// LogSink writes each event as a single structured log line.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "governance event",
		slog.String("request_id", ev.RequestID),
		slog.String("state", ev.Summary.State),
		slog.String("label", ev.Summary.Label),
		slog.String("event", string(data)),
	)
	return nil
}

func (s *LogSink) Close(context.Context) error { return nil }
