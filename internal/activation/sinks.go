package activation

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/socgate/socgate/internal/config"
)

// SinksFromConfig builds sinks from configuration. With none configured,
// events go to the log.
func SinksFromConfig(cfgs []config.ActivationSinkConfig, logger *slog.Logger) ([]Sink, error) {
	if len(cfgs) == 0 {
		return []Sink{NewLogSink(logger)}, nil
	}
	sinks := make([]Sink, 0, len(cfgs))
	for i, c := range cfgs {
		switch strings.ToLower(strings.TrimSpace(c.Type)) {
		case "log":
			sinks = append(sinks, NewLogSink(logger))
		case "webhook":
			s, err := NewWebhookSink(c.URL, c.Headers, c.Timeout)
			if err != nil {
				return nil, fmt.Errorf("activation sink %d: %w", i, err)
			}
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("activation sink %d has unknown type %q", i, c.Type)
		}
	}
	return sinks, nil
}
