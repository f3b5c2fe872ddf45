package responseguard

import (
	"strings"

	"github.com/socgate/socgate/internal/config"
)

const (
	ActionWarn   = "warn"
	ActionIgnore = "ignore"
)

type Config struct {
	Enabled    bool
	Mode       string
	Categories CategoryConfig
}

// CategoryConfig holds per-category overrides of Mode.
type CategoryConfig struct {
	EvidenceDestruction string
	DefenseEvasion      string
	DataExfil           string
}

func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Mode:    ActionWarn,
	}
}

func FromConfig(cfg config.ResponseGuardConfig) Config {
	out := Config{
		Enabled: cfg.IsEnabled(),
		Mode:    cfg.Mode,
		Categories: CategoryConfig{
			EvidenceDestruction: cfg.Categories.EvidenceDestruction,
			DefenseEvasion:      cfg.Categories.DefenseEvasion,
			DataExfil:           cfg.Categories.DataExfil,
		},
	}
	if strings.TrimSpace(out.Mode) == "" {
		out.Mode = ActionWarn
	}
	return out
}

func (c Config) actionForCategory(category string) string {
	override := ""
	switch category {
	case CategoryEvidenceDestruction:
		override = c.Categories.EvidenceDestruction
	case CategoryDefenseEvasion:
		override = c.Categories.DefenseEvasion
	case CategoryDataExfil:
		override = c.Categories.DataExfil
	}
	if strings.TrimSpace(override) != "" {
		return normalizeAction(override)
	}
	return normalizeAction(c.Mode)
}

func normalizeAction(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), ActionIgnore) {
		return ActionIgnore
	}
	return ActionWarn
}
