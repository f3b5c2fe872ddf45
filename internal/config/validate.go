package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if cfg.Server.MaxRequestBodyBytes <= 0 {
		return errors.New("server.max_request_body_bytes must be positive")
	}

	if err := validateProviderConfig(cfg.Provider); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Model.ID) == "" {
		return errors.New("model.id must be set")
	}

	if err := validateGenerationConfig(cfg.Generation); err != nil {
		return err
	}

	if err := validateLoggingConfig(cfg.Logging); err != nil {
		return err
	}

	if err := validateActivationConfig(cfg.Activation); err != nil {
		return err
	}

	if err := validateTelemetryConfig(cfg.Telemetry); err != nil {
		return err
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", cfg.Metrics.Path)
	}

	if err := validateResponseGuardConfig(cfg.ResponseGuard); err != nil {
		return err
	}

	return nil
}

func validateProviderConfig(p ProviderConfig) error {
	switch strings.ToLower(strings.TrimSpace(p.Type)) {
	case "mock":
		return nil
	case "openai":
	default:
		return fmt.Errorf("provider.type must be openai or mock, got %q", p.Type)
	}
	if strings.TrimSpace(p.TokenEnv) == "" {
		return errors.New("provider.token_env must be set")
	}
	if p.BaseURL != "" {
		u, err := url.Parse(p.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("provider has invalid base_url")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("provider base_url must be http or https")
		}
		if err := blockPrivateHost(u.Host, p.AllowPrivateNetworks); err != nil {
			return fmt.Errorf("provider base_url blocked: %w", err)
		}
	}
	return nil
}

func validateGenerationConfig(g GenerationConfig) error {
	if g.Temperature != nil && (*g.Temperature < 0 || *g.Temperature > 1) {
		return fmt.Errorf("generation.temperature must be within [0, 1], got %v", *g.Temperature)
	}
	if g.MinMaxTokens > g.MaxMaxTokens {
		return fmt.Errorf("generation.min_max_tokens (%d) exceeds max_max_tokens (%d)", g.MinMaxTokens, g.MaxMaxTokens)
	}
	if g.MaxTokens < g.MinMaxTokens || g.MaxTokens > g.MaxMaxTokens {
		return fmt.Errorf("generation.max_tokens must be within [%d, %d], got %d", g.MinMaxTokens, g.MaxMaxTokens, g.MaxTokens)
	}
	return nil
}

func validateLoggingConfig(l LoggingConfig) error {
	switch strings.ToLower(strings.TrimSpace(l.Format)) {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", l.Format)
	}
	switch strings.ToLower(strings.TrimSpace(l.ActivationLevel)) {
	case "", "metadata", "redacted":
	default:
		return fmt.Errorf("logging.activation_level must be metadata or redacted, got %q", l.ActivationLevel)
	}
	return nil
}

func validateActivationConfig(a ActivationConfig) error {
	for i, s := range a.Sinks {
		switch strings.ToLower(strings.TrimSpace(s.Type)) {
		case "log":
		case "webhook":
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("activation sink %d (webhook) missing url", i)
			}
			u, err := url.Parse(s.URL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("activation sink %d (webhook) has invalid url", i)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("activation sink %d (webhook) url must be http or https", i)
			}
		default:
			return fmt.Errorf("activation sink %d has unknown type %q", i, s.Type)
		}
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}

func validateResponseGuardConfig(r ResponseGuardConfig) error {
	mode := strings.ToLower(strings.TrimSpace(r.Mode))
	if mode != "" && mode != "warn" && mode != "ignore" {
		return fmt.Errorf("response_guard.mode must be warn or ignore, got %q", r.Mode)
	}
	overrides := []struct{ field, value string }{
		{"response_guard.categories.evidence_destruction", r.Categories.EvidenceDestruction},
		{"response_guard.categories.defense_evasion", r.Categories.DefenseEvasion},
		{"response_guard.categories.data_exfil", r.Categories.DataExfil},
	}
	for _, o := range overrides {
		if err := validateResponseGuardAction(o.field, o.value); err != nil {
			return err
		}
	}
	return nil
}

func validateResponseGuardAction(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "warn", "ignore":
		return nil
	default:
		return fmt.Errorf("%s must be warn or ignore, got %q", field, value)
	}
}

func blockPrivateHost(hostport string, allowPrivate bool) error {
	if allowPrivate {
		return nil
	}
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	if strings.EqualFold(strings.TrimSpace(host), "localhost") {
		return errors.New("private network host localhost blocked for SSRF safety")
	}

	if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
		return fmt.Errorf("private network IP %s blocked for SSRF safety", ip.String())
	}
	return nil
}

var privateBlocks = []*net.IPNet{
	{IP: net.ParseIP("127.0.0.0"), Mask: net.CIDRMask(8, 32)},
	{IP: net.ParseIP("10.0.0.0"), Mask: net.CIDRMask(8, 32)},
	{IP: net.ParseIP("172.16.0.0"), Mask: net.CIDRMask(12, 32)},
	{IP: net.ParseIP("192.168.0.0"), Mask: net.CIDRMask(16, 32)},
	{IP: net.ParseIP("169.254.0.0"), Mask: net.CIDRMask(16, 32)},
	{IP: net.ParseIP("::1"), Mask: net.CIDRMask(128, 128)},
	{IP: net.ParseIP("fc00::"), Mask: net.CIDRMask(7, 128)},
	{IP: net.ParseIP("fe80::"), Mask: net.CIDRMask(10, 128)},
}

func isPrivateIP(ip net.IP) bool {
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
