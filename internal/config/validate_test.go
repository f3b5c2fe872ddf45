package config

import (
	"strings"
	"testing"
)

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "missing server addr",
			mutate: func(c *Config) { c.Server.Addr = "" },
			want:   "server.addr",
		},
		{
			name:   "unknown provider type",
			mutate: func(c *Config) { c.Provider.Type = "anthropic" },
			want:   "provider.type",
		},
		{
			name:   "missing token env",
			mutate: func(c *Config) { c.Provider.TokenEnv = " " },
			want:   "token_env",
		},
		{
			name:   "invalid provider url",
			mutate: func(c *Config) { c.Provider.BaseURL = "::://bad" },
			want:   "base_url",
		},
		{
			name:   "provider url blocked private",
			mutate: func(c *Config) { c.Provider.BaseURL = "http://127.0.0.1:8081" },
			want:   "SSRF",
		},
		{
			name:   "provider url blocked localhost",
			mutate: func(c *Config) { c.Provider.BaseURL = "http://localhost:8081/v1" },
			want:   "SSRF",
		},
		{
			name:   "missing model id",
			mutate: func(c *Config) { c.Model.ID = "" },
			want:   "model.id",
		},
		{
			name: "temperature out of range",
			mutate: func(c *Config) {
				temp := 1.5
				c.Generation.Temperature = &temp
			},
			want: "temperature",
		},
		{
			name:   "default max tokens outside bounds",
			mutate: func(c *Config) { c.Generation.MaxTokens = 5000 },
			want:   "generation.max_tokens",
		},
		{
			name:   "inverted token bounds",
			mutate: func(c *Config) { c.Generation.MinMaxTokens = 2000 },
			want:   "min_max_tokens",
		},
		{
			name:   "bad activation level",
			mutate: func(c *Config) { c.Logging.ActivationLevel = "full" },
			want:   "activation_level",
		},
		{
			name: "webhook without url",
			mutate: func(c *Config) {
				c.Activation.Sinks = []ActivationSinkConfig{{Type: "webhook"}}
			},
			want: "missing url",
		},
		{
			name: "unknown sink type",
			mutate: func(c *Config) {
				c.Activation.Sinks = []ActivationSinkConfig{{Type: "file_jsonl"}}
			},
			want: "unknown type",
		},
		{
			name: "telemetry without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
			},
			want: "endpoint",
		},
		{
			name:   "bad response guard override",
			mutate: func(c *Config) { c.ResponseGuard.Categories.DefenseEvasion = "block" },
			want:   "defense_evasion",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			} else if !contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.want)
			}
		})
	}
}

func TestValidateOK(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}

	loopbackOK := Default()
	loopbackOK.Provider.BaseURL = "http://127.0.0.1:18080"
	loopbackOK.Provider.AllowPrivateNetworks = true
	if err := Validate(loopbackOK); err != nil {
		t.Fatalf("expected loopback allowed when allow_private_networks=true, got %v", err)
	}

	mock := Default()
	mock.Provider.Type = "mock"
	mock.Provider.BaseURL = "http://127.0.0.1:18080"
	if err := Validate(mock); err != nil {
		t.Fatalf("mock provider should skip url checks, got %v", err)
	}
}

func contains(s, sub string) bool {
	return s != "" && sub != "" && strings.Contains(s, sub)
}
