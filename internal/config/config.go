package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration when --config is not given.
const DefaultPath = "socgate.yaml"

// Config holds socgate configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Provider      ProviderConfig      `yaml:"provider"`
	Model         ModelConfig         `yaml:"model"`
	Generation    GenerationConfig    `yaml:"generation"`
	Logging       LoggingConfig       `yaml:"logging"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	ResponseGuard ResponseGuardConfig `yaml:"response_guard"`
	Activation    ActivationConfig    `yaml:"activation"`
}

type ServerConfig struct {
	Addr                string        `yaml:"addr"` // HTTP listen address, e.g. ":8080"
	MaxRequestBodyBytes int64         `yaml:"max_request_body_bytes"`
	ReadHeaderTimeout   time.Duration `yaml:"read_header_timeout"`
}

type ProviderConfig struct {
	Type                 string `yaml:"type"`     // "openai" or "mock"
	BaseURL              string `yaml:"base_url"` // e.g. "https://router.huggingface.co/v1"
	TokenEnv             string `yaml:"token_env"`
	MaxResponseBytes     int64  `yaml:"max_response_bytes"`
	AllowPrivateNetworks bool   `yaml:"allow_private_networks"`
}

type ModelConfig struct {
	ID                string        `yaml:"id"`
	ClassifyTimeout   time.Duration `yaml:"classify_timeout"`
	RespondTimeout    time.Duration `yaml:"respond_timeout"`
	ClassifyMaxTokens int           `yaml:"classify_max_tokens"`
}

// GenerationConfig holds the default sampling parameters and the allowed
// range for caller-supplied max_tokens.
type GenerationConfig struct {
	Temperature  *float64 `yaml:"temperature"`
	MaxTokens    int      `yaml:"max_tokens"`
	MinMaxTokens int      `yaml:"min_max_tokens"`
	MaxMaxTokens int      `yaml:"max_max_tokens"`
}

type LoggingConfig struct {
	Level           string `yaml:"level"`
	Format          string `yaml:"format"`           // json | text
	ActivationLevel string `yaml:"activation_level"` // metadata | redacted
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
	Service  string `yaml:"service"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type ResponseGuardConfig struct {
	Enabled    *bool                   `yaml:"enabled"`
	Mode       string                  `yaml:"mode"` // warn | ignore
	Categories ResponseGuardCategories `yaml:"categories"`
}

type ResponseGuardCategories struct {
	EvidenceDestruction string `yaml:"evidence_destruction"`
	DefenseEvasion      string `yaml:"defense_evasion"`
	DataExfil           string `yaml:"data_exfil"`
}

type ActivationConfig struct {
	Sinks []ActivationSinkConfig `yaml:"sinks"`
}

type ActivationSinkConfig struct {
	Type    string            `yaml:"type"` // log | webhook
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Timeout time.Duration     `yaml:"timeout"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// IsEnabled reports whether the response guard runs. It is on unless disabled explicitly.
func (r ResponseGuardConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxRequestBodyBytes <= 0 {
		cfg.Server.MaxRequestBodyBytes = 64 * 1024
	}
	if cfg.Server.ReadHeaderTimeout <= 0 {
		cfg.Server.ReadHeaderTimeout = 5 * time.Second
	}

	if cfg.Provider.Type == "" {
		cfg.Provider.Type = "openai"
	}
	if cfg.Provider.BaseURL == "" && cfg.Provider.Type == "openai" {
		cfg.Provider.BaseURL = "https://router.huggingface.co/v1"
	}
	if cfg.Provider.TokenEnv == "" {
		cfg.Provider.TokenEnv = "HF_TOKEN"
	}
	if cfg.Provider.MaxResponseBytes <= 0 {
		cfg.Provider.MaxResponseBytes = 4 * 1024 * 1024
	}

	if cfg.Model.ID == "" {
		cfg.Model.ID = "Qwen/Qwen2.5-Coder-32B-Instruct"
	}
	if cfg.Model.ClassifyTimeout <= 0 {
		cfg.Model.ClassifyTimeout = 60 * time.Second
	}
	if cfg.Model.RespondTimeout <= 0 {
		cfg.Model.RespondTimeout = 180 * time.Second
	}
	if cfg.Model.ClassifyMaxTokens <= 0 {
		cfg.Model.ClassifyMaxTokens = 10
	}

	if cfg.Generation.Temperature == nil {
		t := 0.2
		cfg.Generation.Temperature = &t
	}
	if cfg.Generation.MinMaxTokens <= 0 {
		cfg.Generation.MinMaxTokens = 128
	}
	if cfg.Generation.MaxMaxTokens <= 0 {
		cfg.Generation.MaxMaxTokens = 1200
	}
	if cfg.Generation.MaxTokens <= 0 {
		cfg.Generation.MaxTokens = 450
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.ActivationLevel == "" {
		cfg.Logging.ActivationLevel = "metadata"
	}

	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.Service == "" {
		cfg.Telemetry.Service = "socgate"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.ResponseGuard.Mode == "" {
		cfg.ResponseGuard.Mode = "warn"
	}

	for i := range cfg.Activation.Sinks {
		if cfg.Activation.Sinks[i].Timeout <= 0 {
			cfg.Activation.Sinks[i].Timeout = 5 * time.Second
		}
	}
}
