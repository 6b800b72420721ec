package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service and the CLI.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=off debug info warn error"`
	// LogFile enables rotating file output in addition to stderr.
	LogFile string `json:"log_file" yaml:"log_file" toml:"log_file"`

	Backend Backend `json:"backend" yaml:"backend" toml:"backend"`

	// Pause after every model turn so the backend can settle. -1 disables it.
	SettleDelayMS int `json:"settle_delay_ms" yaml:"settle_delay_ms" toml:"settle_delay_ms" validate:"gte=-1"`
	// ValidateModels rejects models missing from a successful discovery before invoking them.
	ValidateModels bool `json:"validate_models" yaml:"validate_models" toml:"validate_models"`

	MaxUploadMB int                  `json:"max_upload_mb" yaml:"max_upload_mb" toml:"max_upload_mb" validate:"gte=0"`
	Labels      ClassificationLabels `json:"labels" yaml:"labels" toml:"labels"`
	CORS        CORS                 `json:"cors" yaml:"cors" toml:"cors"`
}

// Backend selects and tunes one model-serving backend.
type Backend struct {
	// Kind is one of manual, gateway, explicit.
	Kind    string `json:"kind" yaml:"kind" toml:"kind" validate:"required,oneof=manual gateway explicit"`
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url" validate:"required,url"`
	APIKey  string `json:"api_key" yaml:"api_key" toml:"api_key"`
	// Models is the ordered evaluation list.
	Models []string `json:"models" yaml:"models" toml:"models" validate:"required,min=1,dive,required"`
	// FallbackModels is returned by discovery when the backend cannot be listed.
	FallbackModels []string `json:"fallback_models" yaml:"fallback_models" toml:"fallback_models"`

	ConnectTimeoutMS int `json:"connect_timeout_ms" yaml:"connect_timeout_ms" toml:"connect_timeout_ms" validate:"gte=0"`
	ListTimeoutMS    int `json:"list_timeout_ms" yaml:"list_timeout_ms" toml:"list_timeout_ms" validate:"gte=0"`
	LoadTimeoutMS    int `json:"load_timeout_ms" yaml:"load_timeout_ms" toml:"load_timeout_ms" validate:"gte=0"`
	InvokeTimeoutMS  int `json:"invoke_timeout_ms" yaml:"invoke_timeout_ms" toml:"invoke_timeout_ms" validate:"gte=0"`

	DiscoveryAttempts int `json:"discovery_attempts" yaml:"discovery_attempts" toml:"discovery_attempts" validate:"gte=0"`
	DiscoveryDelayMS  int `json:"discovery_delay_ms" yaml:"discovery_delay_ms" toml:"discovery_delay_ms" validate:"gte=0"`

	// Explicit-load runtime configuration.
	ContextLength int     `json:"context_length" yaml:"context_length" toml:"context_length" validate:"gte=0"`
	GPURatio      float64 `json:"gpu_ratio" yaml:"gpu_ratio" toml:"gpu_ratio" validate:"gte=0,lte=1"`

	// ProbeLoad lets a manual backend try its load endpoints once before
	// reporting that a manual switch is required.
	ProbeLoad bool `json:"probe_load" yaml:"probe_load" toml:"probe_load"`

	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens" validate:"gte=0"`
	// Temperature nil takes the default; 0 is greedy sampling.
	Temperature *float64 `json:"temperature" yaml:"temperature" toml:"temperature" validate:"omitempty,gte=0,lte=2"`
}

// ClassificationLabels are the default labels for classification mode.
type ClassificationLabels struct {
	Positive string `json:"positive" yaml:"positive" toml:"positive"`
	Negative string `json:"negative" yaml:"negative" toml:"negative"`
}

// CORS configuration (opt-in).
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
