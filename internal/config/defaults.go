package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Backend kinds.
const (
	KindManual   = "manual"
	KindGateway  = "gateway"
	KindExplicit = "explicit"
)

const (
	defaultAddr        = ":5001"
	defaultLocalURL    = "http://127.0.0.1:1234"
	defaultSettleMS    = 1000
	defaultMaxUploadMB = 16
)

// DefaultModels is the evaluation pair used when nothing is configured.
var DefaultModels = []string{"qwen/qwen3-vl-4b", "google/gemma-3-4b"}

// ApplyDefaults fills unspecified fields. Timeouts depend on the backend kind:
// remote gateways get longer invocation budgets than local servers.
func ApplyDefaults(cfg *Config) {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SettleDelayMS == 0 {
		cfg.SettleDelayMS = defaultSettleMS
	}
	if cfg.MaxUploadMB == 0 {
		cfg.MaxUploadMB = defaultMaxUploadMB
	}
	if cfg.Labels.Positive == "" {
		cfg.Labels.Positive = "Airplane"
	}
	if cfg.Labels.Negative == "" {
		cfg.Labels.Negative = "Not airplane"
	}

	b := &cfg.Backend
	if b.Kind == "" {
		b.Kind = KindManual
	}
	b.Kind = strings.ToLower(b.Kind)
	if b.BaseURL == "" && b.Kind != KindGateway {
		b.BaseURL = defaultLocalURL
	}
	b.BaseURL = strings.TrimRight(b.BaseURL, "/")
	if len(b.Models) == 0 {
		b.Models = append([]string(nil), DefaultModels...)
	}
	if len(b.FallbackModels) == 0 {
		b.FallbackModels = append([]string(nil), b.Models...)
	}
	if b.ConnectTimeoutMS == 0 {
		b.ConnectTimeoutMS = 5000
	}
	if b.ListTimeoutMS == 0 {
		b.ListTimeoutMS = 5000
	}
	if b.LoadTimeoutMS == 0 {
		b.LoadTimeoutMS = 30000
	}
	if b.InvokeTimeoutMS == 0 {
		switch b.Kind {
		case KindGateway:
			b.InvokeTimeoutMS = 120000
		case KindExplicit:
			b.InvokeTimeoutMS = 90000
		default:
			b.InvokeTimeoutMS = 60000
		}
	}
	if b.DiscoveryAttempts == 0 {
		b.DiscoveryAttempts = 3
	}
	if b.DiscoveryDelayMS == 0 {
		b.DiscoveryDelayMS = 2000
	}
	if b.ContextLength == 0 {
		b.ContextLength = 8192
	}
	if b.GPURatio == 0 {
		b.GPURatio = 1.0
	}
	if b.MaxTokens == 0 {
		b.MaxTokens = 30
	}
	if b.Temperature == nil {
		t := 0.2
		b.Temperature = &t
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a defaulted configuration.
func Validate(cfg Config) error {
	return validate.Struct(cfg)
}

// Environment overrides. Secrets such as the gateway key are expected here
// rather than in config files.
const (
	EnvAddr       = "VLMEVAL_ADDR"
	EnvBackendURL = "VLMEVAL_BACKEND_URL"
	EnvBackend    = "VLMEVAL_BACKEND"
	EnvAPIKey     = "VLMEVAL_API_KEY"
	EnvLogLevel   = "VLMEVAL_LOG_LEVEL"
)

// ApplyEnv loads an optional .env file and applies environment overrides.
// A missing .env file is not an error.
func ApplyEnv(cfg *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend.Kind = v
	}
	if v := os.Getenv(EnvBackendURL); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return nil
}
