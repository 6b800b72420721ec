// Package cli implements the vlmeval command line: serve the HTTP API, run a
// directory evaluation, or inspect backend models.
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"vlmeval/internal/backend"
	"vlmeval/internal/config"
	"vlmeval/internal/logging"
	"vlmeval/internal/manager"
	"vlmeval/pkg/types"
)

// Flags are the persistent flags shared by every command. Non-empty values
// override the config file and the environment.
type Flags struct {
	ConfigPath string
	EnvFile    string
	Addr       string
	Backend    string
	BackendURL string
	Models     []string
	LogLevel   string
	LogFile    string
	// SettleMS overrides settle_delay_ms when >= -1.
	SettleMS int
}

// runtime is everything a command needs once configuration is resolved.
type runtime struct {
	cfg     config.Config
	log     zerolog.Logger
	adapter backend.Adapter
	mgr     *manager.Manager
	closer  io.Closer
}

func (rt *runtime) Close() error {
	if rt.closer == nil {
		return nil
	}
	return rt.closer.Close()
}

// loadConfig resolves file, environment and flags, in that order, then
// applies defaults and validates.
func loadConfig(f Flags) (config.Config, error) {
	var cfg config.Config
	if f.ConfigPath != "" {
		c, err := config.Load(f.ConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if err := config.ApplyEnv(&cfg, f.EnvFile); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}
	if f.Addr != "" {
		cfg.Addr = f.Addr
	}
	if f.Backend != "" {
		cfg.Backend.Kind = f.Backend
	}
	if f.BackendURL != "" {
		cfg.Backend.BaseURL = f.BackendURL
	}
	if len(f.Models) > 0 {
		cfg.Backend.Models = append([]string(nil), f.Models...)
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.LogFile = f.LogFile
	}
	if f.SettleMS >= -1 {
		cfg.SettleDelayMS = f.SettleMS
	}
	config.ApplyDefaults(&cfg)
	if err := config.Validate(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setup builds logger, adapter and manager from the resolved configuration.
func setup(f Flags, stderr io.Writer) (*runtime, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Stderr: stderr})
	if err != nil {
		return nil, err
	}
	adapter, err := backend.New(cfg.Backend, &log)
	if err != nil {
		closer.Close()
		return nil, err
	}
	settle := time.Duration(cfg.SettleDelayMS) * time.Millisecond
	if cfg.SettleDelayMS < 0 {
		settle = -1
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Adapter:        adapter,
		Models:         cfg.Backend.Models,
		FallbackModels: cfg.Backend.FallbackModels,
		Discovery:      backend.DiscoveryConfig(cfg.Backend),
		SettleDelay:    settle,
		ValidateModels: cfg.ValidateModels,
		Labels:         types.ClassificationLabels{Positive: cfg.Labels.Positive, Negative: cfg.Labels.Negative},
		Logger:         &log,
	})
	log.Debug().Str("backend", cfg.Backend.Kind).Str("url", cfg.Backend.BaseURL).Strs("models", cfg.Backend.Models).Msg("configured")
	return &runtime{cfg: cfg, log: log, adapter: adapter, mgr: mgr, closer: closer}, nil
}
