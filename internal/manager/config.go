package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vlmeval/internal/backend"
	"vlmeval/internal/retry"
	"vlmeval/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultSettleDelay = time.Second
	defaultMaxWait     = 10 * time.Minute
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Adapter backend.Adapter
	// Models is the default evaluation list, in order.
	Models []types.ModelIdentifier
	// FallbackModels is reported when discovery fails. Defaults to Models.
	FallbackModels []types.ModelIdentifier
	Discovery      retry.Config
	// SettleDelay is the pause after every model turn. Negative disables it.
	SettleDelay time.Duration
	// ValidateModels records models missing from discovery as unsupported.
	ValidateModels bool
	// Labels are used when a classification request carries none.
	Labels types.ClassificationLabels
	// MaxWait bounds how long a request waits for the evaluation slot.
	MaxWait   time.Duration
	Publisher EventPublisher
	Logger    *zerolog.Logger
	// Sleep replaces the settle pause (tests).
	Sleep func(ctx context.Context, d time.Duration)
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		adapter:   cfg.Adapter,
		models:    append([]types.ModelIdentifier(nil), cfg.Models...),
		fallback:  append([]types.ModelIdentifier(nil), cfg.FallbackModels...),
		discovery: cfg.Discovery,
		validate:  cfg.ValidateModels,
		labels:    cfg.Labels,
		slot:      make(chan struct{}, 1),
		publisher: noopPublisher{},
		log:       zerolog.Nop(),
		sleep:     sleepCtx,
		startTime: time.Now(),
	}
	if len(m.fallback) == 0 {
		m.fallback = append([]types.ModelIdentifier(nil), m.models...)
	}
	if m.discovery.Attempts <= 0 {
		m.discovery = retry.DefaultConfig()
	}
	switch {
	case cfg.SettleDelay < 0:
		m.settle = 0
	case cfg.SettleDelay == 0:
		m.settle = defaultSettleDelay
	default:
		m.settle = cfg.SettleDelay
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.Publisher != nil {
		m.publisher = cfg.Publisher
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	}
	if cfg.Sleep != nil {
		m.sleep = cfg.Sleep
	}
	return m
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
