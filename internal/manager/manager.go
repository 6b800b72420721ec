package manager

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"vlmeval/internal/backend"
	"vlmeval/internal/retry"
	"vlmeval/pkg/types"
)

type Manager struct {
	adapter   backend.Adapter
	models    []types.ModelIdentifier
	fallback  []types.ModelIdentifier
	discovery retry.Config
	settle    time.Duration
	validate  bool
	labels    types.ClassificationLabels

	// slot holds at most one running evaluation.
	slot    chan struct{}
	maxWait time.Duration

	publisher EventPublisher
	log       zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration)

	evaluations atomic.Uint64
	invocations atomic.Uint64
	failures    atomic.Uint64
	lastEval    atomic.Int64
	startTime   time.Time
}

// New builds a Manager over one adapter with the default evaluation list.
func New(adapter backend.Adapter, models []types.ModelIdentifier) *Manager {
	return NewWithConfig(ManagerConfig{Adapter: adapter, Models: models})
}

// SetPublisher installs an EventPublisher. Nil restores the noop publisher.
func (m *Manager) SetPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

// SetLogger installs a zerolog logger for evaluation logs.
func (m *Manager) SetLogger(l zerolog.Logger) { m.log = l }

// Adapter returns the backend adapter.
func (m *Manager) Adapter() backend.Adapter { return m.adapter }

// Models returns a copy of the configured evaluation list.
func (m *Manager) Models() []types.ModelIdentifier {
	return append([]types.ModelIdentifier(nil), m.models...)
}

// DefaultLabels returns the configured classification labels.
func (m *Manager) DefaultLabels() types.ClassificationLabels { return m.labels }

// Ready reports whether the manager can accept evaluations.
func (m *Manager) Ready() bool { return m.adapter != nil && len(m.models) > 0 }

// Busy reports whether an evaluation is running.
func (m *Manager) Busy() bool { return len(m.slot) > 0 }
