package backend

import (
	"context"

	"vlmeval/pkg/types"
)

// Kind names a backend variant.
type Kind string

const (
	KindManual   Kind = "manual"
	KindGateway  Kind = "gateway"
	KindExplicit Kind = "explicit"
)

// Adapter hides one backend's discovery, activation and invocation semantics.
// Implementations must not return Go errors from Invoke: every failure is
// reported as a Failure result.
type Adapter interface {
	Kind() Kind
	Capabilities() types.BackendCapabilities
	// BaseURL is informational (status pages, logs).
	BaseURL() string
	// ListModels returns the vision-capable models the backend knows about.
	ListModels(ctx context.Context) ([]types.ModelIdentifier, error)
	// CurrentlyActive returns the resident model, "" when none. Computed fresh per call.
	CurrentlyActive(ctx context.Context) (types.ModelIdentifier, error)
	EnsureActive(ctx context.Context, model types.ModelIdentifier) Readiness
	Invoke(ctx context.Context, req types.InferenceRequest) types.InferenceResult
	// Unload releases a model the adapter loaded itself. No-op where unsupported.
	Unload(ctx context.Context, model types.ModelIdentifier) error
}

// ReadinessState is the outcome of an activation attempt.
type ReadinessState int

const (
	AlreadyActive ReadinessState = iota
	Activated
	Unsupported
)

func (s ReadinessState) String() string {
	switch s {
	case AlreadyActive:
		return "already_active"
	case Activated:
		return "activated"
	default:
		return "unsupported"
	}
}

// Readiness reports whether inference can proceed for a model.
type Readiness struct {
	State ReadinessState
	// Reason explains an Unsupported state.
	Reason string
	// Current is the model resident on the backend when known.
	Current types.ModelIdentifier
	// ErrKind classifies an Unsupported state.
	ErrKind types.ErrorKind
}

// Ready reports whether inference may proceed.
func (r Readiness) Ready() bool { return r.State != Unsupported }

func unsupported(kind types.ErrorKind, current, reason string) Readiness {
	return Readiness{State: Unsupported, Reason: reason, Current: current, ErrKind: kind}
}
