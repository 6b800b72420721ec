package manager

import (
	"context"
	"fmt"

	"vlmeval/internal/backend"
	"vlmeval/pkg/types"
)

// Preparation is the reconciler's verdict for one model.
type Preparation struct {
	Readiness backend.Readiness
	// Failure is set when inference must not proceed.
	Failure *types.Failure
}

// Ready reports whether inference may proceed.
func (p Preparation) Ready() bool { return p.Failure == nil }

// Prepare reconciles the desired model with the backend's active model.
// It never returns an error: an unreachable or mismatched backend becomes a
// Failure carrying what an operator needs to fix it.
func Prepare(ctx context.Context, a backend.Adapter, desired types.ModelIdentifier) Preparation {
	r := a.EnsureActive(ctx, desired)
	if r.Ready() {
		return Preparation{Readiness: r}
	}
	kind := r.ErrKind
	if kind == "" {
		kind = types.ErrModelUnavailable
	}
	f := &types.Failure{Reason: kind, Message: r.Reason}
	if a.Capabilities().RequiresManualSwitch {
		f.RequiresManualSwitch = true
		f.CurrentlyLoaded = r.Current
		if kind == types.ErrModelUnavailable {
			f.Message, f.Instruction = manualSwitchText(desired, r.Current)
		}
	}
	return Preparation{Readiness: r, Failure: f}
}

// manualSwitchText names the desired and active model and the operator steps.
func manualSwitchText(desired, current types.ModelIdentifier) (msg, instruction string) {
	want := types.ShortName(desired)
	if current == "" {
		return fmt.Sprintf("Model %s is not active. No model is currently loaded", want),
			fmt.Sprintf("In the backend: load '%s' → retry", want)
	}
	cur := types.ShortName(current)
	return fmt.Sprintf("Model %s is not active. Currently loaded: %s", want, cur),
		fmt.Sprintf("In the backend: unload '%s' → load '%s' → retry", cur, want)
}
