package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vlmeval/internal/backend"
	"vlmeval/pkg/types"
)

// fakeAdapter is a lightweight in-memory adapter used for tests.
type fakeAdapter struct {
	kind    backend.Kind
	caps    types.BackendCapabilities
	active  types.ModelIdentifier
	listed  []types.ModelIdentifier
	listErr error
	loadErr map[types.ModelIdentifier]error
	answers map[types.ModelIdentifier]string
	// failing models return a connectivity failure from Invoke.
	failing map[types.ModelIdentifier]bool
	onInvoke func(ctx context.Context, model types.ModelIdentifier)

	mu       sync.Mutex
	invoked  []types.ModelIdentifier
	unloaded []types.ModelIdentifier
	ctxErrs  []error
}

func newManual(active types.ModelIdentifier) *fakeAdapter {
	return &fakeAdapter{kind: backend.KindManual, active: active, caps: types.BackendCapabilities{CanListActiveModels: true, RequiresManualSwitch: true}}
}

func newGateway() *fakeAdapter {
	return &fakeAdapter{kind: backend.KindGateway, caps: types.BackendCapabilities{AlwaysAvailable: true}}
}

func newExplicit() *fakeAdapter {
	return &fakeAdapter{kind: backend.KindExplicit, caps: types.BackendCapabilities{CanListActiveModels: true, CanExplicitlyLoad: true, CanExplicitlyUnload: true}}
}

func (f *fakeAdapter) Kind() backend.Kind                      { return f.kind }
func (f *fakeAdapter) Capabilities() types.BackendCapabilities { return f.caps }
func (f *fakeAdapter) BaseURL() string                         { return "http://fake" }

func (f *fakeAdapter) ListModels(context.Context) ([]types.ModelIdentifier, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listed, nil
}

func (f *fakeAdapter) CurrentlyActive(context.Context) (types.ModelIdentifier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, nil
}

func (f *fakeAdapter) EnsureActive(_ context.Context, model types.ModelIdentifier) backend.Readiness {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.caps.AlwaysAvailable:
		return backend.Readiness{State: backend.AlreadyActive}
	case f.caps.CanExplicitlyLoad:
		if err := f.loadErr[model]; err != nil {
			return backend.Readiness{State: backend.Unsupported, Reason: err.Error(), ErrKind: types.ErrModelUnavailable}
		}
		f.active = model
		return backend.Readiness{State: backend.Activated, Current: model}
	default:
		if f.active == model {
			return backend.Readiness{State: backend.AlreadyActive, Current: model}
		}
		return backend.Readiness{State: backend.Unsupported, Reason: "manual switch required", Current: f.active, ErrKind: types.ErrModelUnavailable}
	}
}

func (f *fakeAdapter) Invoke(ctx context.Context, req types.InferenceRequest) types.InferenceResult {
	if f.onInvoke != nil {
		f.onInvoke(ctx, req.Model)
	}
	f.mu.Lock()
	f.invoked = append(f.invoked, req.Model)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()
	if f.failing[req.Model] {
		return types.NewFailure(req.Image.Name, req.Model, types.Failure{Reason: types.ErrConnectivity, Message: "connection refused"})
	}
	answer, ok := f.answers[req.Model]
	if !ok {
		answer = "Cat"
	}
	total := 100
	return types.NewSuccess(req.Image.Name, req.Model, types.Success{Entity: answer, ProcessingTimeSeconds: 1.5, TotalTokens: &total})
}

func (f *fakeAdapter) Unload(_ context.Context, model types.ModelIdentifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloaded = append(f.unloaded, model)
	if f.active == model {
		f.active = ""
	}
	return nil
}

func (f *fakeAdapter) invokedModels() []types.ModelIdentifier {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.ModelIdentifier(nil), f.invoked...)
}

func (f *fakeAdapter) unloadedModels() []types.ModelIdentifier {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.ModelIdentifier(nil), f.unloaded...)
}

var errLoad = errors.New("insufficient memory")

// newTestManager builds a manager whose settle pauses are counted, not slept.
func newTestManager(a backend.Adapter, models ...types.ModelIdentifier) (*Manager, *int) {
	sleeps := 0
	m := NewWithConfig(ManagerConfig{
		Adapter: a,
		Models:  models,
		Labels:  types.ClassificationLabels{Positive: "Airplane", Negative: "Not airplane"},
		Sleep:   func(context.Context, time.Duration) { sleeps++ },
	})
	return m, &sleeps
}

func testImage(name string) types.Image {
	return types.Image{Name: name, Ext: "jpg", Data: []byte("jpeg-bytes")}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
