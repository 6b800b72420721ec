package backend

import (
	"context"
	"net/http"
	"time"

	"vlmeval/pkg/types"
)

// AlwaysAvailableAdapter talks to a corporate gateway where every model is
// served at all times. Activation is not a real constraint there.
type AlwaysAvailableAdapter struct {
	ep            endpoint
	models        []types.ModelIdentifier
	listTimeout   time.Duration
	invokeTimeout time.Duration
	gen           Generation
}

// NewAlwaysAvailableAdapter constructs the gateway adapter. The base URL is
// expected to include the API prefix (e.g. https://gw.example/v1).
func NewAlwaysAvailableAdapter(o Options) *AlwaysAvailableAdapter {
	return &AlwaysAvailableAdapter{
		ep:            o.endpoint(),
		models:        append([]types.ModelIdentifier(nil), o.Models...),
		listTimeout:   orDefault(o.ListTimeout, 10*time.Second),
		invokeTimeout: orDefault(o.InvokeTimeout, 120*time.Second),
		gen:           o.generation(),
	}
}

func (a *AlwaysAvailableAdapter) Kind() Kind      { return KindGateway }
func (a *AlwaysAvailableAdapter) BaseURL() string { return a.ep.baseURL }

func (a *AlwaysAvailableAdapter) Capabilities() types.BackendCapabilities {
	return types.BackendCapabilities{AlwaysAvailable: true}
}

func (a *AlwaysAvailableAdapter) ListModels(ctx context.Context) ([]types.ModelIdentifier, error) {
	body, err := a.ep.do(ctx, http.MethodGet, "/models", nil, a.listTimeout)
	if err != nil {
		return nil, err
	}
	entries, err := parseModelList(body)
	if err != nil {
		return nil, err
	}
	return visionIDs(entries), nil
}

// CurrentlyActive returns the first configured model.
func (a *AlwaysAvailableAdapter) CurrentlyActive(context.Context) (types.ModelIdentifier, error) {
	if len(a.models) == 0 {
		return "", nil
	}
	return a.models[0], nil
}

func (a *AlwaysAvailableAdapter) EnsureActive(ctx context.Context, _ types.ModelIdentifier) Readiness {
	current, _ := a.CurrentlyActive(ctx)
	return Readiness{State: AlreadyActive, Current: current}
}

func (a *AlwaysAvailableAdapter) Invoke(ctx context.Context, req types.InferenceRequest) types.InferenceResult {
	return invokeChat(ctx, a.ep, "/chat/completions", req, req.Model, a.gen, a.invokeTimeout)
}

func (a *AlwaysAvailableAdapter) Unload(context.Context, types.ModelIdentifier) error { return nil }
