package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"vlmeval/pkg/types"
)

// loadEndpoints are the paths different server versions have used for model loading.
var (
	loadEndpoints   = []string{"/v1/models/load", "/api/v0/models/load", "/models/load"}
	unloadEndpoints = []string{"/v1/models/unload", "/api/v0/models/unload"}
)

// ManualSwitchAdapter talks to a local server whose resident model must be
// switched by an operator. The server lists the resident model first.
type ManualSwitchAdapter struct {
	ep            endpoint
	listTimeout   time.Duration
	loadTimeout   time.Duration
	invokeTimeout time.Duration
	probeLoad     bool
	gen           Generation
	log           zerolog.Logger
}

// NewManualSwitchAdapter constructs the local manual-switch adapter.
func NewManualSwitchAdapter(o Options) *ManualSwitchAdapter {
	return &ManualSwitchAdapter{
		ep:            o.endpoint(),
		listTimeout:   orDefault(o.ListTimeout, 5*time.Second),
		loadTimeout:   orDefault(o.LoadTimeout, 30*time.Second),
		invokeTimeout: orDefault(o.InvokeTimeout, 60*time.Second),
		probeLoad:     o.ProbeLoad,
		gen:           o.generation(),
		log:           o.logger(),
	}
}

func (a *ManualSwitchAdapter) Kind() Kind      { return KindManual }
func (a *ManualSwitchAdapter) BaseURL() string { return a.ep.baseURL }

func (a *ManualSwitchAdapter) Capabilities() types.BackendCapabilities {
	return types.BackendCapabilities{CanListActiveModels: true, RequiresManualSwitch: true}
}

func (a *ManualSwitchAdapter) listEntries(ctx context.Context) ([]modelEntry, error) {
	body, err := a.ep.do(ctx, http.MethodGet, "/v1/models", nil, a.listTimeout)
	if err != nil {
		return nil, err
	}
	return parseModelList(body)
}

func (a *ManualSwitchAdapter) ListModels(ctx context.Context) ([]types.ModelIdentifier, error) {
	entries, err := a.listEntries(ctx)
	if err != nil {
		return nil, err
	}
	return visionIDs(entries), nil
}

// CurrentlyActive returns the first listed model.
func (a *ManualSwitchAdapter) CurrentlyActive(ctx context.Context) (types.ModelIdentifier, error) {
	entries, err := a.listEntries(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}
	return entries[0].ID, nil
}

func (a *ManualSwitchAdapter) EnsureActive(ctx context.Context, model types.ModelIdentifier) Readiness {
	current, err := a.CurrentlyActive(ctx)
	if err != nil {
		return unsupported(types.ErrConnectivity, "", "cannot query the active model: "+err.Error())
	}
	if current == model {
		return Readiness{State: AlreadyActive, Current: current}
	}
	if a.probeLoad && a.tryLoad(ctx, model) {
		// The load call answered 2xx; trust only what the listing says now.
		if now, err := a.CurrentlyActive(ctx); err == nil && now == model {
			return Readiness{State: Activated, Current: now}
		}
	}
	return unsupported(types.ErrModelUnavailable, current, "manual switch required")
}

// tryLoad probes each known load endpoint once. 404 means "not here".
func (a *ManualSwitchAdapter) tryLoad(ctx context.Context, model types.ModelIdentifier) bool {
	for _, path := range loadEndpoints {
		_, err := a.ep.do(ctx, http.MethodPost, path, map[string]string{"model": model}, a.loadTimeout)
		if err == nil {
			a.log.Info().Str("model", model).Str("endpoint", path).Msg("load endpoint accepted request")
			return true
		}
		if !isNotFound(err) {
			a.log.Debug().Err(err).Str("endpoint", path).Msg("load endpoint failed")
		}
	}
	a.log.Info().Str("model", model).Msg("load API not supported; manual switch required")
	return false
}

func (a *ManualSwitchAdapter) Invoke(ctx context.Context, req types.InferenceRequest) types.InferenceResult {
	return invokeChat(ctx, a.ep, "/v1/chat/completions", req, req.Model, a.gen, a.invokeTimeout)
}

// Unload probes the known unload endpoints. A server without any of them is
// not an error: the operator owns the resident model.
func (a *ManualSwitchAdapter) Unload(ctx context.Context, model types.ModelIdentifier) error {
	var lastErr error
	for _, path := range unloadEndpoints {
		_, err := a.ep.do(ctx, http.MethodPost, path, map[string]string{"model": model}, a.loadTimeout)
		if err == nil {
			return nil
		}
		if !isNotFound(err) {
			lastErr = err
		}
	}
	return lastErr
}
