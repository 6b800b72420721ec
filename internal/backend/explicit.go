package backend

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"vlmeval/pkg/types"
)

// ExplicitLoadAdapter drives a server that creates and destroys model
// instances on request. Each load returns an instance identifier which is
// used for invocation and unload.
type ExplicitLoadAdapter struct {
	ep            endpoint
	listTimeout   time.Duration
	loadTimeout   time.Duration
	invokeTimeout time.Duration
	contextLength int
	gpuRatio      float64
	gen           Generation
	log           zerolog.Logger

	mu        sync.Mutex
	instances map[types.ModelIdentifier]string
	lastModel types.ModelIdentifier
}

// NewExplicitLoadAdapter constructs the SDK-managed adapter.
func NewExplicitLoadAdapter(o Options) *ExplicitLoadAdapter {
	ctxLen := o.ContextLength
	if ctxLen <= 0 {
		ctxLen = 8192
	}
	gpu := o.GPURatio
	if gpu <= 0 {
		gpu = 1.0
	}
	return &ExplicitLoadAdapter{
		ep:            o.endpoint(),
		listTimeout:   orDefault(o.ListTimeout, 5*time.Second),
		loadTimeout:   orDefault(o.LoadTimeout, 30*time.Second),
		invokeTimeout: orDefault(o.InvokeTimeout, 90*time.Second),
		contextLength: ctxLen,
		gpuRatio:      gpu,
		gen:           o.generation(),
		log:           o.logger(),
		instances:     make(map[types.ModelIdentifier]string),
	}
}

func (a *ExplicitLoadAdapter) Kind() Kind      { return KindExplicit }
func (a *ExplicitLoadAdapter) BaseURL() string { return a.ep.baseURL }

func (a *ExplicitLoadAdapter) Capabilities() types.BackendCapabilities {
	return types.BackendCapabilities{CanListActiveModels: true, CanExplicitlyLoad: true, CanExplicitlyUnload: true}
}

type loadRequest struct {
	Model  string     `json:"model"`
	Config loadConfig `json:"config"`
}

type loadConfig struct {
	ContextLength int       `json:"contextLength"`
	GPU           gpuConfig `json:"gpu"`
}

type gpuConfig struct {
	Ratio float64 `json:"ratio"`
}

type unloadRequest struct {
	InstanceID string `json:"instance_id"`
}

func (a *ExplicitLoadAdapter) ListModels(ctx context.Context) ([]types.ModelIdentifier, error) {
	body, err := a.ep.do(ctx, http.MethodGet, "/api/v1/models", nil, a.listTimeout)
	if err != nil {
		return nil, err
	}
	entries, err := parseModelList(body)
	if err != nil {
		return nil, err
	}
	return visionIDs(entries), nil
}

// CurrentlyActive asks the server for its loaded instances and falls back to
// the most recently created instance when the server has no such endpoint.
func (a *ExplicitLoadAdapter) CurrentlyActive(ctx context.Context) (types.ModelIdentifier, error) {
	body, err := a.ep.do(ctx, http.MethodGet, "/api/v1/models/loaded", nil, a.listTimeout)
	if err != nil {
		if isNotFound(err) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return a.lastModel, nil
		}
		return "", err
	}
	entries, err := parseModelList(body)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}
	return entries[0].ID, nil
}

// EnsureActive always creates a fresh instance; reloading an already resident
// model is acceptable.
func (a *ExplicitLoadAdapter) EnsureActive(ctx context.Context, model types.ModelIdentifier) Readiness {
	req := loadRequest{Model: model, Config: loadConfig{ContextLength: a.contextLength, GPU: gpuConfig{Ratio: a.gpuRatio}}}
	body, err := a.ep.do(ctx, http.MethodPost, "/api/v1/models/load", req, a.loadTimeout)
	if err != nil {
		a.log.Warn().Err(err).Str("model", model).Msg("model load failed")
		return unsupported(types.ErrModelUnavailable, "", fmt.Sprintf("load %s: %v", model, err))
	}
	id := instanceID(body, model)
	a.mu.Lock()
	a.instances[model] = id
	a.lastModel = model
	a.mu.Unlock()
	a.log.Debug().Str("model", model).Str("instance", id).Msg("model instance created")
	return Readiness{State: Activated, Current: model}
}

func instanceID(body []byte, model types.ModelIdentifier) string {
	if gjson.ValidBytes(body) {
		for _, k := range []string{"instance_id", "identifier", "id"} {
			if v := gjson.GetBytes(body, k); v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
	}
	return model
}

// instance returns the live instance id for model, or model itself.
func (a *ExplicitLoadAdapter) instance(model types.ModelIdentifier) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.instances[model]; ok {
		return id
	}
	return model
}

func (a *ExplicitLoadAdapter) Invoke(ctx context.Context, req types.InferenceRequest) types.InferenceResult {
	return invokeChat(ctx, a.ep, "/v1/chat/completions", req, a.instance(req.Model), a.gen, a.invokeTimeout)
}

func (a *ExplicitLoadAdapter) Unload(ctx context.Context, model types.ModelIdentifier) error {
	a.mu.Lock()
	id, ok := a.instances[model]
	a.mu.Unlock()
	if !ok {
		return nil
	}
	if _, err := a.ep.do(ctx, http.MethodPost, "/api/v1/models/unload", unloadRequest{InstanceID: id}, a.loadTimeout); err != nil {
		return fmt.Errorf("unload %s: %w", id, err)
	}
	a.mu.Lock()
	delete(a.instances, model)
	if a.lastModel == model {
		a.lastModel = ""
	}
	a.mu.Unlock()
	return nil
}
