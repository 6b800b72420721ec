package manager

import (
	"context"
	"strings"
	"time"

	"vlmeval/internal/backend"
	"vlmeval/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	resp := types.StatusResponse{
		Models:             m.Models(),
		Busy:               m.Busy(),
		EvaluationsTotal:   m.evaluations.Load(),
		InvocationsTotal:   m.invocations.Load(),
		FailuresTotal:      m.failures.Load(),
		LastEvaluationUnix: m.lastEval.Load(),
		UptimeSeconds:      int64(time.Since(m.startTime).Seconds()),
	}
	if m.adapter != nil {
		resp.Backend = string(m.adapter.Kind())
		resp.BaseURL = m.adapter.BaseURL()
		resp.Capabilities = m.adapter.Capabilities()
	}
	return resp
}

// ListModels discovers the backend's vision models, falling back to the
// static list when the backend cannot be listed.
func (m *Manager) ListModels(ctx context.Context) types.ModelsResponse {
	d := backend.Discover(ctx, m.adapter, m.discovery, m.fallback, m.log)
	if d.Fallback {
		m.publisher.Publish(Event{Name: EventDiscoveryFallback, Fields: map[string]any{"error": errString(d.Err)}})
	}
	return types.ModelsResponse{Models: d.Models, Fallback: d.Fallback}
}

// ActiveModel reports the resident model and, for manual backends, what an
// operator has to do to switch it.
func (m *Manager) ActiveModel(ctx context.Context) (types.ActiveModelResponse, error) {
	cur, err := m.adapter.CurrentlyActive(ctx)
	if err != nil {
		return types.ActiveModelResponse{}, backendUnavailableError{err: err}
	}
	manual := m.adapter.Capabilities().RequiresManualSwitch
	resp := types.ActiveModelResponse{
		Success:                 true,
		ActiveModel:             cur,
		AvailableModels:         m.Models(),
		ManualSwitchingRequired: manual,
	}
	if cur != "" {
		resp.ActiveModelShort = types.ShortName(cur)
	}
	if manual {
		step2 := "Load the model you need"
		if cur != "" {
			step2 = "Unload the current model: " + cur
		}
		resp.Instructions = []string{
			"Open the backend's model manager",
			step2,
			"Load the required model from the list",
			"Return here and submit the image again",
		}
	}
	return resp, nil
}

// CheckModels reports which configured models the backend currently offers.
// On a manual backend "available" means listed; only the first listed model
// is resident.
func (m *Manager) CheckModels(ctx context.Context) (types.CheckModelsResponse, error) {
	listed, err := m.adapter.ListModels(ctx)
	if err != nil {
		return types.CheckModelsResponse{}, backendUnavailableError{err: err}
	}
	cur, _ := m.adapter.CurrentlyActive(ctx)
	caps := m.adapter.Capabilities()

	offered := make(map[types.ModelIdentifier]struct{}, len(listed))
	for _, id := range listed {
		offered[id] = struct{}{}
	}
	resp := types.CheckModelsResponse{
		Status:       "ok",
		CurrentModel: cur,
		TotalCount:   len(m.models),
		AutoSwitch:   caps.CanExplicitlyLoad || caps.AlwaysAvailable,
	}
	for _, id := range m.models {
		_, ok := offered[id]
		if caps.AlwaysAvailable {
			ok = true
		}
		loaded := ok && cur != "" && (cur == id || strings.Contains(cur, id))
		if caps.AlwaysAvailable {
			loaded = ok
		}
		resp.Models = append(resp.Models, types.ModelAvailability{
			Name:            id,
			ShortName:       types.ShortName(id),
			Available:       ok,
			CurrentlyLoaded: loaded,
		})
		if ok {
			resp.LoadedCount++
		}
	}
	resp.AllLoaded = resp.LoadedCount == resp.TotalCount
	switch {
	case resp.AllLoaded:
		resp.Note = "All configured models are available"
	case caps.RequiresManualSwitch:
		resp.Note = "Missing models must be loaded manually in the backend"
	default:
		resp.Note = "Missing models will be loaded on demand during evaluation"
	}
	return resp, nil
}
