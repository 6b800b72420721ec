package manager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vlmeval/internal/backend"
	"vlmeval/internal/compare"
	"vlmeval/pkg/types"
)

// Request describes one image evaluation.
type Request struct {
	Image types.Image
	// Models is evaluated in order. Empty means the configured list.
	Models []types.ModelIdentifier
	Mode   types.PromptMode
	// Labels default to the configured labels in classification mode.
	Labels *types.ClassificationLabels
}

// BatchRequest describes a sequential evaluation of several images.
type BatchRequest struct {
	Images []types.Image
	Models []types.ModelIdentifier
	Mode   types.PromptMode
	Labels *types.ClassificationLabels
	// Truth maps image name to "positive" or "negative". Classification only.
	Truth map[string]string
	// OnEvaluation is called after each image, in order.
	OnEvaluation func(done, total int, ev types.Evaluation)
}

// Evaluate runs one image through every requested model in order.
//
// Once started the loop ignores caller cancellation. Per-call timeouts still apply.
func (m *Manager) Evaluate(ctx context.Context, req Request) (types.Evaluation, error) {
	models, labels, err := m.normalize(req.Models, req.Mode, req.Labels)
	if err != nil {
		return types.Evaluation{}, err
	}
	if len(req.Image.Data) == 0 {
		return types.Evaluation{}, ErrInvalidRequest("image is empty")
	}
	release, err := m.acquire(ctx)
	if err != nil {
		return types.Evaluation{}, err
	}
	defer release()

	run := context.WithoutCancel(ctx)
	known := m.knownModels(run)
	ev := m.evaluate(run, "", uuid.NewString(), req.Image, models, req.Mode, labels, known)
	return ev, nil
}

// EvaluateModel evaluates one image with a single configured model.
func (m *Manager) EvaluateModel(ctx context.Context, img types.Image, model types.ModelIdentifier, mode types.PromptMode, labels *types.ClassificationLabels) (types.Evaluation, error) {
	found := false
	for _, id := range m.models {
		if id == model {
			found = true
			break
		}
	}
	if !found {
		return types.Evaluation{}, ErrModelNotFound(model)
	}
	return m.Evaluate(ctx, Request{Image: img, Models: []types.ModelIdentifier{model}, Mode: mode, Labels: labels})
}

// EvaluateBatch evaluates images one after another and derives the batch report.
// The evaluation slot is held for the whole batch.
func (m *Manager) EvaluateBatch(ctx context.Context, req BatchRequest) (types.BatchEvaluation, error) {
	models, labels, err := m.normalize(req.Models, req.Mode, req.Labels)
	if err != nil {
		return types.BatchEvaluation{}, err
	}
	if len(req.Images) == 0 {
		return types.BatchEvaluation{}, ErrInvalidRequest("no images")
	}
	seen := make(map[string]struct{}, len(req.Images))
	for _, img := range req.Images {
		if len(img.Data) == 0 {
			return types.BatchEvaluation{}, ErrInvalidRequest("image " + img.Name + " is empty")
		}
		if _, dup := seen[img.Name]; dup {
			return types.BatchEvaluation{}, ErrInvalidRequest("duplicate image name " + img.Name)
		}
		seen[img.Name] = struct{}{}
	}

	release, err := m.acquire(ctx)
	if err != nil {
		return types.BatchEvaluation{}, err
	}
	defer release()

	run := context.WithoutCancel(ctx)
	known := m.knownModels(run)
	out := types.BatchEvaluation{
		ID:          uuid.NewString(),
		Mode:        req.Mode,
		Labels:      labels,
		Evaluations: make([]types.Evaluation, 0, len(req.Images)),
	}
	for i, img := range req.Images {
		ev := m.evaluate(run, out.ID, uuid.NewString(), img, models, req.Mode, labels, known)
		out.Evaluations = append(out.Evaluations, ev)
		out.Batch.Append(ev.Results...)
		if ev.Success {
			out.Success = true
		}
		if req.OnEvaluation != nil {
			req.OnEvaluation(i+1, len(req.Images), ev)
		}
	}

	in := compare.BatchInput{Batch: out.Batch, Models: models}
	if req.Mode == types.ModeClassification {
		in.Labels, in.Truth = labels, req.Truth
	}
	out.Report = compare.Batch(in)
	return out, nil
}

// normalize resolves defaults and rejects unusable requests.
func (m *Manager) normalize(models []types.ModelIdentifier, mode types.PromptMode, labels *types.ClassificationLabels) ([]types.ModelIdentifier, *types.ClassificationLabels, error) {
	if m.adapter == nil {
		return nil, nil, ErrInvalidRequest("no backend configured")
	}
	if len(models) == 0 {
		models = m.models
	}
	if len(models) == 0 {
		return nil, nil, ErrInvalidRequest("no models to evaluate")
	}
	for _, id := range models {
		if strings.TrimSpace(id) == "" {
			return nil, nil, ErrInvalidRequest("empty model id")
		}
	}
	if mode != types.ModeClassification {
		return models, nil, nil
	}
	if labels == nil {
		l := m.labels
		labels = &l
	}
	if strings.TrimSpace(labels.Positive) == "" || strings.TrimSpace(labels.Negative) == "" {
		return nil, nil, ErrInvalidRequest("classification needs a positive and a negative label")
	}
	return models, labels, nil
}

// knownModels returns the discovered model set when validation is enabled and
// discovery succeeded, nil otherwise.
func (m *Manager) knownModels(ctx context.Context) map[types.ModelIdentifier]struct{} {
	if !m.validate {
		return nil
	}
	d := backend.Discover(ctx, m.adapter, m.discovery, m.fallback, m.log)
	if d.Fallback {
		m.publisher.Publish(Event{Name: EventDiscoveryFallback, Fields: map[string]any{"error": errString(d.Err)}})
		return nil
	}
	known := make(map[types.ModelIdentifier]struct{}, len(d.Models))
	for _, id := range d.Models {
		known[id] = struct{}{}
	}
	return known
}

func (m *Manager) evaluate(ctx context.Context, batchID, evalID string, img types.Image, models []types.ModelIdentifier, mode types.PromptMode, labels *types.ClassificationLabels, known map[types.ModelIdentifier]struct{}) types.Evaluation {
	log := m.log.With().Str("eval_id", evalID).Str("image", img.Name).Logger()
	if batchID != "" {
		log = log.With().Str("batch_id", batchID).Logger()
	}
	m.publisher.Publish(Event{Name: EventEvalStart, EvalID: evalID, Fields: map[string]any{"image": img.Name, "models": len(models)}})
	log.Info().Strs("models", models).Str("mode", string(mode)).Msg("evaluation started")

	ev := types.Evaluation{ID: evalID, Image: img.Name, Results: make([]types.InferenceResult, 0, len(models))}
	for _, model := range models {
		r := m.turn(ctx, evalID, img, model, mode, labels, known)
		ev.Results = append(ev.Results, r)
		m.invocations.Add(1)
		observeResult(m.metricLabel(model, known), r)
		if r.OK() {
			ev.ModelsAnalyzed++
			log.Info().Str("model", model).Str("answer", r.Success.Entity).Float64("seconds", r.Success.ProcessingTimeSeconds).Msg("model answered")
		} else {
			ev.ModelsFailed++
			m.failures.Add(1)
			log.Warn().Str("model", model).Str("reason", string(r.Failure.Reason)).Msg(r.Failure.Message)
		}
		m.sleep(ctx, m.settle)
	}

	ev.Success = ev.ModelsAnalyzed > 0
	if ev.Success {
		ev.Comparison = compare.Pairwise(ev.Results)
	} else {
		ev.Error = "no model produced an answer"
	}
	m.evaluations.Add(1)
	m.lastEval.Store(time.Now().Unix())
	observeEvaluation(ev.Success)
	m.publisher.Publish(Event{Name: EventEvalDone, EvalID: evalID, Fields: map[string]any{"success": ev.Success, "analyzed": ev.ModelsAnalyzed, "failed": ev.ModelsFailed}})
	return ev
}

// metricLabel keeps caller-supplied model ids out of metric labels unless the
// model is configured or was discovered on the backend.
func (m *Manager) metricLabel(model types.ModelIdentifier, known map[types.ModelIdentifier]struct{}) string {
	if _, ok := known[model]; ok {
		return model
	}
	for _, id := range m.models {
		if id == model {
			return model
		}
	}
	return otherModelLabel
}

// turn is one model's share of an evaluation: reconcile, invoke, release.
func (m *Manager) turn(ctx context.Context, evalID string, img types.Image, model types.ModelIdentifier, mode types.PromptMode, labels *types.ClassificationLabels, known map[types.ModelIdentifier]struct{}) types.InferenceResult {
	if known != nil {
		if _, ok := known[model]; !ok {
			return types.NewFailure(img.Name, model, types.Failure{
				Reason:  types.ErrModelUnsupported,
				Message: fmt.Sprintf("model %s is not offered by the backend", model),
			})
		}
	}

	p := Prepare(ctx, m.adapter, model)
	if !p.Ready() {
		m.publisher.Publish(Event{Name: EventPrepareUnsupported, EvalID: evalID, Model: model, Fields: map[string]any{
			"reason": string(p.Failure.Reason), "current": p.Failure.CurrentlyLoaded,
		}})
		return types.NewFailure(img.Name, model, *p.Failure)
	}

	res := m.adapter.Invoke(ctx, types.InferenceRequest{Image: img, Model: model, Mode: mode, Labels: labels})
	res.Image, res.Model = img.Name, model
	m.publisher.Publish(Event{Name: EventInvokeDone, EvalID: evalID, Model: model, Fields: map[string]any{"ok": res.OK()}})

	if p.Readiness.State == backend.Activated && m.adapter.Capabilities().CanExplicitlyUnload {
		if err := m.adapter.Unload(ctx, model); err != nil {
			m.log.Warn().Err(err).Str("model", model).Msg("unload failed")
			m.publisher.Publish(Event{Name: EventUnloadError, EvalID: evalID, Model: model, Fields: map[string]any{"error": err.Error()}})
		}
	}
	return res
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
