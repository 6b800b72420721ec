package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vlmeval/internal/manager"
	"vlmeval/pkg/types"
)

// Service is the subset of *manager.Manager used by the HTTP layer.
type Service interface {
	ListModels(ctx context.Context) types.ModelsResponse
	CheckModels(ctx context.Context) (types.CheckModelsResponse, error)
	ActiveModel(ctx context.Context) (types.ActiveModelResponse, error)
	Status() types.StatusResponse
	Evaluate(ctx context.Context, req manager.Request) (types.Evaluation, error)
	EvaluateModel(ctx context.Context, img types.Image, model types.ModelIdentifier, mode types.PromptMode, labels *types.ClassificationLabels) (types.Evaluation, error)
	EvaluateBatch(ctx context.Context, req manager.BatchRequest) (types.BatchEvaluation, error)
	Ready() bool
}

// NewMux serves the evaluation API under /api. Probes and /metrics stay at the root.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: orDefault(corsAllowedOrigins, []string{"*"}),
			AllowedMethods: orDefault(corsAllowedMethods, []string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			AllowedHeaders: orDefault(corsAllowedHeaders, []string{"Content-Type", "X-Log-Level"}),
			MaxAge:         300,
		}))
	}
	r.Use(MetricsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := handlerContext(r)
			defer cancel()
			writeJSON(w, http.StatusOK, svc.ListModels(ctx))
		})

		r.Get("/check-models", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := handlerContext(r)
			defer cancel()
			resp, err := svc.CheckModels(ctx)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
		})

		r.Get("/active-model", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := handlerContext(r)
			defer cancel()
			resp, err := svc.ActiveModel(ctx)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, resp)
		})

		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Status())
		})

		r.Post("/analyze", instrumentAnalyze("analyze", analyzeHandler(svc)))
		r.Post("/analyze-single", instrumentAnalyze("analyze-single", analyzeSingleHandler(svc)))
		r.Post("/analyze-batch", instrumentAnalyze("analyze-batch", analyzeBatchHandler(svc)))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no models configured"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// analyzeHandler runs one image through the requested (or configured) models.
// An evaluation without any successful model is answered with 500 and the full body.
func analyzeHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		form, err := parseUpload(w, r, "image")
		if err != nil {
			logEnd(r, lvl, "analyze", writeServiceError(w, err), start, err)
			return
		}
		logStart(r, lvl, "analyze", form.models)

		ctx, cancel := handlerContext(r)
		defer cancel()
		ev, err := svc.Evaluate(ctx, manager.Request{
			Image:  form.images[0],
			Models: form.models,
			Mode:   form.mode,
			Labels: form.labels,
		})
		if err != nil {
			logEnd(r, lvl, "analyze", writeServiceError(w, err), start, err)
			return
		}
		status := http.StatusOK
		if !ev.Success {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, ev)
		logEnd(r, lvl, "analyze", status, start, evalError(ev))
	}
}

// analyzeSingleHandler evaluates exactly one model. A manual backend holding a
// different model answers 400 with the switch instruction in the body.
func analyzeSingleHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		form, err := parseUpload(w, r, "image")
		if err == nil && form.model == "" {
			err = badRequest("model is required")
		}
		if err != nil {
			logEnd(r, lvl, "analyze-single", writeServiceError(w, err), start, err)
			return
		}
		logStart(r, lvl, "analyze-single", []string{form.model})

		ctx, cancel := handlerContext(r)
		defer cancel()
		ev, err := svc.EvaluateModel(ctx, form.images[0], form.model, form.mode, form.labels)
		if err != nil {
			logEnd(r, lvl, "analyze-single", writeServiceError(w, err), start, err)
			return
		}
		status := http.StatusOK
		if !ev.Success {
			status = http.StatusInternalServerError
			if len(ev.Results) == 1 && needsManualSwitch(ev.Results[0].Failure) {
				status = http.StatusBadRequest
			}
		}
		writeJSON(w, status, ev)
		logEnd(r, lvl, "analyze-single", status, start, evalError(ev))
	}
}

// analyzeBatchHandler evaluates several images sequentially under one slot.
func analyzeBatchHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		form, err := parseUpload(w, r, "images", "images[]")
		if err == nil && maxBatchImages > 0 && len(form.images) > maxBatchImages {
			err = requestError{status: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("batch of %d images exceeds limit %d", len(form.images), maxBatchImages)}
		}
		var truth map[string]string
		if err == nil {
			truth, err = parseTruth(r, form.images)
		}
		if err != nil {
			logEnd(r, lvl, "analyze-batch", writeServiceError(w, err), start, err)
			return
		}
		batchImages.Observe(float64(len(form.images)))
		logStart(r, lvl, "analyze-batch", form.models)

		ctx, cancel := handlerContext(r)
		defer cancel()
		be, err := svc.EvaluateBatch(ctx, manager.BatchRequest{
			Images: form.images,
			Models: form.models,
			Mode:   form.mode,
			Labels: form.labels,
			Truth:  truth,
		})
		if err != nil {
			logEnd(r, lvl, "analyze-batch", writeServiceError(w, err), start, err)
			return
		}
		writeJSON(w, http.StatusOK, be)
		logEnd(r, lvl, "analyze-batch", http.StatusOK, start, nil)
	}
}

func needsManualSwitch(f *types.Failure) bool {
	return f != nil && f.RequiresManualSwitch && f.Reason == types.ErrModelUnavailable
}

func evalError(ev types.Evaluation) error {
	if ev.Success {
		return nil
	}
	return fmt.Errorf("%s: %s", ev.Image, ev.Error)
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
