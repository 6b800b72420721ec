package backend

import (
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"vlmeval/pkg/types"
)

func TestManualSwitch_AlreadyActive(t *testing.T) {
	mux := http.NewServeMux()
	rec := newRecorder()
	mux.HandleFunc("/v1/models", modelList("qwen/qwen3-vl-4b", "google/gemma-3-4b"))
	mux.HandleFunc("/v1/chat/completions", rec.wrap(chatOK("Cat")))
	ts := newServer(t, mux)

	a := NewManualSwitchAdapter(Options{BaseURL: ts.URL + "/"})
	cur, err := a.CurrentlyActive(testCtx(t))
	if err != nil || cur != "qwen/qwen3-vl-4b" {
		t.Fatalf("current=%q err=%v", cur, err)
	}
	r := a.EnsureActive(testCtx(t), "qwen/qwen3-vl-4b")
	if r.State != AlreadyActive {
		t.Fatalf("want AlreadyActive, got %s", r.State)
	}
	res := a.Invoke(testCtx(t), types.InferenceRequest{Image: testImage(), Model: "qwen/qwen3-vl-4b", Mode: types.ModeDescription})
	if !res.OK() || res.Success.Entity != "Cat" {
		t.Fatalf("invoke: %+v", res)
	}
	if got := rec.last("/v1/chat/completions")["model"]; got != "qwen/qwen3-vl-4b" {
		t.Fatalf("model field %v", got)
	}
}

func TestManualSwitch_NotActiveNeverLoads(t *testing.T) {
	mux := http.NewServeMux()
	rec := newRecorder()
	mux.HandleFunc("/v1/models", modelList("qwen/qwen3-vl-4b"))
	mux.HandleFunc("/v1/models/load", rec.wrap(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))
	ts := newServer(t, mux)

	a := NewManualSwitchAdapter(Options{BaseURL: ts.URL})
	r := a.EnsureActive(testCtx(t), "google/gemma-3-4b")
	if r.Ready() || r.Reason != "manual switch required" || r.Current != "qwen/qwen3-vl-4b" {
		t.Fatalf("unexpected readiness %+v", r)
	}
	if r.ErrKind != types.ErrModelUnavailable {
		t.Fatalf("kind %s", r.ErrKind)
	}
	if rec.count("/v1/models/load") != 0 {
		t.Fatalf("load endpoint must not be probed by default")
	}
}

func TestManualSwitch_ProbeLoadFallsThrough404(t *testing.T) {
	mux := http.NewServeMux()
	rec := newRecorder()
	var mu sync.Mutex
	active := "qwen/qwen3-vl-4b"
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		cur := active
		mu.Unlock()
		modelList(cur)(w, r)
	})
	mux.HandleFunc("/v1/models/load", rec.wrap(http.NotFound))
	mux.HandleFunc("/api/v0/models/load", rec.wrap(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		active = "google/gemma-3-4b"
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	ts := newServer(t, mux)

	a := NewManualSwitchAdapter(Options{BaseURL: ts.URL, ProbeLoad: true})
	r := a.EnsureActive(testCtx(t), "google/gemma-3-4b")
	if r.State != Activated {
		t.Fatalf("want Activated, got %+v", r)
	}
	if rec.count("/v1/models/load") != 1 || rec.count("/api/v0/models/load") != 1 {
		t.Fatalf("probe order not followed")
	}
	if rec.last("/api/v0/models/load")["model"] != "google/gemma-3-4b" {
		t.Fatalf("load payload %v", rec.last("/api/v0/models/load"))
	}
}

func TestManualSwitch_ProbeLoadAllMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", modelList("qwen/qwen3-vl-4b"))
	ts := newServer(t, mux)

	a := NewManualSwitchAdapter(Options{BaseURL: ts.URL, ProbeLoad: true})
	r := a.EnsureActive(testCtx(t), "google/gemma-3-4b")
	if r.Ready() || r.Reason != "manual switch required" {
		t.Fatalf("unexpected readiness %+v", r)
	}
}

func TestManualSwitch_Unreachable(t *testing.T) {
	a := NewManualSwitchAdapter(Options{BaseURL: "http://127.0.0.1:1", ConnectTimeout: 200 * time.Millisecond})
	r := a.EnsureActive(testCtx(t), "m")
	if r.Ready() || r.ErrKind != types.ErrConnectivity {
		t.Fatalf("unexpected readiness %+v", r)
	}
	res := a.Invoke(testCtx(t), types.InferenceRequest{Image: testImage(), Model: "m"})
	if res.OK() || res.Failure.Reason != types.ErrConnectivity {
		t.Fatalf("invoke: %+v", res)
	}
}

func TestInvoke_BadRequestMentionsInstall(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusBadRequest)
	})
	ts := newServer(t, mux)
	a := NewManualSwitchAdapter(Options{BaseURL: ts.URL})
	res := a.Invoke(testCtx(t), types.InferenceRequest{Image: testImage(), Model: "m"})
	if res.OK() || res.Failure.Reason != types.ErrConnectivity {
		t.Fatalf("invoke: %+v", res)
	}
	if want := "make sure it is installed"; !strings.Contains(res.Failure.Message, want) {
		t.Fatalf("message %q lacks %q", res.Failure.Message, want)
	}
}

func TestInvoke_MalformedBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	ts := newServer(t, mux)
	a := NewManualSwitchAdapter(Options{BaseURL: ts.URL})
	res := a.Invoke(testCtx(t), types.InferenceRequest{Image: testImage(), Model: "m"})
	if res.OK() || res.Failure.Reason != types.ErrResponseFormat {
		t.Fatalf("invoke: %+v", res)
	}
}

func TestGateway_AlwaysAvailable(t *testing.T) {
	mux := http.NewServeMux()
	rec := newRecorder()
	mux.HandleFunc("/models", rec.wrap(modelList("gpt-4o", "claude")))
	mux.HandleFunc("/chat/completions", rec.wrap(chatOK("Dog")))
	ts := newServer(t, mux)

	a := NewAlwaysAvailableAdapter(Options{BaseURL: ts.URL, APIKey: "secret", Models: []string{"gpt-4o", "claude"}})
	if !a.Capabilities().AlwaysAvailable || a.Capabilities().RequiresManualSwitch {
		t.Fatalf("caps %+v", a.Capabilities())
	}
	cur, _ := a.CurrentlyActive(testCtx(t))
	if cur != "gpt-4o" {
		t.Fatalf("current %q", cur)
	}
	if r := a.EnsureActive(testCtx(t), "claude"); r.State != AlreadyActive {
		t.Fatalf("want AlreadyActive, got %s", r.State)
	}
	models, err := a.ListModels(testCtx(t))
	if err != nil || len(models) != 2 {
		t.Fatalf("models=%v err=%v", models, err)
	}
	res := a.Invoke(testCtx(t), types.InferenceRequest{Image: testImage(), Model: "claude"})
	if !res.OK() || res.Success.Entity != "Dog" {
		t.Fatalf("invoke: %+v", res)
	}
	for _, h := range rec.auth {
		if h != "Bearer secret" {
			t.Fatalf("auth header %q", h)
		}
	}
}

func TestExplicitLoad_LoadInvokeUnload(t *testing.T) {
	mux := http.NewServeMux()
	rec := newRecorder()
	mux.HandleFunc("/api/v1/models/load", rec.wrap(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"instance_id": "inst-42"})
	}))
	mux.HandleFunc("/api/v1/models/unload", rec.wrap(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	}))
	mux.HandleFunc("/v1/chat/completions", rec.wrap(chatOK("Airplane")))
	ts := newServer(t, mux)

	a := NewExplicitLoadAdapter(Options{BaseURL: ts.URL})
	r := a.EnsureActive(testCtx(t), "google/gemma-3-4b")
	if r.State != Activated {
		t.Fatalf("want Activated, got %+v", r)
	}
	load := rec.last("/api/v1/models/load")
	cfg, _ := load["config"].(map[string]any)
	gpu, _ := cfg["gpu"].(map[string]any)
	if load["model"] != "google/gemma-3-4b" || cfg["contextLength"] != float64(8192) || gpu["ratio"] != float64(1) {
		t.Fatalf("load payload %v", load)
	}
	// /api/v1/models/loaded is absent: fall back to the last instance.
	if cur, err := a.CurrentlyActive(testCtx(t)); err != nil || cur != "google/gemma-3-4b" {
		t.Fatalf("current=%q err=%v", cur, err)
	}
	res := a.Invoke(testCtx(t), types.InferenceRequest{Image: testImage(), Model: "google/gemma-3-4b"})
	if !res.OK() {
		t.Fatalf("invoke: %+v", res)
	}
	if got := rec.last("/v1/chat/completions")["model"]; got != "inst-42" {
		t.Fatalf("invoke must address the instance, got %v", got)
	}
	if err := a.Unload(testCtx(t), "google/gemma-3-4b"); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if got := rec.last("/api/v1/models/unload")["instance_id"]; got != "inst-42" {
		t.Fatalf("unload payload %v", rec.last("/api/v1/models/unload"))
	}
	if cur, _ := a.CurrentlyActive(testCtx(t)); cur != "" {
		t.Fatalf("want no active instance after unload, got %q", cur)
	}
}

func TestExplicitLoad_LoadFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/models/load", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "out of memory", http.StatusInternalServerError)
	})
	ts := newServer(t, mux)
	a := NewExplicitLoadAdapter(Options{BaseURL: ts.URL})
	r := a.EnsureActive(testCtx(t), "big-model")
	if r.Ready() || !strings.Contains(r.Reason, "out of memory") {
		t.Fatalf("unexpected readiness %+v", r)
	}
	if err := a.Unload(testCtx(t), "big-model"); err != nil {
		t.Fatalf("unload of never-loaded model should be a no-op: %v", err)
	}
}

func TestExplicitLoad_LoadedEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/models/loaded", modelList("resident"))
	ts := newServer(t, mux)
	a := NewExplicitLoadAdapter(Options{BaseURL: ts.URL})
	if cur, err := a.CurrentlyActive(testCtx(t)); err != nil || cur != "resident" {
		t.Fatalf("current=%q err=%v", cur, err)
	}
}
