package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"vlmeval/internal/backend"
	"vlmeval/internal/httpapi"
	"vlmeval/internal/manager"
	"vlmeval/internal/retry"
)

// fakeBackend imitates a local model server. It serves both the manual
// switch API (one active model) and the explicit load API.
type fakeBackend struct {
	mu       sync.Mutex
	models   []string
	active   string
	answers  map[string]string
	loads    []string
	unloads  []string
	invoked  []string
	nextInst int
	inst     map[string]string
}

func newFakeBackend(t *testing.T, active string, answers map[string]string, models ...string) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{models: models, active: active, answers: answers, inst: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/models", fb.listActiveFirst)
	mux.HandleFunc("GET /api/v1/models", fb.list)
	mux.HandleFunc("GET /api/v1/models/loaded", fb.loaded)
	mux.HandleFunc("POST /api/v1/models/load", fb.load)
	mux.HandleFunc("POST /api/v1/models/unload", fb.unload)
	mux.HandleFunc("POST /v1/chat/completions", fb.chat)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fb, srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func entries(ids ...string) map[string]any {
	data := make([]any, 0, len(ids))
	for _, id := range ids {
		data = append(data, map[string]any{"id": id, "type": "vlm"})
	}
	return map[string]any{"data": data}
}

func (fb *fakeBackend) listActiveFirst(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	ids := []string{}
	if fb.active != "" {
		ids = append(ids, fb.active)
	}
	for _, m := range fb.models {
		if m != fb.active {
			ids = append(ids, m)
		}
	}
	writeJSON(w, entries(ids...))
}

func (fb *fakeBackend) list(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	writeJSON(w, entries(fb.models...))
}

func (fb *fakeBackend) loaded(w http.ResponseWriter, _ *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.active == "" {
		writeJSON(w, entries())
		return
	}
	writeJSON(w, entries(fb.active))
}

func (fb *fakeBackend) load(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.loads = append(fb.loads, req.Model)
	fb.nextInst++
	id := fmt.Sprintf("%s:%d", req.Model, fb.nextInst)
	fb.inst[id] = req.Model
	fb.active = req.Model
	writeJSON(w, map[string]any{"instance_id": id})
}

func (fb *fakeBackend) unload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InstanceID string `json:"instance_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.unloads = append(fb.unloads, req.InstanceID)
	if fb.inst[req.InstanceID] == fb.active {
		fb.active = ""
	}
	delete(fb.inst, req.InstanceID)
	writeJSON(w, map[string]any{"ok": true})
}

func (fb *fakeBackend) chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	fb.mu.Lock()
	model := req.Model
	if m, ok := fb.inst[model]; ok {
		model = m
	}
	fb.invoked = append(fb.invoked, req.Model)
	answer := fb.answers[model]
	fb.mu.Unlock()
	writeJSON(w, map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": answer}}},
		"usage":   map[string]any{"prompt_tokens": 100, "completion_tokens": 2, "total_tokens": 102},
	})
}

func (fb *fakeBackend) snapshot() (loads, unloads, invoked []string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.loads...), append([]string(nil), fb.unloads...), append([]string(nil), fb.invoked...)
}

// newService wires a real adapter and manager behind the HTTP mux.
func newService(t *testing.T, adapter backend.Adapter, models ...string) *httptest.Server {
	t.Helper()
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Adapter:     adapter,
		Models:      models,
		Discovery:   retry.Config{Attempts: 1},
		SettleDelay: -1,
	})
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// httpPostForm sends a multipart form with fake image files.
func httpPostForm(t *testing.T, url string, files map[string][]string, fields map[string][]string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, names := range files {
		for _, name := range names {
			fw, err := mw.CreateFormFile(field, name)
			if err != nil {
				t.Fatalf("form file: %v", err)
			}
			fw.Write([]byte("\x89PNG fake"))
		}
	}
	for field, vals := range fields {
		for _, v := range vals {
			_ = mw.WriteField(field, v)
		}
	}
	_ = mw.Close()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
