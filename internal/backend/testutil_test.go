package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"vlmeval/pkg/types"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// recorder keeps the decoded JSON bodies of requests per path.
type recorder struct {
	mu     sync.Mutex
	bodies map[string][]map[string]any
	auth   []string
}

func newRecorder() *recorder { return &recorder{bodies: map[string][]map[string]any{}} }

func (r *recorder) wrap(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(req.Body).Decode(&m)
		r.mu.Lock()
		r.bodies[req.URL.Path] = append(r.bodies[req.URL.Path], m)
		r.auth = append(r.auth, req.Header.Get("Authorization"))
		r.mu.Unlock()
		h(w, req)
	}
}

func (r *recorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies[path])
}

func (r *recorder) last(path string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.bodies[path]
	if len(b) == 0 {
		return nil
	}
	return b[len(b)-1]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func chatOK(answer string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": answer}}},
			"usage":   map[string]any{"prompt_tokens": 50, "completion_tokens": 3, "total_tokens": 53},
		})
	}
}

func modelList(ids ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data := make([]any, 0, len(ids))
		for _, id := range ids {
			data = append(data, map[string]any{"id": id})
		}
		writeJSON(w, map[string]any{"data": data})
	}
}

func newServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func testImage() types.Image {
	return types.Image{Name: "cat.png", Ext: "png", Data: []byte("png-bytes")}
}
