package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"vlmeval/internal/common/fsutil"
	"vlmeval/pkg/types"
)

// JSONWriter writes rows as JSON lines.
type JSONWriter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

func NewJSONWriter(path string) (*JSONWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{file: f, encoder: json.NewEncoder(f)}, nil
}

func (jw *JSONWriter) Write(r Row) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.encoder.Encode(r)
}

func (jw *JSONWriter) Close() error { return jw.file.Close() }

// Summary is the document written by WriteSummary.
type Summary struct {
	ID          string                      `json:"id"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Backend     string                      `json:"backend,omitempty"`
	Mode        types.PromptMode            `json:"mode"`
	Labels      *types.ClassificationLabels `json:"labels,omitempty"`
	Success     bool                        `json:"success"`
	Report      types.BatchReport           `json:"report"`
	Evaluations []types.Evaluation          `json:"evaluations"`
}

// SummaryName is "<prefix>_<YYYYmmdd_HHMMSS>_<first 8 chars of a uuid>.json".
func SummaryName(prefix string, at time.Time) string {
	if prefix == "" {
		prefix = "evaluation"
	}
	return fmt.Sprintf("%s_%s_%s.json", prefix, at.Format("20060102_150405"), uuid.NewString()[:8])
}

// WriteSummary writes the batch summary into dir and returns the file path.
func WriteSummary(dir, prefix, backend string, b types.BatchEvaluation, at time.Time) (string, error) {
	base, err := fsutil.EnsureDir(dir)
	if err != nil {
		return "", err
	}
	s := Summary{
		ID:          b.ID,
		GeneratedAt: at,
		Backend:     backend,
		Mode:        b.Mode,
		Labels:      b.Labels,
		Success:     b.Success,
		Report:      b.Report,
		Evaluations: b.Evaluations,
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	p := filepath.Join(base, SummaryName(prefix, at))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return p, nil
}
