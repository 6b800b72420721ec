// Package report exports evaluation results: one row per (image, model) as
// CSV or JSON lines, plus a JSON summary of the batch report. Files are
// exports for offline analysis; nothing here reads them back.
package report

import (
	"fmt"
	"strings"
	"time"

	"vlmeval/internal/compare"
	"vlmeval/pkg/types"
)

// Row is one exported result.
type Row struct {
	Timestamp time.Time `json:"timestamp"`
	Image     string    `json:"image"`
	Model     string    `json:"model"`
	OK        bool      `json:"ok"`
	Answer    string    `json:"answer,omitempty"`
	Seconds   float64   `json:"processing_time,omitempty"`
	Prompt    *int      `json:"prompt_tokens,omitempty"`
	Complete  *int      `json:"completion_tokens,omitempty"`
	Total     *int      `json:"total_tokens,omitempty"`
	Rate      *float64  `json:"tokens_per_second,omitempty"`
	Truth     string    `json:"truth,omitempty"`
	Verdict   string    `json:"verdict,omitempty"`
	Correct   *bool     `json:"correct,omitempty"`
	Reason    string    `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Writer receives rows in evaluation order.
type Writer interface {
	Write(Row) error
	Close() error
}

// NewRow flattens a result. truth and labels are optional.
func NewRow(r types.InferenceResult, truth string, labels *types.ClassificationLabels, at time.Time) Row {
	row := Row{Timestamp: at, Image: r.Image, Model: r.Model, OK: r.OK(), Truth: truth}
	if r.OK() {
		s := r.Success
		row.Answer, row.Seconds = s.Entity, s.ProcessingTimeSeconds
		row.Prompt, row.Complete, row.Total, row.Rate = s.PromptTokens, s.CompletionTokens, s.TotalTokens, s.TokensPerSecond
		if labels != nil {
			row.Verdict = string(compare.Judge(s.Entity, *labels))
		}
	} else {
		row.Reason, row.Error = string(r.Failure.Reason), r.Failure.Message
	}
	if truth != "" && labels != nil {
		ok := row.OK && compare.Correct(row.Answer, truth, *labels)
		row.Correct = &ok
	}
	return row
}

// Rows flattens a batch in evaluation order.
func Rows(b types.BatchEvaluation, truth map[string]string, at time.Time) []Row {
	out := make([]Row, 0, len(b.Batch.Results))
	for _, r := range b.Batch.Results {
		out = append(out, NewRow(r, truth[r.Image], b.Labels, at))
	}
	return out
}

// WriteAll writes rows and closes w.
func WriteAll(w Writer, rows []Row) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}

// New picks a writer by format: "csv" or "jsonl".
func New(format, path string) (Writer, error) {
	switch strings.ToLower(format) {
	case "csv":
		return NewCSVWriter(path)
	case "jsonl", "json":
		return NewJSONWriter(path)
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}
