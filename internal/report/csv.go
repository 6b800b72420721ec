package report

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"
)

var csvHeader = []string{
	"timestamp", "image", "model", "ok", "answer", "processing_time_s",
	"prompt_tokens", "completion_tokens", "total_tokens", "tokens_per_second",
	"truth", "verdict", "correct", "error_kind", "error",
}

// CSVWriter writes rows to a CSV file, flushing after every row.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates path, overwriting an existing file, and writes the header.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	return &CSVWriter{file: f, writer: w}, nil
}

func (cw *CSVWriter) Write(r Row) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := []string{
		r.Timestamp.Format(time.RFC3339),
		r.Image,
		r.Model,
		strconv.FormatBool(r.OK),
		r.Answer,
		strconv.FormatFloat(r.Seconds, 'f', 3, 64),
		optInt(r.Prompt),
		optInt(r.Complete),
		optInt(r.Total),
		optFloat(r.Rate),
		r.Truth,
		r.Verdict,
		optBool(r.Correct),
		r.Reason,
		r.Error,
	}
	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func optBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
