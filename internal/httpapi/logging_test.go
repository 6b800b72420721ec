package httpapi

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo, // default
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	// query param ?log=debug
	r := httptest.NewRequest("GET", "/x?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override failed: %v", got)
	}
	// legacy query param ?log=1
	r = httptest.NewRequest("GET", "/x?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("legacy query override failed: %v", got)
	}
	// header X-Log-Level
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override failed: %v", got)
	}
	// no override falls back to the default
	defer SetDefaultLogLevel("info")
	SetDefaultLogLevel("ERROR")
	r = httptest.NewRequest("GET", "/x", nil)
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("default level not applied: %v", got)
	}
}

func TestLogEnd_ErrorsAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer func() { zlog = nil }()

	r := httptest.NewRequest("POST", "/analyze", nil)
	logEnd(r, LevelError, "analyze", 500, time.Now(), errors.New("boom"))
	logEnd(r, LevelError, "analyze", 200, time.Now(), nil)

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected only the failing request to be logged: %q", out)
	}
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, `"error":"boom"`) {
		t.Fatalf("unexpected log line: %q", out)
	}
}
