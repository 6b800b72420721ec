package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// defaultLogLevel applies when a request carries no override.
var defaultLogLevel = LevelInfo

// SetDefaultLogLevel sets the request log level ("off", "error", "info", "debug").
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logStart records the beginning of an evaluation request.
func logStart(r *http.Request, lvl LogLevel, what string, models []string) {
	if lvl < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Strs("models", models)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg(what + " start")
		return
	}
	log.Printf("%s start path=%s models=%v", what, r.URL.Path, models)
}

// logEnd records the outcome. Errors are logged at LevelError and above,
// successes at LevelInfo.
func logEnd(r *http.Request, lvl LogLevel, what string, status int, start time.Time, err error) {
	if lvl == LevelOff || (err == nil && lvl < LevelInfo) {
		return
	}
	if zlog != nil {
		z := zlog.Info()
		if err != nil {
			z = zlog.Error().Err(err)
		}
		z = z.Int("status", status).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg(what + " end")
		return
	}
	if err != nil {
		log.Printf("%s end status=%d dur=%s err=%v", what, status, time.Since(start), err)
		return
	}
	log.Printf("%s end status=%d dur=%s", what, status, time.Since(start))
}
