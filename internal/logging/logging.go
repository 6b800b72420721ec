// Package logging builds the process logger: zerolog to stderr (console
// format on a terminal, JSON otherwise) and optionally a rotating JSON file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// Rotation limits for the log file.
const (
	MaxSizeMB  = 100
	MaxBackups = 7
	MaxAgeDays = 28
)

// Options select level and outputs.
type Options struct {
	// Level is one of off, debug, info, warn, error. Unknown values mean info.
	Level string
	// File enables rotating JSON output in addition to stderr.
	File string
	// Console forces (true) or disables (false) the console writer; nil detects a TTY.
	Console *bool
	// Stderr overrides os.Stderr (tests).
	Stderr io.Writer
}

// ParseLevel maps a config level onto zerolog.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "disabled":
		return zerolog.Disabled
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds the logger. The returned closer releases the log file, if any.
func New(opt Options) (zerolog.Logger, io.Closer, error) {
	stderr := opt.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	console := isatty.IsTerminal(os.Stderr.Fd())
	if opt.Console != nil {
		console = *opt.Console
	}
	var out io.Writer = stderr
	if console {
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly}
	}

	var closer io.Closer = nopCloser{}
	if opt.File != "" {
		if err := os.MkdirAll(filepath.Dir(opt.File), 0o755); err != nil {
			return zerolog.Nop(), nil, err
		}
		lj := &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    MaxSizeMB,
			MaxBackups: MaxBackups,
			MaxAge:     MaxAgeDays,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, lj)
		closer = lj
	}
	l := zerolog.New(out).Level(ParseLevel(opt.Level)).With().Timestamp().Logger()
	return l, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
