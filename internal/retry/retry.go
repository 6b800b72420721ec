package retry

import (
	"context"
	"time"
)

// Config holds the retry schedule. Delays are fixed between attempts.
type Config struct {
	Attempts int
	Delay    time.Duration
}

// DefaultConfig matches the model discovery policy: three attempts, two seconds apart.
func DefaultConfig() Config {
	return Config{Attempts: 3, Delay: 2 * time.Second}
}

// Logger receives one line per failed attempt.
type Logger func(attempt, attempts int, err error)

// Do calls fn until it succeeds, the attempts are used up, or ctx is done.
// It returns the last error seen.
func Do(ctx context.Context, cfg Config, log Logger, fn func(attempt int) error) error {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && cfg.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Delay):
			}
		}
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if log != nil {
			log(attempt, attempts, lastErr)
		}
	}
	return &ExhaustedError{Attempts: attempts, Last: lastErr}
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return "retry attempts exhausted: " + e.Last.Error()
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
