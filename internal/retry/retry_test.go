package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{Attempts: 3, Delay: time.Millisecond}, nil, func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
}

func TestDo_ExhaustedWrapsLastError(t *testing.T) {
	sentinel := errors.New("down")
	var logged int
	err := Do(context.Background(), Config{Attempts: 2}, func(a, n int, err error) { logged++ }, func(int) error {
		return sentinel
	})
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected ExhaustedError, got %T", err)
	}
	if ex.Attempts != 2 || !errors.Is(err, sentinel) {
		t.Fatalf("unexpected error: %+v", ex)
	}
	if logged != 2 {
		t.Fatalf("logged=%d, want 2", logged)
	}
}

func TestDo_ContextCanceledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, Config{Attempts: 3, Delay: time.Second}, nil, func(int) error { return errors.New("x") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Config{}, nil, func(int) error { calls++; return nil })
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}
