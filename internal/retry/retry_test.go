package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func neverRetryable(error) bool { return false }

func TestDoSucceedsFirstTry(t *testing.T) {
	exec := New(fastConfig(3), zap.NewNop())

	calls := 0
	err := exec.Do(context.Background(), "op", func(error) bool { return true }, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	exec := New(fastConfig(3), zap.NewNop())

	calls := 0
	err := exec.Do(context.Background(), "op", func(error) bool { return true }, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	exec := New(fastConfig(3), zap.NewNop())

	inner := errors.New("still failing")
	calls := 0
	err := exec.Do(context.Background(), "fetch page", func(error) bool { return true }, func(context.Context) error {
		calls++
		return inner
	})
	if calls != 3 {
		t.Errorf("calls = %d, want exactly MaxAttempts", calls)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Do() error = %v, want ExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, inner) {
		t.Errorf("ExhaustedError does not wrap the last error")
	}
}

func TestDoPermanentErrorNotRetried(t *testing.T) {
	exec := New(fastConfig(5), zap.NewNop())

	inner := errors.New("not found")
	calls := 0
	err := exec.Do(context.Background(), "op", neverRetryable, func(context.Context) error {
		calls++
		return inner
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, inner) {
		t.Errorf("Do() error = %v, want the original error unwrapped", err)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Errorf("permanent failure must not be reported as exhaustion")
	}
}

func TestDoCanceledDuringBackoff(t *testing.T) {
	exec := New(Config{MaxAttempts: 3, BaseDelay: time.Minute}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	calls := 0
	err := exec.Do(ctx, "op", func(error) bool { return true }, func(context.Context) error {
		calls++
		return errors.New("transient")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	exec := New(Config{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    3 * time.Second,
	}, zap.NewNop())

	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := exec.backoff(i + 1); got != w {
			t.Errorf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestTransientGeneration(t *testing.T) {
	if TransientGeneration(context.Canceled) {
		t.Error("canceled context must be permanent")
	}
	if !TransientGeneration(errors.New("http 500")) {
		t.Error("provider failure must be retryable")
	}
}
