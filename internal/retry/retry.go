// Package retry provides the resilience wrapper around fallible external
// calls: bounded attempts with exponential backoff, caller-supplied
// transient/permanent classification, and per-attempt observability.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizgen/internal/metrics"
)

// Config controls the retry behavior.
type Config struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // backoff cap
	Jitter      bool          // add up to 1s of random jitter per backoff
}

// DefaultConfig mirrors the pipeline defaults: 3 attempts, 1s base delay
// doubling per attempt, capped at 60s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
		Jitter:      true,
	}
}

// ExhaustedError reports that every attempt failed. It wraps the last
// underlying error.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Executor retries operations with exponential backoff. Classification of
// failures as retryable is supplied per call, not hardcoded here.
type Executor struct {
	cfg    Config
	logger *zap.Logger
}

// New creates an executor.
func New(cfg Config, logger *zap.Logger) *Executor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Executor{cfg: cfg, logger: logger}
}

// Do runs fn up to MaxAttempts times. The first success wins. Errors for
// which retryable returns false are returned immediately; once attempts are
// exhausted the last error is wrapped in ExhaustedError. Each backoff waits
// BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (e *Executor) Do(
	ctx context.Context,
	op string,
	retryable func(error) bool,
	fn func(ctx context.Context) error,
) error {
	var lastErr error

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			metrics.RetryAttemptsTotal.WithLabelValues(op, "success").Inc()
			if attempt > 1 {
				e.logger.Debug("operation succeeded after retry",
					zap.String("op", op),
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}
		lastErr = err

		if !retryable(err) {
			metrics.RetryAttemptsTotal.WithLabelValues(op, "permanent").Inc()
			e.logger.Debug("permanent failure, not retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}

		if attempt == e.cfg.MaxAttempts {
			break
		}

		delay := e.backoff(attempt)
		metrics.RetryAttemptsTotal.WithLabelValues(op, "retry").Inc()
		e.logger.Warn("attempt failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.cfg.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: canceled during retry: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}

	metrics.RetryAttemptsTotal.WithLabelValues(op, "exhausted").Inc()
	return &ExhaustedError{Op: op, Attempts: e.cfg.MaxAttempts, Err: lastErr}
}

// backoff computes the delay after the given 1-based attempt.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := e.cfg.BaseDelay << (attempt - 1)
	if e.cfg.MaxDelay > 0 && delay > e.cfg.MaxDelay {
		delay = e.cfg.MaxDelay
	}
	if e.cfg.Jitter {
		delay += time.Duration(rand.Int63n(int64(time.Second)))
	}
	return delay
}
