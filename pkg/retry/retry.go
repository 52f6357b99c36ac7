// Package retry provides exponential-backoff retry logic for the
// environmental I/O calls UFS makes outside the image file itself: syncing
// the mmap'd image to disk and talking to the externalfs collaborator.
// Adapted from objectfs's pkg/retry, rewired from ErrorCode/ObjectFSError
// onto ufsdefs.StatusCode/*errors.UFSError.
package retry

import (
	"context"
	stderr "errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ufs/ufs/pkg/errors"
	"github.com/ufs/ufs/ufsdefs"
)

// Config defines retry behavior configuration.
type Config struct {
	// MaxAttempts is the maximum number of retry attempts (including the
	// initial attempt).
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration `yaml:"max_delay"`

	// Multiplier is the factor by which delay increases after each retry.
	Multiplier float64 `yaml:"multiplier"`

	// Jitter adds randomness to delay to prevent thundering herd.
	Jitter bool `yaml:"jitter"`

	// RetryableCodes is a list of status codes that should trigger a retry,
	// in addition to whatever a *errors.UFSError already marks Retryable.
	RetryableCodes []ufsdefs.StatusCode `yaml:"retryable_codes"`

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

// DefaultConfig returns a sensible default retry configuration: UFS only
// ever retries the environmental sync-failure and unknown-error bands
// (pkg/errors.isRetryableByDefault already marks these Retryable, so the
// explicit list here only needs to cover codes a caller wants to force).
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		RetryableCodes: []ufsdefs.StatusCode{
			ufsdefs.ImageCouldNotSync,
			ufsdefs.UnknownError,
		},
	}
}

// Retryer handles retry logic with exponential backoff.
type Retryer struct {
	config Config
}

// New creates a new Retryer, applying defaults for zero-value fields.
func New(config Config) *Retryer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	return &Retryer{config: config}
}

// Do executes fn with retry logic, ignoring context cancellation.
func (r *Retryer) Do(fn func() error) error {
	return r.DoWithContext(context.Background(), func(ctx context.Context) error {
		return fn()
	})
}

// DoWithContext executes fn with retry logic, honoring ctx cancellation
// between attempts.
func (r *Retryer) DoWithContext(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry: canceled: %w", ctx.Err())
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.shouldRetry(err, attempt) {
			return err
		}

		if attempt < r.config.MaxAttempts {
			delay := r.calculateDelay(attempt)
			if r.config.OnRetry != nil {
				r.config.OnRetry(attempt, err, delay)
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry: canceled after %d attempts: %w", attempt, ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("retry: max attempts (%d) exceeded: %w", r.config.MaxAttempts, lastErr)
}

// shouldRetry reports whether err is retryable: either it carries a
// *errors.UFSError marked Retryable, or its code appears in
// config.RetryableCodes.
func (r *Retryer) shouldRetry(err error, attempt int) bool {
	if attempt >= r.config.MaxAttempts {
		return false
	}

	var ue *errors.UFSError
	if !stderr.As(err, &ue) {
		return false
	}
	if ue.Retryable {
		return true
	}
	for _, code := range r.config.RetryableCodes {
		if ue.Code == code {
			return true
		}
	}
	return false
}

func (r *Retryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	if r.config.Jitter {
		jitter := delay * 0.2 * (rand.Float64()*2 - 1)
		delay += jitter
	}
	return time.Duration(delay)
}

// WithMaxAttempts returns a new Retryer with modified max attempts.
func (r *Retryer) WithMaxAttempts(attempts int) *Retryer {
	cfg := r.config
	cfg.MaxAttempts = attempts
	return New(cfg)
}

// WithOnRetry returns a new Retryer with a retry callback attached.
func (r *Retryer) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Retryer {
	cfg := r.config
	cfg.OnRetry = callback
	return New(cfg)
}

// WithBackoff is a convenience wrapper for a bounded-attempt retry of fn
// under the default backoff schedule, for callers that do not want to
// configure a Retryer explicitly. internal/ufs does not use it; it retries
// Image.Sync and externalfs calls through its own configured Retryer.
func WithBackoff(ctx context.Context, maxAttempts int, fn func() error) error {
	r := New(DefaultConfig())
	r.config.MaxAttempts = maxAttempts
	return r.DoWithContext(ctx, func(ctx context.Context) error {
		return fn()
	})
}
