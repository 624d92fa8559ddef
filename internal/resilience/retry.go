package resilience

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// RetryConfig controls retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt, so the
	// function runs at most MaxRetries+1 times. Default: 2.
	MaxRetries int

	// BaseDelay is the backoff unit; attempt n sleeps BaseDelay * 2^n.
	// Default: 1s.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff sleep. Default: 30s.
	MaxDelay time.Duration

	// OnSessionError, when set, is invoked once on the first session-class
	// failure (CAPTCHA, expired login) to repair the session before the
	// single session retry. A second session failure raises.
	OnSessionError func(ctx context.Context) error

	// OnRetry is called before each backoff sleep with the attempt number.
	OnRetry func(attempt int, err error)

	// Sleep is injectable for tests. Defaults to a context-aware timer sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns the retry configuration used for fetches.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	return cfg
}

// WithRetry executes fn under the four-class retry policy:
//   - permanent and config errors raise immediately;
//   - a session error gets one OnSessionError-assisted retry, after which
//     further session errors raise;
//   - transient errors back off exponentially up to MaxRetries.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := WithRetryVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// WithRetryVal is WithRetry preserving the value of the successful call.
func WithRetryVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	sessionRetried := false
	attempt := 0

	for {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}

		switch Classify(err) {
		case ClassPermanent, ClassConfig:
			return zero, err

		case ClassSession:
			if sessionRetried {
				return zero, eris.Wrap(err, "resilience: session error recurred")
			}
			sessionRetried = true
			if cfg.OnSessionError != nil {
				if repairErr := cfg.OnSessionError(ctx); repairErr != nil {
					zap.L().Warn("resilience: session repair failed", zap.Error(repairErr))
				}
			}
			// Session retry does not consume a transient attempt.
			continue

		default: // transient
			if attempt >= cfg.MaxRetries {
				return zero, err
			}
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt+1, err)
			}
			delay := backoff(cfg.BaseDelay, cfg.MaxDelay, attempt)
			if sleepErr := cfg.Sleep(ctx, delay); sleepErr != nil {
				return zero, err
			}
			attempt++
		}
	}
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	d := float64(base) * math.Pow(2, float64(attempt))
	if d > float64(max) {
		d = float64(max)
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
