package screening

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/recruitment-engine/internal/application/port"
	"github.com/garyjia/recruitment-engine/internal/domain/apperror"
)

// Policy bounds every screening call
type Policy struct {
	// Timeout applies to each attempt
	Timeout time.Duration
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	// Backoff is the wait before the second attempt; it doubles after each failure
	Backoff time.Duration
}

// DefaultPolicy is used for zero fields
var DefaultPolicy = Policy{Timeout: 5 * time.Second, MaxAttempts: 3, Backoff: 200 * time.Millisecond}

// Resilient wraps a screener with per-attempt timeouts and bounded retries.
// When every attempt fails it returns a retryable error instead of blocking.
type Resilient struct {
	inner  port.SanctionScreener
	policy Policy
	logger *zap.Logger
}

// NewResilient wraps inner with policy
func NewResilient(inner port.SanctionScreener, policy Policy, logger *zap.Logger) *Resilient {
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultPolicy.Timeout
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultPolicy.Backoff
	}
	return &Resilient{inner: inner, policy: policy, logger: logger}
}

// Screen implements port.SanctionScreener
func (r *Resilient) Screen(ctx context.Context, subject port.ScreeningSubject) (port.ScreeningOutcome, error) {
	var lastErr error
	backoff := r.policy.Backoff

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		outcome, err := r.attempt(ctx, subject)
		if err == nil {
			return outcome, nil
		}
		lastErr = err

		// the caller gave up; more attempts cannot succeed
		if ctx.Err() != nil {
			break
		}

		if attempt < r.policy.MaxAttempts {
			r.logger.Info("Retrying sanction screening",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))

			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = r.policy.MaxAttempts
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	r.logger.Error("Sanction screening failed after retries",
		zap.Int("max_attempts", r.policy.MaxAttempts),
		zap.Error(lastErr))
	return port.ScreeningOutcome{}, apperror.Retryable("sanction screening", fmt.Errorf("%d attempts: %w", r.policy.MaxAttempts, lastErr))
}

func (r *Resilient) attempt(ctx context.Context, subject port.ScreeningSubject) (port.ScreeningOutcome, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()

	outcome, err := r.inner.Screen(attemptCtx, subject)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return outcome, fmt.Errorf("attempt timed out after %s: %w", r.policy.Timeout, err)
	}
	return outcome, err
}

// Verify interface compliance
var _ port.SanctionScreener = (*Resilient)(nil)
