// internal/types/retry.go
package types

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds every polling loop in the module.
type RetryPolicy struct {
	Interval    time.Duration
	MaxInterval time.Duration
	MaxElapsed  time.Duration
	MaxAttempts uint
	// Exponential grows the interval up to MaxInterval; otherwise the interval is fixed.
	Exponential bool
}

// DefaultPollPolicy mirrors the 500ms re-check loop used after account creation.
func DefaultPollPolicy() RetryPolicy {
	return RetryPolicy{
		Interval:    500 * time.Millisecond,
		MaxInterval: 500 * time.Millisecond,
		MaxElapsed:  60 * time.Second,
	}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	interval := p.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if !p.Exponential {
		return backoff.NewConstantBackOff(interval)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

// Retry runs op under policy. Errors from permanent categories (see IsPermanent)
// or wrapped in backoff.Permanent stop the loop and are returned as is.
// Exhausting the policy yields *TimeoutError.
func Retry[T any](ctx context.Context, operation string, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		attempts  int
		permanent bool
		lastErr   error
	)
	start := time.Now()

	wrapped := func() (T, error) {
		attempts++
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err
		var perm *backoff.PermanentError
		if errors.As(err, &perm) || IsPermanent(err) {
			permanent = true
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(policy.backOff())}
	if policy.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(policy.MaxElapsed))
	}
	if policy.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(policy.MaxAttempts))
	}

	res, err := backoff.Retry(ctx, wrapped, opts...)
	if err == nil {
		return res, nil
	}
	if permanent {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return res, perm.Unwrap()
		}
		return res, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	return res, &TimeoutError{
		Operation: operation,
		Attempts:  attempts,
		Elapsed:   time.Since(start),
		Last:      lastErr,
	}
}
