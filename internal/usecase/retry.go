package usecase

import (
	"context"
	"time"
)

// WithTimeout runs op with a bounded wait. If op does not finish within d,
// the fallback value is returned instead of blocking indefinitely; the
// operation itself is cancelled through its context. Errors from op are
// passed through when it does finish in time.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error), fallback T) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := op(ctx)
		done <- outcome{v, err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		return fallback, nil
	}
}

// PollUntil calls predicate every interval until it reports true, the
// attempt budget runs out, or the context is cancelled. Returns whether the
// predicate was ever satisfied. Predicate errors are swallowed: a transient
// failure just consumes an attempt.
func PollUntil(ctx context.Context, interval time.Duration, maxAttempts int, predicate func(context.Context) (bool, error)) bool {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ok, err := predicate(ctx); err == nil && ok {
			return true
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return false
		}
	}
	return false
}
