package util

import (
	"context"
	"errors"
	"time"
)

// ErrPollTimeout is returned by PollUntil when the condition never held
// before the deadline.
var ErrPollTimeout = errors.New("poll timed out")

// PollUntil calls fn until it reports done, sleeping with exponential
// backoff between attempts. The delay starts at baseDelay, doubles after
// every attempt and is capped at maxDelay. Errors from fn do not stop the
// loop; the last one is joined to ErrPollTimeout when the timeout elapses.
// The function respects context cancellation between attempts.
func PollUntil(ctx context.Context, baseDelay, maxDelay, timeout time.Duration, fn func(context.Context) (bool, error)) error {
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	deadline := time.Now().Add(timeout)
	delay := baseDelay

	var lastErr error
	for {
		done, err := fn(ctx)
		if err == nil && done {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			if lastErr != nil {
				return errors.Join(ErrPollTimeout, lastErr)
			}
			return ErrPollTimeout
		}

		wait := delay
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
