// Package retry runs an operation a bounded number of times with a fixed
// exponential backoff schedule.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultBaseDelay is the wait before the first retry; it doubles each time.
const DefaultBaseDelay = time.Second

// ErrExhausted is matched by the error returned when every attempt failed.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy configures Do. MaxRetries is the number of attempts after the first.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Sleep      Sleeper

	// OnFailure is called after every failed attempt (1-based).
	OnFailure func(attempt, total int, err error)
}

// Attempts returns the total number of attempts the policy allows.
func (p Policy) Attempts() int {
	return 1 + max(p.MaxRetries, 0)
}

// Backoff returns the wait after the given failed attempt: base * 2^(attempt-1).
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// ExhaustedError wraps the last failure once all attempts are used.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Err}
}

// Do calls fn until it succeeds or the policy runs out of attempts. A
// cancelled context stops the loop and its error is returned unwrapped.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	total := p.Attempts()

	var lastErr error
	for attempt := 1; attempt <= total; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if p.OnFailure != nil {
			p.OnFailure(attempt, total, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if attempt < total {
			if err := sleep(ctx, Backoff(base, attempt)); err != nil {
				return zero, err
			}
		}
	}
	return zero, &ExhaustedError{Attempts: total, Err: lastErr}
}
