package services

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy retries a call a fixed number of times with a fixed pause.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns 3 attempts with a 2s pause between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}
}

// RetryError reports that every attempt failed. Err is the final attempt's
// error.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return e.Err.Error()
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// Execute runs fn until it succeeds or MaxAttempts is reached, sleeping Delay
// between attempts. It returns nil or a *RetryError. Context cancellation
// during a pause ends the loop early.
func (p RetryPolicy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return &RetryError{Attempts: attempt, Err: fmt.Errorf("%w (retry aborted: %v)", lastErr, ctx.Err())}
		case <-time.After(p.Delay):
		}
	}

	return &RetryError{Attempts: attempts, Err: lastErr}
}
