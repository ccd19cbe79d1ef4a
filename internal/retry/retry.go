// Package retry provides a fixed-delay retry policy. No backoff, no jitter:
// callers that need those semantics should not use this package.
package retry

import (
	"context"
	"time"
)

// Policy bounds repeated attempts of an operation with a fixed delay
// between attempts. The zero value runs the operation exactly once.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Do runs fn until it succeeds or attempts are exhausted, sleeping Delay
// between attempts. Returns the last error, or the context error if the
// context is cancelled while waiting.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
