package retry

import (
	"context"
	"log/slog"
	"time"
)

// Policy describes a bounded exponential backoff applied to network-bound
// operations. The zero value is not usable; use DefaultPolicy or construct
// explicitly.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Backoff  float64
	MaxDelay time.Duration
}

// DefaultPolicy mirrors the fetch retry behavior: three attempts, starting
// at two seconds, doubling, capped at thirty seconds.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Delay:    2 * time.Second,
		Backoff:  2.0,
		MaxDelay: 30 * time.Second,
	}
}

// Do runs op, retrying on errors for which retryable returns true. The last
// error is returned once attempts are exhausted or the error is not
// retryable. A nil retryable retries every error. Context cancellation stops
// waiting immediately.
func (p Policy) Do(ctx context.Context, name string, op func(context.Context) error, retryable func(error) bool) error {
	delay := p.Delay

	var err error
	for attempt := 1; ; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt >= p.Attempts {
			slog.Error("Operation failed on the last attempt", "operation", name, "attempts", attempt, "error", err)
			return err
		}

		wait := delay
		if wait > p.MaxDelay {
			wait = p.MaxDelay
		}
		slog.Warn("Operation failed, retrying", "operation", name, "attempt", attempt, "delay", wait.String(), "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * p.Backoff)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
