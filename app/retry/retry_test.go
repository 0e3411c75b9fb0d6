package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{
		Attempts: 3,
		Delay:    time.Millisecond,
		Backoff:  2.0,
		MaxDelay: 5 * time.Millisecond,
	}
}

func TestPolicy_Do_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	}, nil)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestPolicy_Do_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)

	if err != nil {
		t.Errorf("Expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestPolicy_Do_ExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("still failing")
	err := fastPolicy().Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return wantErr
	}, nil)

	if !errors.Is(err, wantErr) {
		t.Errorf("Expected last error to be returned, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", calls)
	}
}

func TestPolicy_Do_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	fatal := errors.New("fatal")
	err := fastPolicy().Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return fatal
	}, func(err error) bool { return false })

	if !errors.Is(err, fatal) {
		t.Errorf("Expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call for non-retryable error, got %d", calls)
	}
}

func TestPolicy_Do_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{Attempts: 5, Delay: time.Minute, Backoff: 2.0, MaxDelay: time.Minute}
	err := p.Do(ctx, "op", func(ctx context.Context) error {
		return errors.New("transient")
	}, nil)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
