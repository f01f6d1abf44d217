package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetries(t *testing.T) {
	t.Helper()
	old := retryBaseDelay
	retryBaseDelay = time.Millisecond
	t.Cleanup(func() { retryBaseDelay = old })
}

func TestWithRetryEventualSuccess(t *testing.T) {
	fastRetries(t)
	calls := 0
	op := func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}
	v, err := WithRetry(context.Background(), op, 3)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if v != "ok" {
		t.Fatalf("unexpected value %q", v)
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 calls, got %d", calls)
	}
}

func TestWithRetryStopsOnFirstSuccess(t *testing.T) {
	fastRetries(t)
	calls := 0
	op := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}
	if _, err := WithRetry(context.Background(), op, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithRetryPropagatesFinalError(t *testing.T) {
	fastRetries(t)
	calls := 0
	op := func(context.Context) (string, error) {
		calls++
		return "", errors.New("attempt " + string(rune('0'+calls)))
	}
	_, err := WithRetry(context.Background(), op, 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if err.Error() != "attempt 3" {
		t.Fatalf("expected final attempt's error, got %q", err)
	}
}

func TestWithRetryHonorsContextBetweenAttempts(t *testing.T) {
	old := retryBaseDelay
	retryBaseDelay = time.Hour
	t.Cleanup(func() { retryBaseDelay = old })

	ctx, cancel := context.WithCancel(context.Background())
	op := func(context.Context) (string, error) {
		cancel()
		return "", errors.New("fail")
	}
	_, err := WithRetry(ctx, op, 3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
