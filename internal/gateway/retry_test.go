package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap/zaptest"
)

func TestDoWithRetrySucceedsFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := doWithRetry(context.Background(), zaptest.NewLogger(t), "op",
		RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond},
		func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("doWithRetry: %v", err)
	}
	if got != "ok" || calls != 1 {
		t.Fatalf("expected one successful call, got %q after %d calls", got, calls)
	}
}

func TestDoWithRetryRetriesRetryableThenSucceeds(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := doWithRetry(context.Background(), zaptest.NewLogger(t), "op",
		RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond},
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", &openai.APIError{HTTPStatusCode: 503, Message: "overloaded"}
			}
			return "recovered", nil
		})
	if err != nil {
		t.Fatalf("doWithRetry: %v", err)
	}
	if got != "recovered" || calls != 3 {
		t.Fatalf("expected success on third call, got %q after %d calls", got, calls)
	}
}

func TestDoWithRetryStopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	authErr := &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}
	calls := 0
	_, err := doWithRetry(context.Background(), zaptest.NewLogger(t), "op",
		RetryPolicy{MaxAttempts: 5, Backoff: time.Millisecond},
		func(ctx context.Context) (string, error) {
			calls++
			return "", authErr
		})
	if !errors.Is(err, authErr) {
		t.Fatalf("expected the auth error to surface, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("auth errors must fail fast, got %d calls", calls)
	}
}

func TestDoWithRetryExhaustsAttempts(t *testing.T) {
	t.Parallel()

	rateErr := &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
	calls := 0
	_, err := doWithRetry(context.Background(), zaptest.NewLogger(t), "op",
		RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond},
		func(ctx context.Context) (string, error) {
			calls++
			return "", rateErr
		})
	if err == nil || !errors.Is(err, rateErr) {
		t.Fatalf("expected wrapped rate-limit error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
}

func TestDoWithRetryAttemptTimeoutIsRetryable(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := doWithRetry(context.Background(), zaptest.NewLogger(t), "op",
		RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond, Timeout: 20 * time.Millisecond},
		func(ctx context.Context) (string, error) {
			calls++
			if calls == 1 {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "fast", nil
		})
	if err != nil {
		t.Fatalf("doWithRetry: %v", err)
	}
	if got != "fast" || calls != 2 {
		t.Fatalf("timeout should have been retried, got %q after %d calls", got, calls)
	}
}

func TestDoWithRetryHonorsCallerContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := doWithRetry(ctx, zaptest.NewLogger(t), "op",
		RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond},
		func(ctx context.Context) (string, error) {
			calls++
			return "", nil
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("cancelled context must prevent attempts, got %d", calls)
	}
}

func TestRetryableUpstreamClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &openai.APIError{HTTPStatusCode: 429}, true},
		{"request timeout", &openai.APIError{HTTPStatusCode: 408}, true},
		{"server error", &openai.APIError{HTTPStatusCode: 502}, true},
		{"auth", &openai.APIError{HTTPStatusCode: 401}, false},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, false},
		{"no choices", errNoChoices, true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"plain error", errors.New("something else"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RetryableUpstream(tc.err); got != tc.want {
				t.Fatalf("RetryableUpstream(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestComputeBackoffFixed(t *testing.T) {
	t.Parallel()

	for attempt := 0; attempt < 5; attempt++ {
		if got := computeBackoff(250*time.Millisecond, attempt, false); got != 250*time.Millisecond {
			t.Fatalf("fixed backoff changed at attempt %d: %v", attempt, got)
		}
	}
}

func TestComputeBackoffExponentialBounded(t *testing.T) {
	t.Parallel()

	for attempt := 0; attempt < 20; attempt++ {
		got := computeBackoff(100*time.Millisecond, attempt, true)
		if got < 0 {
			t.Fatalf("negative backoff at attempt %d", attempt)
		}
		if got > 30*time.Second {
			t.Fatalf("backoff exceeds cap at attempt %d: %v", attempt, got)
		}
	}
}
