package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"lumen-assistant/internal/metrics"
)

// RetryPolicy is the per-adapter retry contract: how many attempts, how
// long each attempt may take, how to wait between attempts, and which
// errors qualify for another try. Keeping it a value makes the policy
// testable without any network calls.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	Backoff     time.Duration // base delay between attempts
	Exponential bool          // full-jitter exponential growth vs fixed delay
	Timeout     time.Duration // per-attempt deadline
	Retryable   func(error) bool
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff <= 0 {
		p.Backoff = 100 * time.Millisecond
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	if p.Retryable == nil {
		p.Retryable = RetryableUpstream
	}
	return p
}

// doWithRetry runs fn under the policy. Each attempt gets its own deadline
// derived from ctx; an attempt that outlives its deadline counts as a
// retryable failure as long as ctx itself is still alive.
func doWithRetry[T any](
	ctx context.Context,
	logger *zap.Logger,
	op string,
	p RetryPolicy,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	p = p.withDefaults()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		start := time.Now()
		v, err := fn(attemptCtx)
		duration := time.Since(start)
		cancel()

		logger.Debug("modality attempt",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("duration", duration),
			zap.Error(err),
		)

		if err == nil {
			return v, nil
		}
		lastErr = err

		// The caller's context ended: the attempt error is just fallout.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		// A per-attempt timeout is retryable; everything else is up to
		// the policy's classifier.
		if !errors.Is(err, context.DeadlineExceeded) && !p.Retryable(err) {
			logger.Debug("non-retryable modality error",
				zap.String("operation", op),
				zap.Error(err),
			)
			return zero, err
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		metrics.ModalityRetriesTotal.WithLabelValues(op).Inc()

		backoff := computeBackoff(p.Backoff, attempt, p.Exponential)
		logger.Debug("backing off before retry",
			zap.String("operation", op),
			zap.Duration("backoff", backoff),
			zap.Int("next_attempt", attempt+2),
		)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}

	logger.Warn("modality call exhausted all retries",
		zap.String("operation", op),
		zap.Int("attempts", p.MaxAttempts),
		zap.Error(lastErr),
	)
	return zero, fmt.Errorf("%s: %d attempts exhausted: %w", op, p.MaxAttempts, lastErr)
}

// computeBackoff returns the wait before the next attempt. Fixed mode
// returns the base delay as-is. Exponential mode applies full jitter:
// a random value between 0 and base * 2^attempt, capped.
func computeBackoff(base time.Duration, attempt int, exponential bool) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if !exponential {
		return base
	}

	// Cap the exponent to prevent overflow
	const maxExponent = 10
	if attempt > maxExponent {
		attempt = maxExponent
	}

	maxBackoff := time.Duration(float64(base) * math.Pow(2, float64(attempt)))

	const maxAllowed = 30 * time.Second
	if maxBackoff > maxAllowed {
		maxBackoff = maxAllowed
	}

	// Full jitter prevents synchronized retries across callers.
	return time.Duration(rand.Float64() * float64(maxBackoff))
}

// errNoChoices marks a structurally empty provider response; it counts as
// a malformed upstream reply and qualifies for retry.
var errNoChoices = errors.New("provider returned no choices")

// RetryableUpstream classifies provider errors: rate limits, request
// timeouts, server-side failures and malformed replies qualify for
// another attempt; authentication and malformed-request errors fail fast.
func RetryableUpstream(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errNoChoices) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return shouldRetryStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return shouldRetryStatus(reqErr.HTTPStatusCode)
	}

	return isTransientNetError(err)
}

// shouldRetryStatus returns true if the HTTP status code indicates
// the request should be retried.
func shouldRetryStatus(status int) bool {
	switch {
	case status == 0:
		// No response received (network error)
		return true
	case status == http.StatusTooManyRequests: // 429
		return true
	case status == http.StatusRequestTimeout: // 408
		return true
	case status >= 500 && status <= 599:
		return true
	default:
		// 2xx success, 3xx redirects, 4xx client errors - don't retry
		return false
	}
}

// isTransientNetError determines whether a network error is worth retrying.
func isTransientNetError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" || opErr.Op == "read" || opErr.Op == "write" {
			return true
		}
	}

	// Wrapped errors sometimes only expose a message.
	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"temporary failure",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
