package cache

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"lumen-assistant/internal/metrics"
	"lumen-assistant/pkg/logging"
)

// LoggingStore wraps a Store with logging + metrics.
type LoggingStore struct {
	inner Store
}

// NewLoggingStore returns a cache that logs and records metrics.
func NewLoggingStore(inner Store) Store {
	return &LoggingStore{inner: inner}
}

func (c *LoggingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := logging.L(ctx)

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
		// Prometheus: count cache hits
		metrics.CacheHitsTotal.Inc()
	}

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.String("cache_result", result), // hit | miss | error
		zap.Float64("latency_ms", latencyMs),
	}

	if parts, ok := parseKey(key); ok {
		fields = append(fields,
			zap.String("version_id", parts.versionID),
			zap.String("hash", parts.hash),
		)
	}

	if err != nil {
		logger.Error("result_cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Info("result_cache_get", fields...)
	}

	return value, ok, err
}

func (c *LoggingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, value, ttl)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := logging.L(ctx)

	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.Duration("ttl", ttl),
		zap.Float64("latency_ms", latencyMs),
	}

	if parts, ok := parseKey(key); ok {
		fields = append(fields,
			zap.String("version_id", parts.versionID),
			zap.String("hash", parts.hash),
		)
	}

	if err != nil {
		logger.Error("result_cache_set", append(fields, zap.Error(err))...)
	} else {
		logger.Info("result_cache_set", fields...)
	}

	return err
}

// --- helpers for parsing fingerprint.Key.String() ---

type keyParts struct {
	versionID string
	hash      string
}

// Expecting: interact:<VERSION_ID>:<HASH>
func parseKey(key string) (keyParts, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] != "interact" {
		return keyParts{}, false
	}
	return keyParts{
		versionID: parts[1],
		hash:      parts[2],
	}, true
}
