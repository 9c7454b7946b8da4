package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full environment surface of the assistant gateway.
// Every knob here is tunable without recompilation.
type Config struct {
	Port      string
	VersionID string // participates in cache keys, bump to invalidate

	// Result cache
	CacheBackend  string // "memory" or "redis"
	RedisAddr     string
	CacheTTL      time.Duration
	CacheCapacity int

	// AI provider (OpenAI-compatible API)
	ProviderAPIKey  string
	ProviderBaseURL string
	ChatModel       string
	TranscribeModel string
	SpeechModel     string
	SpeechVoice     string

	// Per-stage timeout / retry bounds
	TranscribeTimeout time.Duration
	TranscribeRetries int
	InferTimeout      time.Duration
	InferRetries      int
	SynthTimeout      time.Duration
	SynthRetries      int

	// HTTP limits
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// Load reads configuration from environment variables and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:      getenv("PORT", "8080"),
		VersionID: getenv("GATEWAY_VERSION", "v1"),

		CacheBackend:  getenv("CACHE_BACKEND", "memory"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		CacheTTL:      getenvSeconds("CACHE_TTL_SECONDS", 5*time.Minute),
		CacheCapacity: getenvInt("CACHE_CAPACITY", 1024),

		ProviderAPIKey:  os.Getenv("OPENAI_API_KEY"),
		ProviderBaseURL: getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:       getenv("CHAT_MODEL", "gpt-4o"),
		TranscribeModel: getenv("TRANSCRIBE_MODEL", "whisper-1"),
		SpeechModel:     getenv("SPEECH_MODEL", "tts-1"),
		SpeechVoice:     getenv("SPEECH_VOICE", "alloy"),

		TranscribeTimeout: getenvSeconds("TRANSCRIBE_TIMEOUT_SECONDS", 15*time.Second),
		TranscribeRetries: getenvInt("TRANSCRIBE_RETRIES", 2),
		InferTimeout:      getenvSeconds("INFER_TIMEOUT_SECONDS", 30*time.Second),
		InferRetries:      getenvInt("INFER_RETRIES", 2),
		SynthTimeout:      getenvSeconds("SYNTH_TIMEOUT_SECONDS", 20*time.Second),
		SynthRetries:      getenvInt("SYNTH_RETRIES", 1),

		RequestTimeout: getenvSeconds("REQUEST_TIMEOUT_SECONDS", 90*time.Second),
		MaxBodyBytes:   int64(getenvInt("MAX_BODY_BYTES", 32*1024*1024)),
	}

	if cfg.ProviderAPIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if cfg.CacheBackend != "memory" && cfg.CacheBackend != "redis" {
		return Config{}, fmt.Errorf("unsupported CACHE_BACKEND %q (memory or redis)", cfg.CacheBackend)
	}
	if cfg.CacheCapacity <= 0 {
		return Config{}, fmt.Errorf("CACHE_CAPACITY must be positive")
	}

	return cfg, nil
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
