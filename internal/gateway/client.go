package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config wires the OpenAI-compatible provider behind all three modality
// adapters. One credential, one base URL, one policy per modality.
type Config struct {
	//required fields
	APIKey  string
	BaseURL string

	ChatModel       string // vision-capable chat model (default: gpt-4o)
	TranscribeModel string // default: whisper-1
	SpeechModel     string // default: tts-1
	SpeechVoice     string // default: alloy

	TranscribePolicy RetryPolicy
	InferPolicy      RetryPolicy
	SynthPolicy      RetryPolicy

	// Custom HTTP client (for testing or special configs)
	HTTPClient *http.Client
}

// Validate checks required fields only.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("APIKey is required")
	}
	return nil
}

// WithDefaults returns a copy of Config with sane defaults applied.
func (c *Config) WithDefaults() Config {
	cfg := *c

	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4o
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = openai.Whisper1
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = string(openai.TTSModel1)
	}
	if cfg.SpeechVoice == "" {
		cfg.SpeechVoice = string(openai.VoiceAlloy)
	}

	// Transcription: short fixed backoff; audio is usually best-effort
	// context so the retry budget stays small.
	if cfg.TranscribePolicy.MaxAttempts == 0 {
		cfg.TranscribePolicy = RetryPolicy{
			MaxAttempts: 3,
			Backoff:     250 * time.Millisecond,
			Timeout:     15 * time.Second,
		}
	}
	// Inference: the dominant-latency, dominant-failure-risk call.
	// Exponential backoff with jitter against rate limits.
	if cfg.InferPolicy.MaxAttempts == 0 {
		cfg.InferPolicy = RetryPolicy{
			MaxAttempts: 3,
			Backoff:     200 * time.Millisecond,
			Exponential: true,
			Timeout:     30 * time.Second,
		}
	}
	// Synthesis: one retry at most, failures degrade to text-only anyway.
	if cfg.SynthPolicy.MaxAttempts == 0 {
		cfg.SynthPolicy = RetryPolicy{
			MaxAttempts: 2,
			Backoff:     250 * time.Millisecond,
			Timeout:     20 * time.Second,
		}
	}

	return cfg
}

// Client implements Transcriber, VisionModel and Synthesizer against one
// OpenAI-compatible provider.
type Client struct {
	cfg    Config
	api    *openai.Client
	logger *zap.Logger
}

// NewClient creates the provider client with the given configuration.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		apiCfg.HTTPClient = cfg.HTTPClient
	}

	return &Client{
		cfg:    cfg,
		api:    openai.NewClientWithConfig(apiCfg),
		logger: logger.Named("modality"),
	}, nil
}
