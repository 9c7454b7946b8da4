package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lumen-assistant/internal/audiostore"
	"lumen-assistant/internal/cache"
	"lumen-assistant/internal/config"
	"lumen-assistant/internal/gateway"
	"lumen-assistant/internal/handlers"
	"lumen-assistant/internal/httpserver"
	"lumen-assistant/internal/metrics"
	"lumen-assistant/internal/orchestrator"
	"lumen-assistant/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("assistant exited with error: %v", err)
	}
}

func run() error {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg, err := config.Load()
	if err != nil {
		logger.Error("config error", zap.Error(err))
		return err
	}

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("version_id", cfg.VersionID),
		zap.String("chat_model", cfg.ChatModel),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	var pinger interface {
		Ping(ctx context.Context) error
	}
	if cfg.CacheBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.RedisAddr),
		)
	}

	// ----- Result cache -----
	store := cache.New(cache.Config{
		Backend:  cfg.CacheBackend,
		TTL:      cfg.CacheTTL,
		Capacity: cfg.CacheCapacity,
		Prefix:   "lumen",
	}, redisClient)
	if rs, ok := store.(*cache.RedisStore); ok {
		pinger = rs
	}
	store = cache.NewLoggingStore(store)
	defer func() {
		if closer, ok := store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}()

	// ----- Provider client (all three modalities) -----
	provider, err := gateway.NewClient(gateway.Config{
		APIKey:          cfg.ProviderAPIKey,
		BaseURL:         cfg.ProviderBaseURL,
		ChatModel:       cfg.ChatModel,
		TranscribeModel: cfg.TranscribeModel,
		SpeechModel:     cfg.SpeechModel,
		SpeechVoice:     cfg.SpeechVoice,
		TranscribePolicy: gateway.RetryPolicy{
			MaxAttempts: cfg.TranscribeRetries + 1,
			Backoff:     250 * time.Millisecond,
			Timeout:     cfg.TranscribeTimeout,
		},
		InferPolicy: gateway.RetryPolicy{
			MaxAttempts: cfg.InferRetries + 1,
			Backoff:     200 * time.Millisecond,
			Exponential: true,
			Timeout:     cfg.InferTimeout,
		},
		SynthPolicy: gateway.RetryPolicy{
			MaxAttempts: cfg.SynthRetries + 1,
			Backoff:     250 * time.Millisecond,
			Timeout:     cfg.SynthTimeout,
		},
	}, logger)
	if err != nil {
		logger.Error("provider client error", zap.Error(err))
		return err
	}

	// ----- Clip store -----
	clips := audiostore.New(cfg.CacheTTL)
	defer clips.Close()

	// ----- Orchestrator -----
	orc := orchestrator.New(orchestrator.Options{
		Cache:       store,
		CacheTTL:    cfg.CacheTTL,
		Transcriber: provider,
		Vision:      provider,
		Synthesizer: provider,
		Clips:       clips,
		VersionID:   cfg.VersionID,
	})

	// ----- Handlers -----
	h := httpserver.Handlers{
		Interact: handlers.NewInteractHandler(orc),
		Speech:   handlers.NewSpeechHandler(provider, provider),
		Clips:    handlers.NewClipHandler(clips),
		Health:   handlers.NewHealthHandler(cfg.VersionID, cfg.CacheBackend, pinger),
	}

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, h, httpserver.Options{
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting assistant gateway",
		zap.String("addr", srv.Addr),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("version_id", cfg.VersionID),
	)

	// Start server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
