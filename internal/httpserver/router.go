package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"lumen-assistant/internal/handlers"
	"lumen-assistant/internal/metrics"
	"lumen-assistant/internal/middleware"
)

// Options carries the knobs the router needs beyond its handlers.
type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// Handlers groups every endpoint the gateway serves.
type Handlers struct {
	Interact *handlers.InteractHandler
	Speech   *handlers.SpeechHandler
	Clips    *handlers.ClipHandler
	Health   *handlers.HealthHandler
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, h Handlers, opts Options) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 90 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 32 << 20
	}

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))

	// routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/interact", h.Interact.Interact)
		r.Post("/transcribe", h.Speech.Transcribe)
		r.Post("/tts", h.Speech.Synthesize)
		r.Get("/audio/{clipID}", h.Clips.Clip)
	})

	// health checks
	r.Get("/health", h.Health.Health)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}
