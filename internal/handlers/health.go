package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler reports service readiness. Pinger is nil when the cache
// runs in memory; with Redis enabled a failing ping degrades the report.
type HealthHandler struct {
	VersionID    string
	CacheBackend string
	Pinger       interface {
		Ping(ctx context.Context) error
	}
}

func NewHealthHandler(versionID, cacheBackend string, pinger interface {
	Ping(ctx context.Context) error
}) *HealthHandler {
	return &HealthHandler{
		VersionID:    versionID,
		CacheBackend: cacheBackend,
		Pinger:       pinger,
	}
}

type healthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	CacheBackend string `json:"cache_backend"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:       "ok",
		Version:      h.VersionID,
		CacheBackend: h.CacheBackend,
	}

	if h.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Pinger.Ping(ctx); err != nil {
			resp.Status = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
