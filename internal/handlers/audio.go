package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lumen-assistant/internal/audiostore"
)

// ClipHandler serves synthesized audio clips referenced by interaction
// responses.
type ClipHandler struct {
	Clips *audiostore.Store
}

func NewClipHandler(clips *audiostore.Store) *ClipHandler {
	return &ClipHandler{Clips: clips}
}

// Clip handles GET /api/audio/{clipID}. Clips expire with their cache
// entries, so a 404 here means the client should re-run the interaction.
func (h *ClipHandler) Clip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "clipID")

	data, contentType, ok := h.Clips.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown or expired clip", "")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
