package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"lumen-assistant/internal/gateway"
	"lumen-assistant/internal/media"
	"lumen-assistant/pkg/logging"
)

// SpeechHandler exposes the two modality adapters directly: standalone
// transcription and standalone text-to-speech, outside the interaction
// pipeline.
type SpeechHandler struct {
	Transcriber gateway.Transcriber
	Synthesizer gateway.Synthesizer
}

func NewSpeechHandler(tr gateway.Transcriber, syn gateway.Synthesizer) *SpeechHandler {
	return &SpeechHandler{Transcriber: tr, Synthesizer: syn}
}

// Transcribe handles POST /api/transcribe: multipart form with an "audio"
// file part, answering {"text": ...}.
func (h *SpeechHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form data", "")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	raw, err := formFileBytes(r, "audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio part is required", "")
		return
	}

	audio, format, err := media.NormalizeAudio(raw)
	if err != nil {
		logger.Warn("unusable audio upload", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	text, err := h.Transcriber.Transcribe(ctx, audio, format)
	if err != nil {
		logger.Warn("transcription failed", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, "transcription failed", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// Synthesize handles POST /api/tts: JSON {"text": ...}, answering raw
// audio bytes.
func (h *SpeechHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required", "")
		return
	}

	speech, err := h.Synthesizer.Synthesize(ctx, req.Text)
	if err != nil {
		logger.Warn("synthesis failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "speech synthesis failed", "")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(speech)
}
