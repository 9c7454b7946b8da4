package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"lumen-assistant/internal/orchestrator"
	"lumen-assistant/pkg/logging"
)

// maxMultipartMemory bounds how much of a parsed form stays in memory;
// larger parts spill to temp files.
const maxMultipartMemory = 8 << 20

// InteractHandler holds dependencies for the /api/interact endpoint.
type InteractHandler struct {
	Orc *orchestrator.Orchestrator
}

func NewInteractHandler(orc *orchestrator.Orchestrator) *InteractHandler {
	return &InteractHandler{Orc: orc}
}

// interactResponse is the wire shape of a completed interaction. AudioURL
// points at the clip endpoint; absent means the answer is text-only.
type interactResponse struct {
	Text     string `json:"text"`
	AudioURL string `json:"audio_url,omitempty"`
	Cached   bool   `json:"cached"`
}

// Interact handles POST /api/interact. The request is multipart form data:
// an "image" file part (required), an "audio" file part and a
// "text_prompt" value (both optional).
func (h *InteractHandler) Interact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		logger.Warn("invalid multipart form", zap.Error(err))
		writeError(w, http.StatusBadRequest, "expected multipart form data", "")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	image, err := formFileBytes(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image part is required", "")
		return
	}
	audio, _ := formFileBytes(r, "audio")

	req := orchestrator.Request{
		Image:      image,
		Audio:      audio,
		TextPrompt: r.FormValue("text_prompt"),
	}

	res, err := h.Orc.Run(ctx, req)
	if err != nil {
		status, stage := mapPipelineError(err)
		logger.Warn("interaction failed",
			zap.Int("status", status),
			zap.String("stage", stage),
			zap.Error(err),
			zap.Duration("total_latency_ms", time.Since(start)),
		)
		writeError(w, status, err.Error(), stage)
		return
	}

	resp := interactResponse{
		Text:   res.Text,
		Cached: res.Cached,
	}
	if res.AudioID != "" {
		resp.AudioURL = "/api/audio/" + res.AudioID
	}

	logger.Info("interaction_complete",
		zap.Bool("cache_hit", res.Cached),
		zap.Bool("has_audio", res.AudioID != ""),
		zap.Duration("total_latency_ms", time.Since(start)),
	)

	writeJSON(w, http.StatusOK, resp)
}

// mapPipelineError translates the pipeline error taxonomy to HTTP.
func mapPipelineError(err error) (int, string) {
	stage := ""
	if s, ok := orchestrator.FailureStage(err); ok {
		stage = s.String()
	}

	var verr *orchestrator.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, stage
	}
	var terr *orchestrator.TranscriptionError
	if errors.As(err, &terr) {
		return http.StatusUnprocessableEntity, stage
	}
	var uerr *orchestrator.UpstreamAIError
	if errors.As(err, &uerr) {
		return http.StatusBadGateway, stage
	}
	return http.StatusInternalServerError, stage
}

// formFileBytes reads one uploaded file part fully into memory. The body
// size is already bounded by the MaxBodySize middleware.
func formFileBytes(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readAll(file)
}

func readAll(f multipart.File) ([]byte, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}
