package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"lumen-assistant/internal/audiostore"
	"lumen-assistant/internal/cache"
	"lumen-assistant/internal/orchestrator"
)

type fakeTranscriber struct {
	calls int
	text  string
	err   error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeVision struct {
	calls  int
	answer string
	err    error
}

func (f *fakeVision) Infer(context.Context, string, []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeSynth struct {
	calls int
	err   error
}

func (f *fakeSynth) Synthesize(context.Context, string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3-bytes"), nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func wavBytes() []byte {
	return append([]byte("RIFF\x00\x00\x00\x00WAVEfmt "), make([]byte, 16)...)
}

// multipartBody builds an /api/interact request body. Nil parts are
// omitted.
func multipartBody(t *testing.T, img, audio []byte, textPrompt string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if img != nil {
		fw, err := mw.CreateFormFile("image", "photo.png")
		if err != nil {
			t.Fatalf("create image part: %v", err)
		}
		_, _ = fw.Write(img)
	}
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "recording.wav")
		if err != nil {
			t.Fatalf("create audio part: %v", err)
		}
		_, _ = fw.Write(audio)
	}
	if textPrompt != "" {
		_ = mw.WriteField("text_prompt", textPrompt)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func newInteractHandler(t *testing.T, tr *fakeTranscriber, vis *fakeVision, syn *fakeSynth) (*InteractHandler, *audiostore.Store) {
	t.Helper()

	store := cache.NewMemoryStore(32, time.Minute)
	t.Cleanup(func() { store.Close() })
	clips := audiostore.New(time.Minute)
	t.Cleanup(func() { clips.Close() })

	orc := orchestrator.New(orchestrator.Options{
		Cache:       store,
		CacheTTL:    time.Minute,
		Transcriber: tr,
		Vision:      vis,
		Synthesizer: syn,
		Clips:       clips,
		VersionID:   "vtest",
	})
	return NewInteractHandler(orc), clips
}

func TestInteractFreshRequest(t *testing.T) {
	vis := &fakeVision{answer: "blue"}
	h, clips := newInteractHandler(t, &fakeTranscriber{}, vis, &fakeSynth{})

	body, contentType := multipartBody(t, pngBytes(t), nil, "what color is this")
	req := httptest.NewRequest(http.MethodPost, "/api/interact", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.Interact(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp interactResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Text != "blue" || resp.Cached {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.HasPrefix(resp.AudioURL, "/api/audio/") {
		t.Fatalf("expected clip URL, got %q", resp.AudioURL)
	}

	clipID := strings.TrimPrefix(resp.AudioURL, "/api/audio/")
	if _, _, ok := clips.Get(clipID); !ok {
		t.Fatalf("clip %q not stored", clipID)
	}
}

func TestInteractSecondRequestIsCached(t *testing.T) {
	vis := &fakeVision{answer: "blue"}
	h, _ := newInteractHandler(t, &fakeTranscriber{}, vis, &fakeSynth{})

	img := pngBytes(t)
	for i := 0; i < 2; i++ {
		body, contentType := multipartBody(t, img, nil, "what color is this")
		req := httptest.NewRequest(http.MethodPost, "/api/interact", body)
		req.Header.Set("Content-Type", contentType)

		rr := httptest.NewRecorder()
		h.Interact(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}

		var resp interactResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if wantCached := i == 1; resp.Cached != wantCached {
			t.Fatalf("request %d: cached=%v, want %v", i, resp.Cached, wantCached)
		}
	}

	if vis.calls != 1 {
		t.Fatalf("expected one inference across both requests, got %d", vis.calls)
	}
}

func TestInteractMissingImage(t *testing.T) {
	vis := &fakeVision{answer: "blue"}
	h, _ := newInteractHandler(t, &fakeTranscriber{}, vis, &fakeSynth{})

	body, contentType := multipartBody(t, nil, wavBytes(), "")
	req := httptest.NewRequest(http.MethodPost, "/api/interact", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.Interact(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if vis.calls != 0 {
		t.Fatalf("inference must not run without an image")
	}
}

func TestInteractAudioOnlyTranscriptionFailure(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("garbled")}
	h, _ := newInteractHandler(t, tr, &fakeVision{answer: "blue"}, &fakeSynth{})

	body, contentType := multipartBody(t, pngBytes(t), wavBytes(), "")
	req := httptest.NewRequest(http.MethodPost, "/api/interact", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.Interact(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}

	var eb errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &eb); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if eb.Stage != "transcribing" {
		t.Fatalf("expected transcribing stage in error, got %q", eb.Stage)
	}
}

func TestInteractUpstreamFailure(t *testing.T) {
	vis := &fakeVision{err: errors.New("provider down")}
	h, _ := newInteractHandler(t, &fakeTranscriber{}, vis, &fakeSynth{})

	body, contentType := multipartBody(t, pngBytes(t), nil, "hi")
	req := httptest.NewRequest(http.MethodPost, "/api/interact", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.Interact(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestInteractSynthesisFailureStillOK(t *testing.T) {
	syn := &fakeSynth{err: errors.New("voice down")}
	h, _ := newInteractHandler(t, &fakeTranscriber{}, &fakeVision{answer: "blue"}, syn)

	body, contentType := multipartBody(t, pngBytes(t), nil, "what color is this")
	req := httptest.NewRequest(http.MethodPost, "/api/interact", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.Interact(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 despite synthesis failure, got %d", rr.Code)
	}

	var resp interactResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Text != "blue" || resp.AudioURL != "" {
		t.Fatalf("expected text-only response, got %+v", resp)
	}
}

func TestClipRoundTrip(t *testing.T) {
	clips := audiostore.New(time.Minute)
	t.Cleanup(func() { clips.Close() })

	id := clips.Put([]byte("mp3-bytes"), "audio/mpeg")

	r := chi.NewRouter()
	r.Get("/api/audio/{clipID}", NewClipHandler(clips).Clip)

	req := httptest.NewRequest(http.MethodGet, "/api/audio/"+id, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rr.Body.String() != "mp3-bytes" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/audio/nope", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown clip, got %d", rr.Code)
	}
}
