package gateway

import "context"

// The three modality collaborators the pipeline depends on. Each adapter
// owns its timeout and retry policy; callers see a single blocking call.

// Transcriber turns a voice recording into text. format is the sniffed
// container ("wav", "mp3", ...), used for the upload filename.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// VisionModel answers a text prompt grounded in a canonical JPEG image.
type VisionModel interface {
	Infer(ctx context.Context, prompt string, imageJPEG []byte) (string, error)
}

// Synthesizer renders spoken audio for a textual answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
