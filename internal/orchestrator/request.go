package orchestrator

// Request is one interaction as received from the client, consumed and
// discarded after normalization. The image is required; audio and text
// prompt are alternative sources of the same user utterance.
type Request struct {
	Image      []byte
	Audio      []byte
	TextPrompt string
}

// Result is the composed outcome of one interaction. AudioID references a
// synthesized clip in the audio store; empty means the response degraded
// to text-only.
type Result struct {
	Text    string `json:"text"`
	AudioID string `json:"audio_id,omitempty"`
	Stage   Stage  `json:"stage_reached"`
	Cached  bool   `json:"cached"`
}
