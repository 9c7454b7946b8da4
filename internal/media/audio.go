package media

import (
	"bytes"
	"fmt"
)

// MaxAudioBytes caps uploaded audio size.
const MaxAudioBytes = 25 * 1024 * 1024

// NormalizeAudio validates an uploaded recording and sniffs its container
// format from magic bytes. The bytes pass through unchanged; transcription
// consumes common containers directly, we only need a filename extension
// for the upload and an early rejection of obviously broken input.
func NormalizeAudio(raw []byte) ([]byte, string, error) {
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("audio is empty")
	}
	if len(raw) > MaxAudioBytes {
		return nil, "", fmt.Errorf("audio too large (%d bytes, max %d)", len(raw), MaxAudioBytes)
	}

	format, ok := sniffAudioFormat(raw)
	if !ok {
		return nil, "", fmt.Errorf("unrecognized audio format")
	}

	return raw, format, nil
}

func sniffAudioFormat(raw []byte) (string, bool) {
	switch {
	case len(raw) >= 12 && bytes.Equal(raw[0:4], []byte("RIFF")) && bytes.Equal(raw[8:12], []byte("WAVE")):
		return "wav", true
	case len(raw) >= 3 && bytes.Equal(raw[0:3], []byte("ID3")):
		return "mp3", true
	case len(raw) >= 2 && raw[0] == 0xFF && raw[1]&0xE0 == 0xE0:
		// raw MPEG frame sync
		return "mp3", true
	case len(raw) >= 4 && bytes.Equal(raw[0:4], []byte("OggS")):
		return "ogg", true
	case len(raw) >= 4 && bytes.Equal(raw[0:4], []byte("fLaC")):
		return "flac", true
	case len(raw) >= 12 && bytes.Equal(raw[4:8], []byte("ftyp")):
		return "m4a", true
	case len(raw) >= 4 && bytes.Equal(raw[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "webm", true
	default:
		return "", false
	}
}
