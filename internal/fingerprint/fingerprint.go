package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key identifies one normalized interaction. It is the cache key and the
// in-flight deduplication key.
type Key struct {
	VersionID string
	Hash      string
}

// String converts the structured key into the final string used in Redis/map.
func (k Key) String() string {
	// interact:<VERSION_ID>:<HASH_HEX>
	return "interact:" + k.VersionID + ":" + k.Hash
}

// New derives a deterministic key from the canonical image bytes and the
// user utterance. The image is hashed in full: visual context changes the
// correct answer even under small pixel differences, so no perceptual
// hashing. Text is folded (case + whitespace) before hashing, so two
// requests asking the same question with trivially different spacing
// collapse; nothing deeper than that, exact-match caching only.
func New(image []byte, text string, versionID string) Key {
	h := sha256.New()
	h.Write(image)
	h.Write([]byte{0}) // separator so image/text boundaries can't alias
	h.Write([]byte(Fold(text)))

	return Key{
		VersionID: strings.TrimSpace(versionID),
		Hash:      hex.EncodeToString(h.Sum(nil)),
	}
}

// Fold lower-cases the utterance and collapses runs of whitespace.
func Fold(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
