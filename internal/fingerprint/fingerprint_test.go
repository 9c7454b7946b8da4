package fingerprint

import "testing"

func TestNewDeterministic(t *testing.T) {
	img := []byte{0xFF, 0xD8, 0x01, 0x02}

	a := New(img, "what color is this", "v1")
	b := New(img, "what color is this", "v1")

	if a != b {
		t.Fatalf("identical inputs produced different keys: %v vs %v", a, b)
	}
}

func TestNewFoldsTextCaseAndWhitespace(t *testing.T) {
	img := []byte{0xFF, 0xD8, 0x01, 0x02}

	a := New(img, "What   Color is\tthis?", "v1")
	b := New(img, "what color is this?", "v1")

	if a.Hash != b.Hash {
		t.Fatalf("folded text should hash identically: %s vs %s", a.Hash, b.Hash)
	}
}

func TestNewSensitiveToImageBytes(t *testing.T) {
	a := New([]byte{1, 2, 3}, "hello", "v1")
	b := New([]byte{1, 2, 4}, "hello", "v1")

	if a.Hash == b.Hash {
		t.Fatalf("different images must not collide")
	}
}

func TestNewSeparatorPreventsAliasing(t *testing.T) {
	// image bytes bleeding into text (or vice versa) must not produce
	// the same digest
	a := New([]byte("abc"), "def", "v1")
	b := New([]byte("abcd"), "ef", "v1")

	if a.Hash == b.Hash {
		t.Fatalf("image/text boundary aliasing detected")
	}
}

func TestKeyString(t *testing.T) {
	k := Key{VersionID: "v2", Hash: "deadbeef"}
	if got := k.String(); got != "interact:v2:deadbeef" {
		t.Fatalf("unexpected key string: %s", got)
	}
}

func TestFold(t *testing.T) {
	if got := Fold("  What   COLOR\n is this  "); got != "what color is this" {
		t.Fatalf("unexpected fold result: %q", got)
	}
	if got := Fold(""); got != "" {
		t.Fatalf("empty text should fold to empty, got %q", got)
	}
}
