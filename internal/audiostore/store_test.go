package audiostore

import (
	"testing"
	"time"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New(time.Minute)
	defer s.Close()

	id := s.Put([]byte("mp3-bytes"), "audio/mpeg")
	if id == "" {
		t.Fatalf("expected a non-empty clip id")
	}

	data, contentType, ok := s.Get(id)
	if !ok {
		t.Fatalf("expected clip to be present")
	}
	if string(data) != "mp3-bytes" || contentType != "audio/mpeg" {
		t.Fatalf("unexpected clip: %q %s", data, contentType)
	}
}

func TestGetUnknownClip(t *testing.T) {
	s := New(time.Minute)
	defer s.Close()

	if _, _, ok := s.Get("nope"); ok {
		t.Fatalf("expected miss for unknown id")
	}
}

func TestClipExpires(t *testing.T) {
	s := New(20 * time.Millisecond)
	defer s.Close()

	id := s.Put([]byte("x"), "")
	time.Sleep(40 * time.Millisecond)

	if _, _, ok := s.Get(id); ok {
		t.Fatalf("expected clip to expire")
	}
}

func TestCloseDropsClips(t *testing.T) {
	s := New(time.Minute)
	s.Put([]byte("x"), "")

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store after Close, got %d", s.Len())
	}
}

func TestPutCopiesData(t *testing.T) {
	s := New(time.Minute)
	defer s.Close()

	buf := []byte("original")
	id := s.Put(buf, "")
	buf[0] = 'X'

	data, _, _ := s.Get(id)
	if string(data) != "original" {
		t.Fatalf("stored clip must be decoupled from caller's buffer, got %q", data)
	}
}
