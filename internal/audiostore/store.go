package audiostore

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type clip struct {
	data        []byte
	contentType string
	expiresAt   time.Time
}

// Store holds synthesized audio clips so responses can carry a URL instead
// of inlining megabytes of base64. Clips live at least as long as the
// result cache entries that reference them.
type Store struct {
	mu          sync.Mutex
	clips       map[string]clip
	ttl         time.Duration
	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// New creates a clip store. ttl bounds clip lifetime; a janitor sweeps
// expired clips once a minute.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	s := &Store{
		clips:       make(map[string]clip),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}
	go s.cleanupExpired()
	return s
}

// Put stores a clip and returns its id.
func (s *Store) Put(data []byte, contentType string) string {
	id := uuid.NewString()
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	s.mu.Lock()
	s.clips[id] = clip{
		data:        dataCopy,
		contentType: contentType,
		expiresAt:   time.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	return id
}

// Get returns the clip bytes and content type, or ok=false if the clip is
// unknown or expired.
func (s *Store) Get(id string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clips[id]
	if !ok {
		return nil, "", false
	}
	if time.Now().After(c.expiresAt) {
		delete(s.clips, id)
		return nil, "", false
	}
	return c.data, c.contentType, true
}

// Touch extends a clip's lifetime when a cached result referencing it is
// served again.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clips[id]; ok {
		c.expiresAt = time.Now().Add(s.ttl)
		s.clips[id] = c
	}
}

// Len returns the number of stored clips.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}

func (s *Store) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, c := range s.clips {
				if now.After(c.expiresAt) {
					delete(s.clips, id)
				}
			}
			s.mu.Unlock()
		case <-s.stopCleanup:
			return
		}
	}
}

// Close stops the janitor and drops all clips.
func (s *Store) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	s.mu.Lock()
	s.clips = make(map[string]clip)
	s.mu.Unlock()
	return nil
}
