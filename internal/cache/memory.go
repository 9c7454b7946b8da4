package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore is a TTL + capacity bounded in-process cache. When full it
// evicts the oldest entry by insertion order regardless of TTL: a plain
// FIFO bound, not LRU, which keeps eviction O(1) and the cache an
// optimization rather than a store anything depends on.
type MemoryStore struct {
	mu              sync.Mutex
	items           map[string]memoryEntry
	order           []string // insertion order, oldest first
	capacity        int
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
	cleanupInterval time.Duration
}

// NewMemoryStore creates an in-process cache holding at most capacity
// entries. A background janitor sweeps expired entries every
// cleanupInterval (default 1 minute).
func NewMemoryStore(capacity int, cleanupInterval time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = 1024
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	c := &MemoryStore{
		items:           make(map[string]memoryEntry),
		capacity:        capacity,
		stopCleanup:     make(chan struct{}),
		cleanupInterval: cleanupInterval,
	}

	//background cleanup routine
	go c.cleanupExpired()

	return c
}

// Get returns the cached value. Expired entries behave as a miss and are
// evicted passively.
func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		c.removeLocked(key)
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores a value with the given ttl. A non-positive ttl removes the key.
func (c *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		c.removeLocked(key)
		return nil
	}

	// Copy to decouple from caller's buffer
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	if _, exists := c.items[key]; exists {
		// Rewriting an entry re-queues it at the back of the FIFO.
		c.removeLocked(key)
	}

	// Full: evict oldest insertion regardless of remaining TTL.
	for len(c.items) >= c.capacity && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}

	now := time.Now()
	c.items[key] = memoryEntry{
		value:     valueCopy,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	c.order = append(c.order, key)

	return nil
}

// removeLocked drops key from both the map and the FIFO order.
// Caller must hold c.mu.
func (c *MemoryStore) removeLocked(key string) {
	if _, ok := c.items[key]; !ok {
		return
	}
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// cleanupExpired runs periodically to remove expired entries.
func (c *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, v := range c.items {
				if now.After(v.expiresAt) {
					c.removeLocked(k)
				}
			}
			c.mu.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the janitor and clears all entries. Call on shutdown.
func (c *MemoryStore) Close() error {
	c.cleanupOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.Clear()
	return nil
}

// Len returns the number of items currently in the cache.
func (c *MemoryStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all items from cache. Useful for tests or manual resets.
func (c *MemoryStore) Clear() {
	c.mu.Lock()
	c.items = make(map[string]memoryEntry)
	c.order = nil
	c.mu.Unlock()
}
