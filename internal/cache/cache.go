// Package cache implements the bounded in-memory byte cache used when
// serving video/audio artifacts, so repeated preview requests do not re-read
// large files from disk.
//
// Implementation uses a hash map for O(1) key lookup combined with a doubly
// linked list for O(1) least-recently-used eviction ordering. The bound is
// expressed in bytes, not entries, since entry sizes vary by orders of
// magnitude.
package cache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// node is a doubly linked list node holding one cached artifact.
type node struct {
	key        string
	data       []byte
	lastAccess time.Time
	prev       *node
	next       *node
}

// Stats reports the cache occupancy for observability.
type Stats struct {
	Entries    int   `json:"entries"`
	TotalBytes int64 `json:"total_bytes"`
}

// Cache is a thread-safe, byte-bounded LRU cache. Content at a given key is
// immutable once written, so racing writers for the same key are resolved
// last-writer-wins.
type Cache struct {
	mu            sync.Mutex
	maxBytes      int64
	maxEntryBytes int64
	totalBytes    int64
	items         map[string]*node
	head          *node // most recently used (sentinel)
	tail          *node // least recently used (sentinel)
	logger        zerolog.Logger
}

// New creates a cache bounded at maxBytes total, rejecting entries larger
// than maxEntryBytes.
func New(maxBytes, maxEntryBytes int64, logger zerolog.Logger) *Cache {
	head := &node{}
	tail := &node{}
	head.next = tail
	tail.prev = head

	return &Cache{
		maxBytes:      maxBytes,
		maxEntryBytes: maxEntryBytes,
		items:         make(map[string]*node),
		head:          head,
		tail:          tail,
		logger:        logger.With().Str("component", "cache").Logger(),
	}
}

// Get retrieves the bytes for key and marks the entry recently used.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		return nil, false
	}
	n.lastAccess = time.Now()
	c.moveToFront(n)
	return n.data, true
}

// Set inserts data under key. Entries exceeding the per-entry ceiling are
// rejected as a no-op so a single oversized artifact cannot flush the cache.
// When the insertion would exceed the total bound, least-recently-used
// entries are evicted until it fits.
func (c *Cache) Set(key string, data []byte) {
	size := int64(len(data))
	if size == 0 || size > c.maxEntryBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.items[key]; ok {
		c.totalBytes += size - int64(len(existing.data))
		existing.data = data
		existing.lastAccess = time.Now()
		c.moveToFront(existing)
	} else {
		n := &node{key: key, data: data, lastAccess: time.Now()}
		c.items[key] = n
		c.pushFront(n)
		c.totalBytes += size
	}

	for c.totalBytes > c.maxBytes && c.tail.prev != c.head {
		victim := c.tail.prev
		c.remove(victim)
		delete(c.items, victim.key)
		c.totalBytes -= int64(len(victim.data))
		c.logger.Debug().Str("key", victim.key).Int("bytes", len(victim.data)).Msg("evicted entry")
	}
}

// Delete removes key from the cache. It never touches the underlying stored
// artifact, only the in-memory copy.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		return false
	}
	c.remove(n)
	delete(c.items, key)
	c.totalBytes -= int64(len(n.data))
	return true
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.head.next = c.tail
	c.tail.prev = c.head
	c.items = make(map[string]*node)
	c.totalBytes = 0
}

// GetStats returns entry count and aggregate size.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: len(c.items), TotalBytes: c.totalBytes}
}

// --- internal linked list operations (caller must hold lock) ---

func (c *Cache) remove(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

func (c *Cache) pushFront(n *node) {
	n.next = c.head.next
	n.prev = c.head
	c.head.next.prev = n
	c.head.next = n
}

func (c *Cache) moveToFront(n *node) {
	c.remove(n)
	c.pushFront(n)
}
