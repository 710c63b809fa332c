package cache

import (
	"container/list"
	"sync"
	"time"
)

// MemoryCache is the L1 tier: an in-memory LRU bounded by total audio bytes.
type MemoryCache struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu sync.RWMutex

	stats Stats
}

type memoryEntry struct {
	key       string
	entry     Entry
	size      int64
	timestamp time.Time
}

// NewMemoryCache creates a memory cache holding up to capacity bytes of audio.
func NewMemoryCache(capacity int64) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get retrieves an entry and marks it most recently used.
func (c *MemoryCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return Entry{}, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*memoryEntry).entry, true
}

// Put stores an entry, evicting least recently used entries as needed.
func (c *MemoryCache) Put(key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entrySize := int64(len(entry.Audio))

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		existing := elem.Value.(*memoryEntry)
		c.size += entrySize - existing.size
		existing.entry = entry
		existing.size = entrySize
		existing.timestamp = time.Now()
		c.stats.Size = c.size
		return nil
	}

	if entrySize > c.capacity {
		return ErrItemTooLarge
	}

	for c.size+entrySize > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&memoryEntry{
		key:       key,
		entry:     entry,
		size:      entrySize,
		timestamp: time.Now(),
	})
	c.items[key] = elem
	c.size += entrySize

	c.stats.Size = c.size
	return nil
}

// Delete removes an entry if present.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear drops all entries.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
	c.stats.Size = 0
}

// Size returns the current size in bytes.
func (c *MemoryCache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Contains reports presence without touching LRU order.
func (c *MemoryCache) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[key]
	return ok
}

// Stats returns a snapshot of tier metrics.
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// Prune removes entries older than maxAge and returns the count removed.
func (c *MemoryCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0

	elem := c.eviction.Back()
	for elem != nil {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).timestamp.Before(cutoff) {
			c.removeElement(elem)
			pruned++
		}
		elem = prev
	}
	return pruned
}

// lock held
func (c *MemoryCache) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

// lock held
func (c *MemoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	entry := elem.Value.(*memoryEntry)
	delete(c.items, entry.key)
	c.size -= entry.size
}
