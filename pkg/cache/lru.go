package cache

import (
	"sync"
	"sync/atomic"
)

// DefaultEntries is the default number of results kept in memory.
const DefaultEntries = 1024

// LRU keeps the most recently used conversion results in memory.
// It is safe for concurrent use.
type LRU struct {
	mu         sync.Mutex
	entries    map[Key]*lruEntry
	head       *lruEntry // Most recently used.
	tail       *lruEntry // Least recently used.
	maxEntries int
	bytes      int64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type lruEntry struct {
	key    Key
	output string
	prev   *lruEntry
	next   *lruEntry
}

// NewLRU creates a cache holding at most maxEntries results.
func NewLRU(maxEntries int) *LRU {
	if maxEntries <= 0 {
		maxEntries = DefaultEntries
	}

	return &LRU{
		entries:    make(map[Key]*lruEntry),
		maxEntries: maxEntries,
	}
}

// Get returns the cached output for key.
func (c *LRU) Get(key Key) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		return "", false
	}

	c.hits.Add(1)
	c.moveToFront(entry)

	return entry.output, true
}

// Put stores output under key, evicting the least recently used entry
// when the cache is full.
func (c *LRU) Put(key Key, output string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.bytes += int64(len(output) - len(entry.output))
		entry.output = output
		c.moveToFront(entry)

		return
	}

	for len(c.entries) >= c.maxEntries && c.tail != nil {
		c.evict(c.tail)
	}

	entry := &lruEntry{key: key, output: output}

	c.entries[key] = entry
	c.bytes += int64(len(output))
	c.addToFront(entry)
}

// Stats returns cache statistics.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   len(c.entries),
		Bytes:     c.bytes,
	}
}

// Stats holds cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Bytes     int64
	Entries   int
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}

	return float64(s.Hits) / float64(total)
}

// Clear removes all entries from the cache.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*lruEntry)
	c.head = nil
	c.tail = nil
	c.bytes = 0
}

func (c *LRU) evict(entry *lruEntry) {
	c.removeFromList(entry)
	delete(c.entries, entry.key)
	c.bytes -= int64(len(entry.output))
	c.evictions.Add(1)
}

func (c *LRU) moveToFront(entry *lruEntry) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

func (c *LRU) addToFront(entry *lruEntry) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU) removeFromList(entry *lruEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
}
