// Package resultcache memoizes comparison results of identical requests in a
// thread-safe LRU bounded by entry count and payload bytes.
package resultcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Sumatoshi-tech/dimlens/pkg/report"
)

// entry is a doubly-linked list node holding one cached result.
type entry struct {
	key   string
	value report.Result
	size  int64
	prev  *entry
	next  *entry
}

// Cache is a thread-safe LRU of comparison results.
// A nil *Cache is valid and never hits.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // Most recently used.
	tail    *entry // Least recently used.

	maxEntries int
	maxBytes   int64
	curBytes   int64

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats holds cache counters.
type Stats struct {
	Hits     int64
	Misses   int64
	Entries  int
	Bytes    int64
	MaxBytes int64
}

// HitRate returns the hit rate as a fraction (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// New creates a cache holding at most maxEntries results whose payloads total
// at most maxBytes. maxBytes <= 0 disables the byte limit. Returns nil when
// maxEntries <= 0, which disables caching.
func New(maxEntries int, maxBytes int64) *Cache {
	if maxEntries <= 0 {
		return nil
	}

	return &Cache{
		entries:    make(map[string]*entry, maxEntries),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
	}
}

// Key fingerprints a raw payload together with the options that shape its result.
func Key(payload []byte, opts report.Options) string {
	h := sha256.New()

	h.Write(payload)
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(opts.ColumnOrder, "\x1f")))
	h.Write([]byte{0})
	h.Write([]byte(opts.Formatter.EmptyValueMarker))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(opts.Formatter.LabelDigits)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(opts.TopContributors)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(opts.Align)))

	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for key and marks it most recently used.
func (c *Cache) Get(key string) (report.Result, bool) {
	if c == nil {
		return report.Result{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		return report.Result{}, false
	}

	c.hits.Add(1)
	c.moveToFront(ent)

	return ent.value, true
}

// Put stores res under key, accounting size bytes against the byte limit.
// Results larger than the whole cache are skipped.
func (c *Cache) Put(key string, res report.Result, size int64) {
	if c == nil || (c.maxBytes > 0 && size > c.maxBytes) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.curBytes += size - ent.size
		ent.value = res
		ent.size = size
		c.moveToFront(ent)

		for c.maxBytes > 0 && c.curBytes > c.maxBytes && c.tail != ent {
			c.evictTail()
		}

		return
	}

	c.evictUntilFits(size)

	ent := &entry{key: key, value: res, size: size}
	c.entries[key] = ent
	c.curBytes += size
	c.addToFront(ent)
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Entries:  len(c.entries),
		Bytes:    c.curBytes,
		MaxBytes: c.maxBytes,
	}
}

// evictUntilFits drops least recently used entries until size more bytes fit.
func (c *Cache) evictUntilFits(size int64) {
	for len(c.entries) >= c.maxEntries && c.tail != nil {
		c.evictTail()
	}

	for c.maxBytes > 0 && c.curBytes+size > c.maxBytes && c.tail != nil {
		c.evictTail()
	}
}

func (c *Cache) evictTail() {
	victim := c.tail
	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.curBytes -= victim.size
}

func (c *Cache) moveToFront(ent *entry) {
	if ent == c.head {
		return
	}

	c.removeFromList(ent)
	c.addToFront(ent)
}

func (c *Cache) addToFront(ent *entry) {
	ent.prev = nil
	ent.next = c.head

	if c.head != nil {
		c.head.prev = ent
	}

	c.head = ent

	if c.tail == nil {
		c.tail = ent
	}
}

func (c *Cache) removeFromList(ent *entry) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		c.head = ent.next
	}

	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		c.tail = ent.prev
	}
}
