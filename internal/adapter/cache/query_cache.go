package cache

import (
	"container/list"
	"strconv"
	"strings"
	"sync"
	"time"

	"folio/internal/domain"
)

// QueryCache remembers the bundle produced for a question and k. Entries are
// tagged with the store generation they were computed against and miss as
// soon as the store has been reloaded.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	key        string
	bundle     domain.ContextBundle
	timestamp  time.Time
	generation uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 128
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*list.Element, maxSize),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// cacheKey ignores surrounding whitespace only; the question is embedded
// as typed, so case stays part of the key.
func cacheKey(question string, topK int) string {
	return strconv.Itoa(topK) + "\x00" + strings.TrimSpace(question)
}

func (c *QueryCache) Get(question string, topK int, generation uint64) (domain.ContextBundle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(question, topK)
	el, ok := c.entries[key]
	if !ok {
		return domain.ContextBundle{}, false
	}

	entry := el.Value.(*cacheEntry)
	if entry.generation != generation || c.now().Sub(entry.timestamp) > c.ttl {
		c.remove(el)
		return domain.ContextBundle{}, false
	}

	c.order.MoveToBack(el)
	return copyBundle(entry.bundle), true
}

func (c *QueryCache) Put(question string, topK int, generation uint64, bundle domain.ContextBundle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(question, topK)
	entry := &cacheEntry{
		key:        key,
		bundle:     copyBundle(bundle),
		timestamp:  c.now(),
		generation: generation,
	}

	if el, ok := c.entries[key]; ok {
		el.Value = entry
		c.order.MoveToBack(el)
		return
	}

	for c.order.Len() >= c.maxSize {
		c.remove(c.order.Front())
	}
	c.entries[key] = c.order.PushBack(entry)
}

// Invalidate drops every entry.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, c.maxSize)
	c.order.Init()
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *QueryCache) remove(el *list.Element) {
	entry := c.order.Remove(el).(*cacheEntry)
	delete(c.entries, entry.key)
}

// callers may append to Sources; never hand out the cached slice
func copyBundle(b domain.ContextBundle) domain.ContextBundle {
	sources := make([]string, len(b.Sources))
	copy(sources, b.Sources)
	return domain.ContextBundle{ContextText: b.ContextText, Sources: sources}
}
