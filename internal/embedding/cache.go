package embedding

import (
	"container/list"
	"hash/fnv"
	"sync"
)

// textCache memoizes vectors for recently embedded text. Entries are keyed by
// a 64-bit content hash rather than the text itself, so the cache never pins
// full note bodies in memory; notes that share identical text (templates,
// repeated excerpts) also share one entry. Eviction is least-recently-used.
type textCache struct {
	capacity int
	mu       sync.Mutex
	entries  map[uint64]*list.Element
	order    *list.List
}

type textCacheEntry struct {
	key uint64
	vec []float32
}

func newTextCache(capacity int) *textCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &textCache{
		capacity: capacity,
		entries:  make(map[uint64]*list.Element),
		order:    list.New(),
	}
}

func hashText(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}

// get returns the cached vector for text and marks it most recently used.
func (c *textCache) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[hashText(text)]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*textCacheEntry).vec, true
}

// put stores the vector for text, evicting the least recently used entry
// when the cache is full.
func (c *textCache) put(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := hashText(text)
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*textCacheEntry).vec = vec
		return
	}
	c.entries[key] = c.order.PushFront(&textCacheEntry{key: key, vec: vec})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*textCacheEntry).key)
	}
}

func (c *textCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
