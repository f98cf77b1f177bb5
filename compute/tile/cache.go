package tile

import (
	"hash/fnv"
	"sync"

	"github.com/deepteams/vfximg/compute"
)

// Fingerprint is a content-derived cache key (spec.md §5 "Region and
// processor caches are keyed by content-derived fingerprints").
type Fingerprint uint64

// Fingerprint64 hashes a tile's source bytes plus its Rect, so two calls
// decoding the same region of the same source produce the same key. The
// pack carries no dedicated hashing dependency for this, so this is
// stdlib hash/fnv rather than an imported library (see DESIGN.md).
func Fingerprint64(data []byte, r compute.Rect) Fingerprint {
	h := fnv.New64a()
	h.Write(data)
	var coords [4]byte
	for _, v := range []int{r.X0, r.Y0, r.X1, r.Y1} {
		coords[0], coords[1], coords[2], coords[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
		h.Write(coords[:])
	}
	return Fingerprint(h.Sum64())
}

// RegionCache holds decoded tile buffers keyed by Fingerprint. Writes take
// an exclusive lock; reads take a read lock, so concurrent Get calls never
// block each other and only contend with an in-flight Put (spec.md §5
// "writes take an exclusive lock; reads are lock-free or read-locked").
type RegionCache struct {
	mu      sync.RWMutex
	entries map[Fingerprint][]float32
	// order records insertion order for Evict's oldest-first policy; a
	// cache this small-scoped doesn't warrant a full LRU list.
	order []Fingerprint
	max   int
}

// NewRegionCache returns a cache holding at most maxEntries decoded
// regions before Put starts evicting the oldest entry.
func NewRegionCache(maxEntries int) *RegionCache {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &RegionCache{entries: make(map[Fingerprint][]float32, maxEntries), max: maxEntries}
}

// Get returns the cached buffer for key, if present.
func (c *RegionCache) Get(key Fingerprint) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores data under key, evicting the oldest entry if the cache is
// full and key is not already present.
func (c *RegionCache) Put(key Fingerprint, data []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		c.entries[key] = data
		return
	}
	if len(c.entries) >= c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = data
	c.order = append(c.order, key)
}

// Len reports the number of cached entries.
func (c *RegionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
