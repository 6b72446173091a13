package cache

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"chatsync/pkg/logger"
)

// Entry wraps a cached value with the bookkeeping used by eviction and TTL
// checks. Entries are owned by the cache and mutated only through Get/Set.
type Entry[V any] struct {
	Data         V
	CreatedAt    time.Time
	HitCount     uint64
	LastAccessed time.Time
}

// EntryView is a read-only snapshot of an entry handed to callers that need
// expiry information alongside the value (e.g. page freshness extension).
type EntryView[V any] struct {
	Data         V
	CreatedAt    time.Time
	LastAccessed time.Time
	Expired      bool
}

// Options configures a Cache.
type Options struct {
	// Capacity is the soft maximum number of entries; checked before insert.
	Capacity int
	// TTL is the maximum entry age before a read treats it as expired.
	TTL time.Duration
	// EvictFraction is the share of entries dropped per eviction pass.
	// Defaults to 0.10.
	EvictFraction float64
}

// Stats is a snapshot of cache occupancy and effectiveness.
type Stats struct {
	Size      int     `json:"size"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRatio  float64 `json:"hit_ratio"`
}

// Cache is a capacity- and age-bounded store of typed entries keyed by
// string. Eviction ranks entries by value density (hit count over time since
// last access) and drops the lowest-scoring slice, so frequently and
// recently used entries survive.
type Cache[V any] struct {
	mu      sync.Mutex
	opts    Options
	entries map[string]*Entry[V]

	hits      uint64
	misses    uint64
	evictions uint64
}

// New constructs a Cache with the given options.
func New[V any](opts Options) *Cache[V] {
	if opts.Capacity <= 0 {
		opts.Capacity = 1000
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.EvictFraction <= 0 || opts.EvictFraction > 1 {
		opts.EvictFraction = 0.10
	}
	return &Cache[V]{opts: opts, entries: make(map[string]*Entry[V])}
}

// Get returns the value for key. Entries older than TTL are deleted and
// reported as absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		missesTotal.Inc()
		return zero, false
	}
	if time.Since(e.CreatedAt) > c.opts.TTL {
		delete(c.entries, key)
		c.misses++
		missesTotal.Inc()
		expirationsTotal.Inc()
		sizeGauge.Set(float64(len(c.entries)))
		return zero, false
	}
	e.HitCount++
	e.LastAccessed = time.Now()
	c.hits++
	hitsTotal.Inc()
	return e.Data, true
}

// GetEntry returns the entry for key regardless of expiry, flagging whether
// it is past TTL. The entry stays cached; callers decide whether to refresh
// or drop it. Hit bookkeeping is updated like Get. LastAccessed in the view
// is the access time before this call, so callers can measure the gap
// between consecutive reads.
func (c *Cache[V]) GetEntry(key string) (EntryView[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		missesTotal.Inc()
		return EntryView[V]{}, false
	}
	prev := e.LastAccessed
	e.HitCount++
	e.LastAccessed = time.Now()
	c.hits++
	hitsTotal.Inc()
	return EntryView[V]{
		Data:         e.Data,
		CreatedAt:    e.CreatedAt,
		LastAccessed: prev,
		Expired:      time.Since(e.CreatedAt) > c.opts.TTL,
	}, true
}

// Set stores data under key, evicting low-value entries first when the cache
// is at capacity.
func (c *Cache[V]) Set(key string, data V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.opts.Capacity {
		c.evictLocked()
	}
	now := time.Now()
	c.entries[key] = &Entry[V]{Data: data, CreatedAt: now, LastAccessed: now}
	setsTotal.Inc()
	sizeGauge.Set(float64(len(c.entries)))
}

// Refresh resets the entry's age so it is treated as fresh again. Used by
// the freshness-extension rule for recently accessed pages.
func (c *Cache[V]) Refresh(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.CreatedAt = time.Now()
	}
}

// Delete removes a single key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	sizeGauge.Set(float64(len(c.entries)))
}

// Invalidate deletes all keys starting with the given prefix, or clears the
// whole cache when called without arguments.
func (c *Cache[V]) Invalidate(prefix ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(prefix) == 0 {
		c.entries = make(map[string]*Entry[V])
		sizeGauge.Set(0)
		return
	}
	for _, p := range prefix {
		for k := range c.entries {
			if strings.HasPrefix(k, p) {
				delete(c.entries, k)
			}
		}
	}
	sizeGauge.Set(float64(len(c.entries)))
}

// Len returns the current number of entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns occupancy and aggregate hit ratio.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{Size: len(c.entries), Hits: c.hits, Misses: c.misses, Evictions: c.evictions}
	if total := c.hits + c.misses; total > 0 {
		s.HitRatio = float64(c.hits) / float64(total)
	}
	return s
}

// score ranks an entry for eviction: hit count over seconds since last
// access. Entries accessed this instant get an infinite score so a
// just-inserted entry is never the first one out.
func score[V any](e *Entry[V], now time.Time) float64 {
	age := now.Sub(e.LastAccessed).Seconds()
	if age <= 0 {
		return math.Inf(1)
	}
	return float64(e.HitCount) / age
}

// evictLocked removes the lowest-scoring slice of entries (rounded up).
// Caller must hold c.mu.
func (c *Cache[V]) evictLocked() {
	n := len(c.entries)
	if n == 0 {
		return
	}
	drop := int(math.Ceil(float64(n) * c.opts.EvictFraction))
	type scored struct {
		key string
		val float64
	}
	ranked := make([]scored, 0, n)
	now := time.Now()
	for k, e := range c.entries {
		ranked = append(ranked, scored{key: k, val: score(e, now)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].val < ranked[j].val })
	for i := 0; i < drop && i < len(ranked); i++ {
		delete(c.entries, ranked[i].key)
		c.evictions++
		evictionsTotal.Inc()
	}
	logger.Debug("cache_evicted", "dropped", drop, "remaining", len(c.entries))
}
