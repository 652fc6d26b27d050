package grid

import (
	"sync"

	"github.com/banshee-data/nowcast/internal/monitoring"
)

// KeyFunc derives a cache identity from a grid. The default is
// (*Grid).Fingerprint, which covers shape and every coordinate; earlier
// designs keyed on shape alone, which silently shared one index between
// same-shaped grids with different coordinates. Tests can inject their own
// scheme.
type KeyFunc func(*Grid) uint64

// IndexCache shares built Indexes between fields on the same coordinate
// grid. The coordinate grids in this domain are a small, bounded set reused
// across many time-stepped fields, so entries live for the process lifetime
// with no eviction. The cache is owned by whoever constructs fields and is
// always passed explicitly; there is no package-level instance.
type IndexCache struct {
	mu      sync.Mutex
	entries map[uint64]*Index
	keyFn   KeyFunc
	metrics *monitoring.Metrics
}

// CacheOption configures an IndexCache.
type CacheOption func(*IndexCache)

// WithKeyFunc replaces the identity derivation used for cache keys.
func WithKeyFunc(fn KeyFunc) CacheOption {
	return func(c *IndexCache) { c.keyFn = fn }
}

// WithCacheMetrics records hit/miss/build counts into m.
func WithCacheMetrics(m *monitoring.Metrics) CacheOption {
	return func(c *IndexCache) { c.metrics = m }
}

// NewIndexCache creates an empty cache keyed by grid fingerprint.
func NewIndexCache(opts ...CacheOption) *IndexCache {
	c := &IndexCache{
		entries: make(map[uint64]*Index),
		keyFn:   (*Grid).Fingerprint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrBuild returns the cached Index for g's identity, building and
// storing one on first use. Concurrent callers racing on the same key may
// both build, but exactly one result is registered and returned to
// everybody; the loser's build is discarded. The tree build itself happens
// outside the lock so a slow build never blocks unrelated lookups.
func (c *IndexCache) GetOrBuild(g *Grid) (*Index, error) {
	key := c.keyFn(g)

	c.mu.Lock()
	if ix, ok := c.entries[key]; ok {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.IndexCacheHits.Inc()
		}
		return ix, nil
	}
	c.mu.Unlock()

	built, err := BuildIndex(g.Pairs())
	if err != nil {
		return nil, err
	}
	monitoring.Logf("built spatial index for grid %v (key %x)", g.Shape(), key)
	if c.metrics != nil {
		c.metrics.IndexBuilds.Inc()
		c.metrics.IndexCacheMisses.Inc()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ix, ok := c.entries[key]; ok {
		// Lost the race; keep the registered identity.
		return ix, nil
	}
	c.entries[key] = built
	return built, nil
}

// Len returns the number of cached indexes.
func (c *IndexCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
