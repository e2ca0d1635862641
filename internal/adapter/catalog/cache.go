package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
	"github.com/couchcryptid/wildfire-risk-service/internal/observability"
)

// CachedCatalog wraps a Catalog with an in-memory LRU cache for static
// collections. Forecast and fire queries always go to the inner catalog.
type CachedCatalog struct {
	inner   domain.Catalog
	cache   *lruCache
	static  map[string]bool
	metrics *observability.Metrics
}

// NewCachedCatalog creates a cache decorator around a catalog. Only
// land-cover queries are cached.
func NewCachedCatalog(inner domain.Catalog, maxEntries int, metrics *observability.Metrics) *CachedCatalog {
	return &CachedCatalog{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		static:  map[string]bool{domain.CollectionLandCover: true},
		metrics: metrics,
	}
}

func (c *CachedCatalog) Slices(ctx context.Context, q domain.SliceQuery) ([]domain.Slice, error) {
	if !c.static[q.Collection] {
		return c.inner.Slices(ctx, q)
	}

	key := cacheKey(q)
	if slices, ok := c.cache.get(key); ok {
		c.metrics.CatalogCache.WithLabelValues(q.Collection, "hit").Inc()
		return cloneSlices(slices), nil
	}
	c.metrics.CatalogCache.WithLabelValues(q.Collection, "miss").Inc()

	slices, err := c.inner.Slices(ctx, q)
	if err != nil {
		return nil, err
	}
	// Empty answers are not cached so a catalog that is still ingesting can be retried.
	if len(slices) > 0 {
		c.cache.put(key, cloneSlices(slices))
	}
	return slices, nil
}

func cacheKey(q domain.SliceQuery) string {
	bbox := "*"
	if q.Bounds != nil && !q.Bounds.IsEmpty() {
		bbox = formatBBox(q.Bounds)
	}
	return fmt.Sprintf("%s|%s|%s|%s", q.Collection, q.Band, q.Range.String(), bbox)
}

func cloneSlices(in []domain.Slice) []domain.Slice {
	out := make([]domain.Slice, len(in))
	for i, s := range in {
		out[i] = domain.Slice{Time: s.Time, Raster: s.Raster.Clone()}
	}
	return out
}

// lruCache is a simple thread-safe LRU cache of slice lists.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.Slice
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.Slice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.Slice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
