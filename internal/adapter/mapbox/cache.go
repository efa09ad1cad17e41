package mapbox

import (
	"container/list"
	"context"
	"math"
	"sync"

	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/observability"
)

// CachedGeocoder wraps a ReverseGeocoder with an in-memory LRU cache keyed
// by coordinates rounded to three decimals (about 110 m), so a wearer who
// stays put does not trigger a lookup per fix.
type CachedGeocoder struct {
	inner   domain.ReverseGeocoder
	cache   *placeCache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.ReverseGeocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newPlaceCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := cellOf(lat, lon)
	if result, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if result.FormattedAddress != "" {
		c.cache.put(key, result)
	}
	return result, nil
}

// gridCell identifies a coordinate rounded to thousandths of a degree.
type gridCell struct {
	lat, lon int32
}

func cellOf(lat, lon float64) gridCell {
	return gridCell{
		lat: int32(math.Round(lat * 1000)),
		lon: int32(math.Round(lon * 1000)),
	}
}

// placeCache is a thread-safe LRU of place lookups per grid cell. The front
// of order is the most recently used cell.
type placeCache struct {
	capacity int

	mu    sync.Mutex
	order *list.List
	cells map[gridCell]*list.Element
}

type placeEntry struct {
	cell  gridCell
	place domain.GeocodingResult
}

func newPlaceCache(capacity int) *placeCache {
	return &placeCache{
		capacity: capacity,
		order:    list.New(),
		cells:    make(map[gridCell]*list.Element),
	}
}

func (c *placeCache) get(cell gridCell) (domain.GeocodingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.cells[cell]
	if !ok {
		return domain.GeocodingResult{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*placeEntry).place, true
}

func (c *placeCache) put(cell gridCell, place domain.GeocodingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.cells[cell]; ok {
		el.Value.(*placeEntry).place = place
		c.order.MoveToFront(el)
		return
	}
	c.cells[cell] = c.order.PushFront(&placeEntry{cell: cell, place: place})

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.cells, oldest.Value.(*placeEntry).cell)
	}
}

func (c *placeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
