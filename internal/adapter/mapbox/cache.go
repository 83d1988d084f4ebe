package mapbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	"github.com/couchcryptid/collisions-dashboard/internal/lru"
	"github.com/couchcryptid/collisions-dashboard/internal/observability"
)

// CachedResolver wraps a PlaceResolver with an in-memory LRU cache keyed by
// coordinates rounded to five decimals (about 1 m).
type CachedResolver struct {
	inner   domain.PlaceResolver
	metrics *observability.Metrics

	mu    sync.Mutex
	cache *lru.Cache[string, domain.Place]
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner domain.PlaceResolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		metrics: metrics,
		cache:   lru.New[string, domain.Place](maxEntries),
	}
}

func (c *CachedResolver) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Place, error) {
	key := fmt.Sprintf("%.5f,%.5f", lat, lon)

	c.mu.Lock()
	place, ok := c.cache.Get(key)
	c.mu.Unlock()
	if ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return place, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	place, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return place, err
	}
	// Only cache matches so transient "not found" responses can be retried.
	if place.Name != "" {
		c.mu.Lock()
		c.cache.Put(key, place)
		c.mu.Unlock()
	}
	return place, nil
}
