package colorscale

import (
	"sync"

	"github.com/geo-drilldown/internal/domain"
)

type cacheKey struct {
	scope  domain.ScopeKey
	metric domain.Metric
}

// Cache memoizes scales per scope and metric. Invalidate is meant to be
// registered as a store invalidation listener.
type Cache struct {
	mu     sync.Mutex
	scales map[cacheKey]Scale
}

func NewCache() *Cache {
	return &Cache{scales: make(map[cacheKey]Scale)}
}

// Get returns the cached scale or builds it from features.
func (c *Cache) Get(scope domain.ScopeKey, metric domain.Metric, features []domain.GeoFeature) Scale {
	key := cacheKey{scope: scope, metric: metric}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.scales[key]; ok {
		return s
	}
	s := Build(features, metric)
	c.scales[key] = s
	return s
}

// Invalidate drops every metric's scale for scope.
func (c *Cache) Invalidate(scope domain.ScopeKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.scales {
		if key.scope == scope {
			delete(c.scales, key)
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.scales)
}
