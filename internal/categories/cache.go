// Package categories caches the assignable category IDs per region.
//
// Entries are considered fresh for a configurable TTL (24h by default).
// A stale entry is not discarded: if a refresh fails, the stale value is
// served as a fallback, and a region with no entry at all degrades to an
// empty list. Resolution failures never propagate to the caller.
package categories

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/trendlens/collector/internal/trending"
)

// DefaultTTL is how long a cached category list stays fresh.
const DefaultTTL = 24 * time.Hour

type entry struct {
	ids       []string
	fetchedAt time.Time
}

// Cache resolves and caches per-region category lists.
type Cache struct {
	source trending.VideoSource
	store  *gocache.Cache
	ttl    time.Duration
	clock  trending.Clock
	logger *zap.Logger
}

// New constructs a Cache. Entries are stored without expiry because an
// expired value must remain readable as a stale fallback; freshness is
// judged against the entry's fetch timestamp instead.
func New(source trending.VideoSource, ttl time.Duration, clock trending.Clock, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		source: source,
		store:  gocache.New(gocache.NoExpiration, 0),
		ttl:    ttl,
		clock:  clock,
		logger: logger,
	}
}

// CategoriesFor returns the assignable category IDs for the region.
// A fresh cached list is returned unchanged; otherwise a refresh is
// attempted and, on failure, the previous value (stale or empty) is
// returned.
func (c *Cache) CategoriesFor(ctx context.Context, region string) []string {
	now := c.clock.Now()

	var cached *entry
	if v, ok := c.store.Get(region); ok {
		e := v.(entry)
		cached = &e
		if now.Sub(e.fetchedAt) < c.ttl {
			return cloneIDs(e.ids)
		}
	}

	cats, err := c.source.ListCategories(ctx, region)
	if err != nil {
		c.logger.Warn("category refresh failed, using fallback",
			zap.String("region", region),
			zap.Bool("stale_available", cached != nil),
			zap.Error(err),
		)
		if cached != nil {
			return cloneIDs(cached.ids)
		}
		return []string{}
	}

	ids := make([]string, 0, len(cats))
	for _, cat := range cats {
		if cat.ID != "" && cat.Assignable {
			ids = append(ids, cat.ID)
		}
	}
	c.store.Set(region, entry{ids: ids, fetchedAt: now}, gocache.NoExpiration)
	return cloneIDs(ids)
}

func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
