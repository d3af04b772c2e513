// Package campaign keeps the client-side read model of the campaign set: a
// time-boxed snapshot cache over the chain gateway and the pure status
// derivation the UI renders from.
package campaign

import (
	"context"
	"sync"
	"time"

	"crowdfund/internal/chain"
	"crowdfund/internal/logger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 30 * time.Second

// Fetcher performs the one bulk campaign read behind the cache.
type Fetcher func(ctx context.Context) ([]chain.Campaign, error)

// Cache serves all list and detail views from one snapshot of the campaign
// set. A miss triggers a single underlying read no matter how many callers
// arrive at once; a failed read degrades to the previous snapshot rather
// than an error or empty result.
type Cache struct {
	fetch Fetcher
	now   func() time.Time
	ttl   time.Duration

	group singleflight.Group

	mu        sync.RWMutex
	snapshot  []chain.Campaign
	fetchedAt time.Time

	// generation advances on every Invalidate. A fetch that started before
	// the bump must not install its pre-invalidation result.
	generation uint64
}

func NewCache(fetch Fetcher) *Cache {
	return NewCacheWithClock(fetch, time.Now, DefaultTTL)
}

// NewCacheWithClock injects the clock and TTL, for deterministic tests.
func NewCacheWithClock(fetch Fetcher, now func() time.Time, ttl time.Duration) *Cache {
	return &Cache{fetch: fetch, now: now, ttl: ttl}
}

// GetAll returns the cached snapshot while fresh, otherwise one shared
// network read replaces it. Never returns an error: a list view prefers no
// data over a crash.
func (c *Cache) GetAll(ctx context.Context) []chain.Campaign {
	if snapshot, ok := c.fresh(); ok {
		return snapshot
	}

	result, _, _ := c.group.Do("campaigns", func() (interface{}, error) {
		// A caller that queued behind the winning fetch sees its result here.
		if snapshot, ok := c.fresh(); ok {
			return snapshot, nil
		}

		c.mu.RLock()
		generation := c.generation
		c.mu.RUnlock()

		campaigns, err := c.fetch(ctx)
		if err != nil {
			stale := c.current()
			if stale != nil {
				logger.Warn("campaign fetch failed, serving stale snapshot", zap.Error(err))
				return stale, nil
			}

			logger.Warn("campaign fetch failed with no snapshot to fall back on", zap.Error(err))
			return []chain.Campaign{}, nil
		}

		c.mu.Lock()
		if c.generation == generation {
			c.snapshot = campaigns
			c.fetchedAt = c.now()
		}
		c.mu.Unlock()

		return campaigns, nil
	})

	return result.([]chain.Campaign)
}

// Invalidate drops the snapshot unconditionally. Called after every
// confirmed mutating transaction. An in-flight fetch is forgotten too, so
// the next GetAll starts a fresh read instead of joining a read that began
// before the mutation confirmed.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.fetchedAt = time.Time{}
	c.generation++
	c.mu.Unlock()

	c.group.Forget("campaigns")

	logger.Debug("campaign cache invalidated")
}

// GetByOwner filters the snapshot down to one owner's campaigns.
func (c *Cache) GetByOwner(ctx context.Context, owner common.Address) []chain.Campaign {
	var owned []chain.Campaign
	for _, campaign := range c.GetAll(ctx) {
		if campaign.Owner == owner {
			owned = append(owned, campaign)
		}
	}
	return owned
}

// GetWithdrawnByOwner filters down to the owner's already-withdrawn campaigns.
func (c *Cache) GetWithdrawnByOwner(ctx context.Context, owner common.Address) []chain.Campaign {
	var withdrawn []chain.Campaign
	for _, campaign := range c.GetByOwner(ctx, owner) {
		if campaign.Withdrawn {
			withdrawn = append(withdrawn, campaign)
		}
	}
	return withdrawn
}

func (c *Cache) fresh() ([]chain.Campaign, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot == nil || c.fetchedAt.IsZero() {
		return nil, false
	}
	if c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}

	return c.snapshot, true
}

func (c *Cache) current() []chain.Campaign {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}
