package campaign

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crowdfund/internal/chain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func snapshotOf(ids ...int64) []chain.Campaign {
	campaigns := make([]chain.Campaign, 0, len(ids))
	for _, id := range ids {
		campaigns = append(campaigns, chain.Campaign{
			Id:           big.NewInt(id),
			Owner:        ownerAddr,
			GoalAmount:   eth(1),
			RaisedAmount: big.NewInt(0),
			Deadline:     big.NewInt(time.Now().Add(time.Hour).Unix()),
		})
	}
	return campaigns
}

func TestGetAllServesSnapshotWithinTTL(t *testing.T) {
	clock := newFakeClock()
	var fetches atomic.Int32

	cache := NewCacheWithClock(func(context.Context) ([]chain.Campaign, error) {
		fetches.Add(1)
		return snapshotOf(1, 2), nil
	}, clock.Now, DefaultTTL)

	first := cache.GetAll(context.Background())
	clock.Advance(10 * time.Second)
	second := cache.GetAll(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), fetches.Load(), "second call within TTL must not hit the network")
}

func TestGetAllRefreshesAfterTTL(t *testing.T) {
	clock := newFakeClock()
	var fetches atomic.Int32

	cache := NewCacheWithClock(func(context.Context) ([]chain.Campaign, error) {
		fetches.Add(1)
		return snapshotOf(1), nil
	}, clock.Now, DefaultTTL)

	cache.GetAll(context.Background())
	clock.Advance(DefaultTTL + time.Second)
	cache.GetAll(context.Background())

	assert.Equal(t, int32(2), fetches.Load())
}

func TestInvalidateForcesFreshRead(t *testing.T) {
	clock := newFakeClock()
	var fetches atomic.Int32

	cache := NewCacheWithClock(func(context.Context) ([]chain.Campaign, error) {
		fetches.Add(1)
		return snapshotOf(1), nil
	}, clock.Now, DefaultTTL)

	cache.GetAll(context.Background())
	cache.Invalidate()
	cache.GetAll(context.Background())

	assert.Equal(t, int32(2), fetches.Load())
}

func TestInvalidateDuringFetchDiscardsInFlightRead(t *testing.T) {
	clock := newFakeClock()
	var fetches atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	cache := NewCacheWithClock(func(context.Context) ([]chain.Campaign, error) {
		if fetches.Add(1) == 1 {
			close(started)
			<-release
			return snapshotOf(1), nil
		}
		return snapshotOf(1, 2), nil
	}, clock.Now, DefaultTTL)

	first := make(chan []chain.Campaign)
	go func() { first <- cache.GetAll(context.Background()) }()

	<-started
	cache.Invalidate()

	// A call after the invalidation must not join the fetch that started
	// before it; its data predates the confirmed mutation.
	afterInvalidate := cache.GetAll(context.Background())
	require.Len(t, afterInvalidate, 2)
	assert.Equal(t, int32(2), fetches.Load())

	close(release)
	<-first

	// The superseded fetch must not reinstall its result either.
	assert.Len(t, cache.GetAll(context.Background()), 2)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestGetAllServesStaleSnapshotOnError(t *testing.T) {
	clock := newFakeClock()
	var fail atomic.Bool

	cache := NewCacheWithClock(func(context.Context) ([]chain.Campaign, error) {
		if fail.Load() {
			return nil, errors.New("rpc unavailable")
		}
		return snapshotOf(1, 2, 3), nil
	}, clock.Now, DefaultTTL)

	fresh := cache.GetAll(context.Background())
	require.Len(t, fresh, 3)

	fail.Store(true)
	clock.Advance(DefaultTTL + time.Second)

	stale := cache.GetAll(context.Background())
	assert.Equal(t, fresh, stale, "stale snapshot beats an empty result")
}

func TestGetAllEmptyWhenNoSnapshotAndErrors(t *testing.T) {
	cache := NewCacheWithClock(func(context.Context) ([]chain.Campaign, error) {
		return nil, errors.New("rpc unavailable")
	}, newFakeClock().Now, DefaultTTL)

	campaigns := cache.GetAll(context.Background())

	assert.NotNil(t, campaigns)
	assert.Empty(t, campaigns)
}

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	clock := newFakeClock()
	var fetches atomic.Int32
	release := make(chan struct{})

	cache := NewCacheWithClock(func(context.Context) ([]chain.Campaign, error) {
		fetches.Add(1)
		<-release
		return snapshotOf(1, 2), nil
	}, clock.Now, DefaultTTL)

	const callers = 16
	results := make([][]chain.Campaign, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.GetAll(context.Background())
		}(i)
	}

	// Give the goroutines time to pile up on the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fetches.Load(), "concurrent misses must coalesce into one read")
	for _, result := range results {
		assert.Len(t, result, 2)
	}
}

func TestOwnerFilters(t *testing.T) {
	snapshot := snapshotOf(1, 2, 3)
	snapshot[1].Owner = donorAddr
	snapshot[2].Withdrawn = true

	cache := NewCacheWithClock(func(context.Context) ([]chain.Campaign, error) {
		return snapshot, nil
	}, newFakeClock().Now, DefaultTTL)

	owned := cache.GetByOwner(context.Background(), ownerAddr)
	require.Len(t, owned, 2)

	withdrawn := cache.GetWithdrawnByOwner(context.Background(), ownerAddr)
	require.Len(t, withdrawn, 1)
	assert.Equal(t, uint64(3), withdrawn[0].ID())
}
