package dedup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelterscout/petharvester/internal/harvest"
	"github.com/shelterscout/petharvester/internal/storage/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func upsert(t *testing.T, store harvest.RecordStore, key string) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), harvest.Record{
		Key:    key,
		Fields: map[string]string{"name": key},
	}))
}

func TestContainsReflectsStore(t *testing.T) {
	t.Parallel()

	store := memory.NewRecordStore()
	upsert(t, store, "/a")
	idx := New(store, &fakeClock{now: time.Unix(1000, 0)}, time.Minute)

	ok, err := idx.Contains(context.Background(), "/a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idx.Contains(context.Background(), "/b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheLagsUntilTTLExpires(t *testing.T) {
	t.Parallel()

	store := memory.NewRecordStore()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	idx := New(store, clock, time.Minute)
	ctx := context.Background()

	ok, err := idx.Contains(ctx, "/a")
	require.NoError(t, err)
	require.False(t, ok)

	// A write the index did not see stays invisible inside the TTL.
	upsert(t, store, "/a")
	ok, err = idx.Contains(ctx, "/a")
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(2 * time.Minute)
	ok, err = idx.Contains(ctx, "/a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddClosesTheGapImmediately(t *testing.T) {
	t.Parallel()

	store := memory.NewRecordStore()
	idx := New(store, &fakeClock{now: time.Unix(1000, 0)}, time.Minute)
	ctx := context.Background()

	ok, err := idx.Contains(ctx, "/a")
	require.NoError(t, err)
	require.False(t, ok)

	upsert(t, store, "/a")
	idx.Add("/a")

	ok, err = idx.Contains(ctx, "/a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvalidateForcesRebuild(t *testing.T) {
	t.Parallel()

	store := memory.NewRecordStore()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	idx := New(store, clock, time.Hour)
	ctx := context.Background()

	ok, err := idx.Contains(ctx, "/a")
	require.NoError(t, err)
	require.False(t, ok)

	upsert(t, store, "/a")
	idx.Invalidate()

	ok, err = idx.Contains(ctx, "/a")
	require.NoError(t, err)
	assert.True(t, ok)
}
