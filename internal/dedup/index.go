// Package dedup caches the set of known record keys so harvesting does
// not re-read the full table for every candidate.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shelterscout/petharvester/internal/harvest"
)

// DefaultTTL bounds how stale the cached key set may get in long runs.
const DefaultTTL = 5 * time.Minute

// Index is a derived, time-bounded cache of the keys in the record
// store. It is never a source of truth: Invalidate after bulk mutations
// and Add after every upsert keep it from diverging permanently.
type Index struct {
	mu      sync.Mutex
	store   harvest.RecordStore
	clock   harvest.Clock
	ttl     time.Duration
	keys    map[string]struct{}
	builtAt time.Time
	valid   bool
}

// New creates an Index over store. A non-positive ttl uses DefaultTTL.
func New(store harvest.RecordStore, clock harvest.Clock, ttl time.Duration) *Index {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Index{store: store, clock: clock, ttl: ttl}
}

// Contains reports whether key is already stored, rebuilding the cache
// from the record store when it is missing or older than the TTL.
func (i *Index) Contains(ctx context.Context, key string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.ensureFreshLocked(ctx); err != nil {
		return false, err
	}
	_, ok := i.keys[key]
	return ok, nil
}

// Add marks key known immediately, closing the staleness window after an
// upsert without a full rebuild.
func (i *Index) Add(key string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.valid || i.keys == nil {
		return
	}
	i.keys[key] = struct{}{}
}

// Invalidate forces the next access to rebuild from the record store.
func (i *Index) Invalidate() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.valid = false
	i.keys = nil
}

func (i *Index) ensureFreshLocked(ctx context.Context) error {
	if i.valid && i.clock.Now().Sub(i.builtAt) < i.ttl {
		return nil
	}
	records, err := i.store.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("rebuild key index: %w", err)
	}
	keys := make(map[string]struct{}, len(records))
	for _, rec := range records {
		keys[rec.Key] = struct{}{}
	}
	i.keys = keys
	i.builtAt = i.clock.Now()
	i.valid = true
	return nil
}
