package data

import (
	"context"
	"sync"
	"time"

	"lec-market/internal/model"
	"lec-market/internal/simulation"

	"github.com/google/uuid"
)

// DefaultRunTTL is how long a cached run stays readable.
const DefaultRunTTL = 1 * time.Hour

// Run is a finished simulation kept for later queries.
type Run struct {
	ID        string
	CreatedAt time.Time
	Result    *simulation.Result
	// Grid is the price schedule the run was cleared against.
	Grid model.GridPriceSchedule
}

// CacheEntry represents a cached run
type CacheEntry struct {
	Run       *Run
	ExpiresAt time.Time
}

// RunCache keeps finished runs in memory under a generated id so their
// record stream can be fetched after the request that produced them.
type RunCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewRunCache(ttl time.Duration) *RunCache {
	if ttl <= 0 {
		ttl = DefaultRunTTL
	}
	return &RunCache{
		store: make(map[string]*CacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Put stores a result and returns its run.
func (c *RunCache) Put(res *simulation.Result, grid model.GridPriceSchedule) *Run {
	now := c.now()
	run := &Run{ID: uuid.NewString(), CreatedAt: now, Result: res, Grid: grid}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[run.ID] = &CacheEntry{Run: run, ExpiresAt: now.Add(c.ttl)}
	return run
}

// Get retrieves a cached run if available and not expired
func (c *RunCache) Get(id string) (*Run, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[id]
	if !exists {
		return nil, false
	}
	if c.now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Run, true
}

func (c *RunCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, id)
}

func (c *RunCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Prune removes expired entries and returns how many were dropped.
func (c *RunCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for id, entry := range c.store {
		if now.After(entry.ExpiresAt) {
			delete(c.store, id)
			n++
		}
	}
	return n
}

// Cleanup prunes periodically until ctx is done.
func (c *RunCache) Cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Prune()
		}
	}
}
