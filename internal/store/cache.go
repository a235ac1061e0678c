package store

import (
	"context"
	"fmt"
	"sync"

	"dayplan/internal/calendar"
	appLog "dayplan/internal/log"
	"dayplan/internal/model"
)

// Lister is the read side of the store.
type Lister interface {
	List(ctx context.Context, owner string, t model.Type) ([]model.Entry, error)
}

type cacheKey struct {
	owner string
	typ   model.Type
}

// Cache keeps per-owner, per-type snapshots so repeated views do not refetch.
// Snapshots live until Invalidate, InvalidateOwner or Reset is called;
// mutations and the scheduled refresh are responsible for that.
//
// Every invalidation bumps a generation. A Load that raced with one drops
// its result instead of caching a snapshot read before the mutation.
type Cache struct {
	src Lister

	mu        sync.RWMutex
	snapshots map[cacheKey][]model.Entry
	keyGen    map[cacheKey]uint64
	ownerGen  map[string]uint64
	epoch     uint64
}

// generation identifies the invalidation state a snapshot was read under.
type generation struct {
	epoch, owner, key uint64
}

// NewCache wraps src.
func NewCache(src Lister) *Cache {
	return &Cache{
		src:       src,
		snapshots: make(map[cacheKey][]model.Entry),
		keyGen:    make(map[cacheKey]uint64),
		ownerGen:  make(map[string]uint64),
	}
}

// Load returns the snapshot for (owner, t), fetching it on a miss. The
// returned slice is a copy.
func (c *Cache) Load(ctx context.Context, owner string, t model.Type) ([]model.Entry, error) {
	key := cacheKey{owner: owner, typ: t}

	c.mu.RLock()
	snap, ok := c.snapshots[key]
	gen := c.generation(key)
	c.mu.RUnlock()
	if ok {
		return append([]model.Entry(nil), snap...), nil
	}

	entries, err := c.src.List(ctx, owner, t)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generation(key) == gen {
		c.snapshots[key] = entries
	} else {
		appLog.Debug("cache: dropping snapshot invalidated during load", "owner", owner, "type", t)
	}
	c.mu.Unlock()

	return append([]model.Entry(nil), entries...), nil
}

// generation must be called with mu held.
func (c *Cache) generation(key cacheKey) generation {
	return generation{epoch: c.epoch, owner: c.ownerGen[key.owner], key: c.keyGen[key]}
}

// Sources loads the three entry types concurrently. A type that fails to
// load is left nil in the result, so it merges as empty, and its error is
// returned alongside.
func (c *Cache) Sources(ctx context.Context, owner string) (calendar.Sources, []error) {
	type result struct {
		typ     model.Type
		entries []model.Entry
		err     error
	}

	results := make(chan result, len(model.Types))
	var wg sync.WaitGroup
	for _, t := range model.Types {
		wg.Add(1)
		go func(t model.Type) {
			defer wg.Done()
			entries, err := c.Load(ctx, owner, t)
			results <- result{typ: t, entries: entries, err: err}
		}(t)
	}
	wg.Wait()
	close(results)

	var (
		sources calendar.Sources
		errs    []error
	)
	for r := range results {
		if r.err != nil {
			appLog.Error("source load failed", r.err, "owner", owner, "type", r.typ)
			errs = append(errs, fmt.Errorf("load %s: %w", r.typ, r.err))
			continue
		}
		if r.entries == nil {
			r.entries = []model.Entry{}
		}
		sources.Set(r.typ, r.entries)
	}
	return sources, errs
}

// Invalidate drops the snapshot for (owner, t).
func (c *Cache) Invalidate(owner string, t model.Type) {
	key := cacheKey{owner: owner, typ: t}
	c.mu.Lock()
	delete(c.snapshots, key)
	c.keyGen[key]++
	c.mu.Unlock()
}

// InvalidateOwner drops every snapshot of owner.
func (c *Cache) InvalidateOwner(owner string) {
	c.mu.Lock()
	for k := range c.snapshots {
		if k.owner == owner {
			delete(c.snapshots, k)
		}
	}
	c.ownerGen[owner]++
	c.mu.Unlock()
}

// Reset drops all snapshots.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.snapshots = make(map[cacheKey][]model.Entry)
	c.epoch++
	c.mu.Unlock()
}

// Owners returns the owners that currently have at least one snapshot.
func (c *Cache) Owners() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for k := range c.snapshots {
		if !seen[k.owner] {
			seen[k.owner] = true
			out = append(out, k.owner)
		}
	}
	return out
}
