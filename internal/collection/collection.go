// Package collection keeps a locally cached copy of a remote list that is
// updated optimistically and reconciled by full re-fetches.
package collection

import (
	"context"
	"sync"
)

// FetchFunc loads the authoritative state.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Collection holds two copies of the data: the last state confirmed by the
// server and the local state shown to readers, which may be ahead of it
// while a mutation is in flight.
type Collection[T any] struct {
	mu      sync.RWMutex
	fetch   FetchFunc[T]
	server  []T
	local   []T
	loaded  bool
	nextID  uint64
	pending []pendingMutation[T]
}

// pendingMutation is a local change whose remote call has not returned yet.
type pendingMutation[T any] struct {
	id    uint64
	apply func([]T) []T
}

func New[T any](fetch FetchFunc[T]) *Collection[T] {
	return &Collection[T]{fetch: fetch}
}

// Refresh replaces the server copy with a fresh fetch. Mutations still in
// flight are replayed on top of it, so they must be idempotent.
func (c *Collection[T]) Refresh(ctx context.Context) error {
	rows, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.server = clone(rows)
	c.rebuildLocked()
	c.loaded = true
	return nil
}

// EnsureLoaded fetches once if the collection has never been loaded.
func (c *Collection[T]) EnsureLoaded(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.Refresh(ctx)
}

// Mutate applies local to the cached state right away, then runs remote.
// On success the change is applied to the server copy. On failure it is
// dropped and the local state is rebuilt from the server copy plus the
// mutations still in flight.
func (c *Collection[T]) Mutate(ctx context.Context, local func([]T) []T, remote func(ctx context.Context) error) error {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.pending = append(c.pending, pendingMutation[T]{id: id, apply: local})
	c.local = local(clone(c.local))
	c.mu.Unlock()

	err := remote(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.removePendingLocked(id)
	if err == nil {
		c.server = local(clone(c.server))
	}
	c.rebuildLocked()
	return err
}

func (c *Collection[T]) removePendingLocked(id uint64) {
	for i, p := range c.pending {
		if p.id == id {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// rebuildLocked derives the local state from the server copy and the
// pending mutations, in the order they were started.
func (c *Collection[T]) rebuildLocked() {
	rows := clone(c.server)
	for _, p := range c.pending {
		rows = p.apply(clone(rows))
	}
	c.local = rows
}

// Invalidate marks the collection stale so the next EnsureLoaded re-fetches.
// The current state stays readable until then.
func (c *Collection[T]) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}

// Snapshot returns a copy of the local state.
func (c *Collection[T]) Snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.local)
}

func clone[T any](rows []T) []T {
	if rows == nil {
		return nil
	}
	out := make([]T, len(rows))
	copy(out, rows)
	return out
}
