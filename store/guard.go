package store

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Guard is the single-writer lock held across coin selection, assembly and
// MarkSpent so two spends cannot select the same UTXO.
type Guard struct {
	sem *semaphore.Weighted
}

// NewGuard returns an unlocked Guard.
func NewGuard() *Guard {
	return &Guard{sem: semaphore.NewWeighted(1)}
}

// Lock blocks until the guard is acquired or ctx is done. The returned
// function releases it and may be called more than once.
func (g *Guard) Lock(ctx context.Context) (func(), error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return g.releaser(), nil
}

func (g *Guard) releaser() func() {
	var once sync.Once
	return func() { once.Do(func() { g.sem.Release(1) }) }
}

// TryLock acquires the guard without blocking.
func (g *Guard) TryLock() (func(), bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	return g.releaser(), true
}
