package order

import (
	"sync"

	"github.com/google/uuid"
)

// visitGuard serializes order processing per visit within this process.
// The database unique index on the billing ledger is the real authority
// against duplicates; the guard keeps concurrent orders for the same
// visit from racing to the conflict in the first place. Entries are
// reference counted and removed once the last holder unlocks, so the
// table stays bounded by the number of in-flight orders.
type visitGuard struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*guardEntry
}

type guardEntry struct {
	mu   sync.Mutex
	refs int
}

func (g *visitGuard) lock(visitID uuid.UUID) func() {
	g.mu.Lock()
	if g.locks == nil {
		g.locks = make(map[uuid.UUID]*guardEntry)
	}
	e, ok := g.locks[visitID]
	if !ok {
		e = &guardEntry{}
		g.locks[visitID] = e
	}
	e.refs++
	g.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		g.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(g.locks, visitID)
		}
		g.mu.Unlock()
	}
}
