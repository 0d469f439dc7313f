package listing

import (
	"fmt"
	"sync"

	pkgerrors "github.com/lotmarkethq/lotmarket-backend/pkg/errors"
)

// itemGuard is the per-item in-progress token. Every mutating operation
// acquires the item's token on entry and releases it on every exit path;
// re-entry while held is rejected rather than queued, so a mutation nested
// inside a transfer step can never interleave with the outer one.
type itemGuard struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func newItemGuard() *itemGuard {
	return &itemGuard{held: make(map[int64]struct{})}
}

func (g *itemGuard) acquire(itemID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, taken := g.held[itemID]; taken {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("operation already in progress for item %d", itemID))
	}
	g.held[itemID] = struct{}{}
	return nil
}

func (g *itemGuard) release(itemID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, itemID)
}
