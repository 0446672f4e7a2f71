// Package shift resolves locally-generated shift ids to their remote
// identifiers. Shift sync itself is a separate subsystem; this package only
// reads the link table it maintains.
package shift

import (
	"sync"

	"github.com/crewclock/crewclock/internal/store"
)

// Resolver is a cached local→remote shift id lookup. A mapping never changes
// once assigned, so positive results are cached for the process lifetime;
// misses always go back to the store because the shift may have synced since.
type Resolver struct {
	store *store.Store

	mu    sync.Mutex
	cache map[string]string
}

// NewResolver creates a Resolver over the device store.
func NewResolver(st *store.Store) *Resolver {
	return &Resolver{store: st, cache: make(map[string]string)}
}

// Resolve returns the remote id for a local shift id. ok is false while the
// shift has not yet synced; that is an expected condition, not an error.
func (r *Resolver) Resolve(localShiftID string) (remoteID string, ok bool, err error) {
	r.mu.Lock()
	if cached, hit := r.cache[localShiftID]; hit {
		r.mu.Unlock()
		return cached, true, nil
	}
	r.mu.Unlock()

	remoteID, ok, err = r.store.RemoteShiftID(localShiftID)
	if err != nil || !ok {
		return "", false, err
	}

	r.mu.Lock()
	r.cache[localShiftID] = remoteID
	r.mu.Unlock()
	return remoteID, true, nil
}
