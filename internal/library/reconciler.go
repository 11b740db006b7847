// Package library maintains the two derived collection views — the public
// community feed and the current user's own modules — and keeps them
// consistent with the store through the live change feed.
package library

import (
	"sync"

	"github.com/playforge/playforge/internal/game"
	"github.com/playforge/playforge/internal/store"
)

// Reconciler owns the two view snapshots exclusively and applies change
// feed events to them. Views are cached projections; the store stays the
// source of truth.
//
// Inserts and newly visible modules are prepended, matching the initial
// descending-by-creation-time fetch order; the relative order of untouched
// elements is never rearranged. This assumes the feed delivers inserts in
// recency order; a backfilling feed could leave the list out of order with
// true creation time.
type Reconciler struct {
	userID string

	mu     sync.RWMutex
	public []game.Module
	mine   []game.Module
}

// NewReconciler creates a reconciler for the given current user.
func NewReconciler(userID string) *Reconciler {
	return &Reconciler{userID: userID}
}

// SetInitial replaces both views with freshly fetched results.
func (r *Reconciler) SetInitial(public, mine []game.Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.public = append([]game.Module(nil), public...)
	r.mine = append([]game.Module(nil), mine...)
}

// Public returns a snapshot of the public view.
func (r *Reconciler) Public() []game.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]game.Module(nil), r.public...)
}

// Mine returns a snapshot of the current user's view.
func (r *Reconciler) Mine() []game.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]game.Module(nil), r.mine...)
}

// Apply folds one change event into both views. It is idempotent under
// duplicate events: a second insert for an id already present replaces
// instead of duplicating. Events it cannot interpret are dropped.
func (r *Reconciler) Apply(ev store.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case store.EventInsert:
		if ev.New == nil {
			return
		}
		if ev.New.IsPublic {
			r.public = upsert(r.public, *ev.New)
		}
		if r.userID != "" && ev.New.AuthorID == r.userID {
			r.mine = upsert(r.mine, *ev.New)
		}
	case store.EventUpdate:
		if ev.New == nil {
			return
		}
		if ev.New.IsPublic {
			r.public = upsert(r.public, *ev.New)
		} else {
			r.public = remove(r.public, ev.New.ID)
		}
		if r.userID != "" {
			r.mine = replace(r.mine, *ev.New)
		}
	case store.EventDelete:
		if ev.OldID == "" {
			return
		}
		r.public = remove(r.public, ev.OldID)
		r.mine = remove(r.mine, ev.OldID)
	}
}

// upsert replaces the module in place when present and prepends otherwise.
func upsert(mods []game.Module, m game.Module) []game.Module {
	for i := range mods {
		if mods[i].ID == m.ID {
			mods[i] = m
			return mods
		}
	}
	return append([]game.Module{m}, mods...)
}

// replace swaps the module in place when present and does nothing otherwise.
func replace(mods []game.Module, m game.Module) []game.Module {
	for i := range mods {
		if mods[i].ID == m.ID {
			mods[i] = m
			break
		}
	}
	return mods
}

func remove(mods []game.Module, id string) []game.Module {
	kept := mods[:0]
	for _, m := range mods {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	return kept
}
