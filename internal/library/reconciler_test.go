package library_test

import (
	"testing"

	"github.com/playforge/playforge/internal/game"
	"github.com/playforge/playforge/internal/library"
	"github.com/playforge/playforge/internal/store"
)

func mod(id, title, author string, public bool) game.Module {
	return game.Module{
		ID:       id,
		Title:    title,
		GameType: game.TypeMixed,
		Data:     game.ModuleData{Type: game.TypeMixed, Stages: []game.Stage{}},
		AuthorID: author,
		IsPublic: public,
	}
}

func ids(mods []game.Module) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.ID
	}
	return out
}

func sameIDs(got []game.Module, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, m := range got {
		if m.ID != want[i] {
			return false
		}
	}
	return true
}

func TestReconciler_InsertPrepends(t *testing.T) {
	r := library.NewReconciler("me")
	r.SetInitial([]game.Module{mod("b", "Older", "other", true)}, nil)

	m := mod("a", "Newest", "other", true)
	r.Apply(store.ChangeEvent{Type: store.EventInsert, New: &m})

	if got := r.Public(); !sameIDs(got, "a", "b") {
		t.Errorf("Public() = %v, want [a b]", ids(got))
	}
	if got := r.Mine(); len(got) != 0 {
		t.Errorf("Mine() = %v, other author's module must not appear", ids(got))
	}
}

func TestReconciler_InsertRoutesToBothViews(t *testing.T) {
	r := library.NewReconciler("me")
	m := mod("a", "Mine Public", "me", true)
	r.Apply(store.ChangeEvent{Type: store.EventInsert, New: &m})

	if got := r.Public(); !sameIDs(got, "a") {
		t.Errorf("Public() = %v, want [a]", ids(got))
	}
	if got := r.Mine(); !sameIDs(got, "a") {
		t.Errorf("Mine() = %v, want [a]", ids(got))
	}

	priv := mod("b", "Mine Private", "me", false)
	r.Apply(store.ChangeEvent{Type: store.EventInsert, New: &priv})
	if got := r.Public(); !sameIDs(got, "a") {
		t.Errorf("Public() = %v, private insert must not join the public view", ids(got))
	}
	if got := r.Mine(); !sameIDs(got, "b", "a") {
		t.Errorf("Mine() = %v, want [b a]", ids(got))
	}
}

func TestReconciler_DuplicateInsertDoesNotDuplicate(t *testing.T) {
	r := library.NewReconciler("me")
	m := mod("a", "First", "other", true)
	r.Apply(store.ChangeEvent{Type: store.EventInsert, New: &m})

	again := mod("a", "First (redelivered)", "other", true)
	r.Apply(store.ChangeEvent{Type: store.EventInsert, New: &again})

	got := r.Public()
	if !sameIDs(got, "a") {
		t.Fatalf("Public() = %v, duplicate insert must replace, not append", ids(got))
	}
	if got[0].Title != "First (redelivered)" {
		t.Errorf("Title = %q, want the redelivered row", got[0].Title)
	}
}

func TestReconciler_UpdateInPlace(t *testing.T) {
	r := library.NewReconciler("me")
	r.SetInitial(
		[]game.Module{mod("a", "A", "other", true), mod("b", "B", "me", true), mod("c", "C", "other", true)},
		[]game.Module{mod("b", "B", "me", true)},
	)

	upd := mod("b", "B v2", "me", true)
	r.Apply(store.ChangeEvent{Type: store.EventUpdate, New: &upd})

	got := r.Public()
	if !sameIDs(got, "a", "b", "c") {
		t.Fatalf("Public() = %v, update must not move the element", ids(got))
	}
	if got[1].Title != "B v2" {
		t.Errorf("Title = %q, want B v2", got[1].Title)
	}
	if mine := r.Mine(); len(mine) != 1 || mine[0].Title != "B v2" {
		t.Errorf("Mine() = %v, want the updated row", mine)
	}
}

func TestReconciler_VisibilityFlip(t *testing.T) {
	r := library.NewReconciler("me")
	r.SetInitial(
		[]game.Module{mod("a", "A", "me", true)},
		[]game.Module{mod("a", "A", "me", true)},
	)

	// Public -> private: leaves the public view, stays in mine.
	hidden := mod("a", "A", "me", false)
	r.Apply(store.ChangeEvent{Type: store.EventUpdate, New: &hidden})
	if got := r.Public(); len(got) != 0 {
		t.Errorf("Public() = %v, want empty after going private", ids(got))
	}
	if got := r.Mine(); !sameIDs(got, "a") {
		t.Errorf("Mine() = %v, want [a]", ids(got))
	}

	// Private -> public: re-enters the public view at the front.
	shown := mod("a", "A", "me", true)
	r.Apply(store.ChangeEvent{Type: store.EventUpdate, New: &shown})
	if got := r.Public(); !sameIDs(got, "a") {
		t.Errorf("Public() = %v, want [a] after going public again", ids(got))
	}
}

func TestReconciler_UpdateNeverInsertsIntoMine(t *testing.T) {
	r := library.NewReconciler("me")

	// An update for a row the mine view never held stays out of it.
	upd := mod("x", "Unknown", "me", false)
	r.Apply(store.ChangeEvent{Type: store.EventUpdate, New: &upd})
	if got := r.Mine(); len(got) != 0 {
		t.Errorf("Mine() = %v, update must not insert", ids(got))
	}
}

func TestReconciler_Delete(t *testing.T) {
	r := library.NewReconciler("me")
	r.SetInitial(
		[]game.Module{mod("a", "A", "me", true), mod("b", "B", "other", true)},
		[]game.Module{mod("a", "A", "me", true)},
	)

	r.Apply(store.ChangeEvent{Type: store.EventDelete, OldID: "a"})
	if got := r.Public(); !sameIDs(got, "b") {
		t.Errorf("Public() = %v, want [b]", ids(got))
	}
	if got := r.Mine(); len(got) != 0 {
		t.Errorf("Mine() = %v, want empty", ids(got))
	}

	// Unknown id deletes are dropped silently.
	r.Apply(store.ChangeEvent{Type: store.EventDelete, OldID: "missing"})
	if got := r.Public(); !sameIDs(got, "b") {
		t.Errorf("Public() = %v after unknown delete, want [b]", ids(got))
	}
}

func TestReconciler_MalformedEventsDropped(t *testing.T) {
	r := library.NewReconciler("me")
	r.SetInitial([]game.Module{mod("a", "A", "me", true)}, nil)

	r.Apply(store.ChangeEvent{Type: store.EventInsert})
	r.Apply(store.ChangeEvent{Type: store.EventUpdate})
	r.Apply(store.ChangeEvent{Type: store.EventDelete})

	if got := r.Public(); !sameIDs(got, "a") {
		t.Errorf("Public() = %v, malformed events must not change views", ids(got))
	}
}
