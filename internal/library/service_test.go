package library_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/playforge/playforge/internal/game"
	"github.com/playforge/playforge/internal/library"
	"github.com/playforge/playforge/internal/platform/cache"
	"github.com/playforge/playforge/internal/store"
)

// fakeStore implements store.GameStore in memory with an inspectable call
// log and a controllable save gate.
type fakeStore struct {
	mu       sync.Mutex
	mods     []game.Module
	nextID   int
	calls    map[string]int
	saveGate chan struct{} // when set, Save blocks until the gate closes
	saveErr  error
	events   chan store.ChangeEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		calls:  map[string]int{},
		events: make(chan store.ChangeEvent, 16),
	}
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) ListPublic(context.Context) ([]game.Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListPublic"]++
	out := []game.Module{}
	for _, m := range f.mods {
		if m.IsPublic {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByAuthor(_ context.Context, authorID string) ([]game.Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListByAuthor"]++
	out := []game.Module{}
	for _, m := range f.mods {
		if m.AuthorID == authorID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) Save(_ context.Context, m game.Module, isEdit bool) (game.Module, error) {
	f.mu.Lock()
	f.calls["Save"]++
	gate := f.saveGate
	saveErr := f.saveErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if saveErr != nil {
		return game.Module{}, saveErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !isEdit {
		f.nextID++
		m.ID = fmt.Sprintf("fake-%d", f.nextID)
		f.mods = append([]game.Module{m}, f.mods...)
	} else {
		for i := range f.mods {
			if f.mods[i].ID == m.ID {
				f.mods[i] = m
			}
		}
	}
	return m, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Delete"]++
	kept := f.mods[:0]
	for _, m := range f.mods {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	f.mods = kept
	return nil
}

func (f *fakeStore) DeleteAllUserData(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteAllUserData"]++
	f.calls["wiped:"+userID]++
	return nil
}

func (f *fakeStore) Subscribe(context.Context) (<-chan store.ChangeEvent, func(), error) {
	return f.events, func() { close(f.events) }, nil
}

func (f *fakeStore) Close() error { return nil }

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return &cache.Cache{Client: client}
}

func TestService_RefreshPopulatesViews(t *testing.T) {
	fs := newFakeStore()
	fs.mods = []game.Module{
		mod("1", "Public Other", "other", true),
		mod("2", "Mine Private", "me", false),
	}
	svc, err := library.NewService(library.Config{Store: fs, UserID: "me"})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := svc.Public(); !sameIDs(got, "1") {
		t.Errorf("Public() = %v, want [1]", ids(got))
	}
	if got := svc.Mine(); !sameIDs(got, "2") {
		t.Errorf("Mine() = %v, want [2]", ids(got))
	}
}

func TestService_SaveGuard(t *testing.T) {
	fs := newFakeStore()
	gate := make(chan struct{})
	fs.saveGate = gate
	svc, err := library.NewService(library.Config{Store: fs, UserID: "me"})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Save(ctx, mod("", "Slow", "me", false), false)
		firstDone <- err
	}()

	// Wait for the first save to reach the store before racing it.
	deadline := time.Now().Add(time.Second)
	for fs.count("Save") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first save never reached the store")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := svc.Save(ctx, mod("", "Racer", "me", false), false); !errors.Is(err, library.ErrSaveInFlight) {
		t.Errorf("second Save() error = %v, want ErrSaveInFlight", err)
	}

	close(gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Save() error = %v", err)
	}

	// The guard clears once the first save resolves.
	if _, err := svc.Save(ctx, mod("", "After", "me", false), false); err != nil {
		t.Errorf("Save() after guard release error = %v", err)
	}
}

func TestService_SaveGuardClearsOnFailure(t *testing.T) {
	fs := newFakeStore()
	fs.saveErr = errors.New("disk full")
	svc, err := library.NewService(library.Config{Store: fs, UserID: "me"})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	ctx := context.Background()

	if _, err := svc.Save(ctx, mod("", "Doomed", "me", false), false); err == nil {
		t.Fatal("Save() should propagate the store failure")
	}

	fs.mu.Lock()
	fs.saveErr = nil
	fs.mu.Unlock()
	if _, err := svc.Save(ctx, mod("", "Retry", "me", false), false); err != nil {
		t.Errorf("Save() after failure error = %v, guard must have cleared", err)
	}
}

func TestService_SaveStampsAuthor(t *testing.T) {
	fs := newFakeStore()
	svc, err := library.NewService(library.Config{Store: fs, UserID: "me"})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	saved, err := svc.Save(context.Background(), mod("", "Untagged", "", false), false)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.AuthorID != "me" {
		t.Errorf("AuthorID = %q, want me", saved.AuthorID)
	}
}

func TestService_FeedUpdatesViews(t *testing.T) {
	fs := newFakeStore()
	svc, err := library.NewService(library.Config{Store: fs, UserID: "me"})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	m := mod("f1", "From Feed", "other", true)
	fs.events <- store.ChangeEvent{Type: store.EventInsert, New: &m}

	deadline := time.Now().Add(time.Second)
	for len(svc.Public()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("feed event never reached the public view")
		}
		time.Sleep(time.Millisecond)
	}
	if got := svc.Public(); !sameIDs(got, "f1") {
		t.Errorf("Public() = %v, want [f1]", ids(got))
	}

	// After Stop no event mutates the views.
	svc.Stop()
	if got := svc.Public(); !sameIDs(got, "f1") {
		t.Errorf("Public() after Stop = %v, want [f1]", ids(got))
	}
}

func TestService_CachedPublicListing(t *testing.T) {
	fs := newFakeStore()
	fs.mods = []game.Module{mod("1", "Cached", "other", true)}
	svc, err := library.NewService(library.Config{Store: fs, UserID: "me", Cache: newTestCache(t)})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	ctx := context.Background()

	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if fs.count("ListPublic") != 1 {
		t.Fatalf("ListPublic calls = %d, want 1", fs.count("ListPublic"))
	}

	// Second refresh inside the TTL is served from the cache.
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	if fs.count("ListPublic") != 1 {
		t.Errorf("ListPublic calls = %d, want 1 (cache hit)", fs.count("ListPublic"))
	}
	if got := svc.Public(); !sameIDs(got, "1") {
		t.Errorf("Public() = %v, want [1]", ids(got))
	}
}

func TestService_WriteInvalidatesCache(t *testing.T) {
	fs := newFakeStore()
	svc, err := library.NewService(library.Config{Store: fs, UserID: "me", Cache: newTestCache(t)})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	ctx := context.Background()

	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if _, err := svc.Save(ctx, mod("", "New", "me", true), false); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// The save dropped the cached listing, so the next refresh hits the
	// store and sees the new module.
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if fs.count("ListPublic") != 2 {
		t.Errorf("ListPublic calls = %d, want 2 (cache invalidated)", fs.count("ListPublic"))
	}
	if got := svc.Public(); len(got) != 1 || got[0].Title != "New" {
		t.Errorf("Public() = %v, want the fresh module", got)
	}
}

func TestService_DeleteAllUserDataFallsBackToDemoUser(t *testing.T) {
	fs := newFakeStore()
	svc, err := library.NewService(library.Config{Store: fs, UserID: ""})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	if err := svc.DeleteAllUserData(context.Background()); err != nil {
		t.Fatalf("DeleteAllUserData() error = %v", err)
	}
	if fs.count("wiped:"+store.DefaultAuthorID) != 1 {
		t.Errorf("wipe should target %q when no user is configured", store.DefaultAuthorID)
	}
}

func TestService_SearchPublic(t *testing.T) {
	fs := newFakeStore()
	svc, err := library.NewService(library.Config{Store: fs, UserID: "me"})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	a := mod("a", "İstanbul Tarihi", "other", true)
	a.Description = "Şehir bilgisi"
	b := mod("b", "Fractions", "other", true)
	b.Description = "Basic math drills"
	fs.mods = []game.Module{a, b}
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"a", "b"}},
		{"   ", []string{"a", "b"}},
		{"istanbul", []string{"a"}}, // dotless query still matches İstanbul
		{"MATH", []string{"b"}},     // description matches too
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		got := svc.SearchPublic(tt.query)
		if !sameIDs(got, tt.want...) {
			t.Errorf("SearchPublic(%q) = %v, want %v", tt.query, ids(got), tt.want)
		}
	}
}
