package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/playforge/playforge/internal/game"
)

// localKey is the key/value slot holding the whole module array, one JSON
// blob per logical table.
const localKey = "playforge_games"

// KV is the local fallback storage contract: synchronous key/value
// persistence of a single JSON blob per key.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// FileKV keeps each key as a JSON file in a directory.
type FileKV struct {
	dir string
}

// NewFileKV creates the backing directory if needed.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
	}
	return &FileKV{dir: dir}, nil
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileKV) Get(key string) (string, bool, error) {
	b, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(b), true, nil
}

func (f *FileKV) Set(key, value string) error {
	if err := os.WriteFile(f.path(key), []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// MemKV is an in-memory KV for tests.
type MemKV struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemKV() *MemKV {
	return &MemKV{m: make(map[string]string)}
}

func (k *MemKV) Get(key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.m[key]
	return v, ok, nil
}

func (k *MemKV) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

// LocalStore is the offline backend: every operation is a synchronous
// read/write/filter of one JSON-encoded module array. It emits its own
// change events so the reconciler path is identical to the remote one.
type LocalStore struct {
	kv       KV
	authorID string
	hub      *hub
	now      func() time.Time
	mu       sync.Mutex
}

// NewLocalStore creates a local store. An empty authorID falls back to the
// demo placeholder identity.
func NewLocalStore(kv KV, authorID string) *LocalStore {
	if authorID == "" {
		authorID = DefaultAuthorID
	}
	return &LocalStore{kv: kv, authorID: authorID, hub: newHub(), now: time.Now}
}

func (s *LocalStore) load() ([]game.Module, error) {
	raw, ok, err := s.kv.Get(localKey)
	if err != nil {
		return nil, storeErr("load", err)
	}
	if !ok || raw == "" {
		return []game.Module{}, nil
	}
	var mods []game.Module
	if err := json.Unmarshal([]byte(raw), &mods); err != nil {
		return nil, storeErr("load", err)
	}
	return mods, nil
}

func (s *LocalStore) persist(mods []game.Module) error {
	b, err := json.Marshal(mods)
	if err != nil {
		return storeErr("persist", err)
	}
	if err := s.kv.Set(localKey, string(b)); err != nil {
		return storeErr("persist", err)
	}
	return nil
}

func (s *LocalStore) ListPublic(_ context.Context) ([]game.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mods, err := s.load()
	if err != nil {
		return nil, err
	}
	out := []game.Module{}
	for _, m := range mods {
		if m.IsPublic {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *LocalStore) ListByAuthor(_ context.Context, authorID string) ([]game.Module, error) {
	if authorID == "" {
		authorID = s.authorID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mods, err := s.load()
	if err != nil {
		return nil, err
	}
	out := []game.Module{}
	for _, m := range mods {
		if m.AuthorID == authorID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *LocalStore) Save(_ context.Context, m game.Module, isEdit bool) (game.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mods, err := s.load()
	if err != nil {
		return game.Module{}, err
	}

	if m.AuthorID == "" {
		m.AuthorID = s.authorID
	}
	if m.AuthorName == "" {
		m.AuthorName = "You"
	}

	if isEdit {
		if m.ID == "" {
			return game.Module{}, storeErr("save", fmt.Errorf("edit without id"))
		}
		found := false
		for i := range mods {
			if mods[i].ID == m.ID {
				m.CreatedAt = mods[i].CreatedAt
				mods[i] = m
				found = true
				break
			}
		}
		if !found {
			return game.Module{}, storeErr("save", fmt.Errorf("module not found: %s", m.ID))
		}
	} else {
		m.ID = fmt.Sprintf("demo-%d", s.now().UnixMilli())
		m.CreatedAt = s.now()
		// Newest first, matching the remote read order.
		mods = append([]game.Module{m}, mods...)
	}

	if err := s.persist(mods); err != nil {
		return game.Module{}, err
	}

	ev := ChangeEvent{Type: EventInsert, New: &m}
	if isEdit {
		ev.Type = EventUpdate
	}
	s.hub.broadcast(ev)
	return m, nil
}

func (s *LocalStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mods, err := s.load()
	if err != nil {
		return err
	}
	kept := mods[:0]
	removed := false
	for _, m := range mods {
		if m.ID == id {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	if !removed {
		return nil
	}
	if err := s.persist(kept); err != nil {
		return err
	}
	s.hub.broadcast(ChangeEvent{Type: EventDelete, OldID: id})
	return nil
}

func (s *LocalStore) DeleteAllUserData(_ context.Context, userID string) error {
	if userID == "" {
		userID = s.authorID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	mods, err := s.load()
	if err != nil {
		return err
	}
	kept := mods[:0]
	var removed []string
	for _, m := range mods {
		if m.AuthorID == userID {
			removed = append(removed, m.ID)
			continue
		}
		kept = append(kept, m)
	}
	if len(removed) == 0 {
		return nil
	}
	if err := s.persist(kept); err != nil {
		return err
	}
	for _, id := range removed {
		s.hub.broadcast(ChangeEvent{Type: EventDelete, OldID: id})
	}
	return nil
}

func (s *LocalStore) Subscribe(_ context.Context) (<-chan ChangeEvent, func(), error) {
	ch, cancel := s.hub.subscribe()
	return ch, cancel, nil
}

func (s *LocalStore) Close() error {
	s.hub.close()
	return nil
}
