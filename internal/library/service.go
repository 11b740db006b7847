package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/playforge/playforge/internal/game"
	"github.com/playforge/playforge/internal/platform/cache"
	"github.com/playforge/playforge/internal/store"
)

const (
	publicCacheKey = "playforge:public"
	publicCacheTTL = 30 * time.Second
)

// ErrSaveInFlight is returned when a save is submitted while another one
// has not resolved yet.
var ErrSaveInFlight = errors.New("a save is already in flight")

// Broadcaster re-publishes applied change events, e.g. to websocket
// clients watching the community feed.
type Broadcaster interface {
	Broadcast(ev store.ChangeEvent)
}

// Config holds the service dependencies. Cache and Feed are optional.
type Config struct {
	Store  store.GameStore
	UserID string
	Cache  *cache.Cache
	Feed   Broadcaster
}

// Service is the composition point over the store, the reconciler, the
// listing cache and the feed broadcaster. All module reads and writes the
// authoring surface performs go through here.
type Service struct {
	store  store.GameStore
	rec    *Reconciler
	cache  *cache.Cache
	feed   Broadcaster
	userID string

	saving     atomic.Bool
	cancelFeed func()
	done       chan struct{}
}

// NewService wires a library service; Start must be called before the
// views track the change feed.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Service{
		store:  cfg.Store,
		rec:    NewReconciler(cfg.UserID),
		cache:  cfg.Cache,
		feed:   cfg.Feed,
		userID: cfg.UserID,
	}, nil
}

// Refresh fetches both views from the store and resets the snapshots. The
// public listing goes through the cache when one is configured.
func (s *Service) Refresh(ctx context.Context) error {
	public, err := s.listPublic(ctx)
	if err != nil {
		return fmt.Errorf("refresh public view: %w", err)
	}
	mine, err := s.store.ListByAuthor(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("refresh my view: %w", err)
	}
	s.rec.SetInitial(public, mine)
	return nil
}

func (s *Service) listPublic(ctx context.Context) ([]game.Module, error) {
	if s.cache != nil {
		if raw, err := s.cache.Client.Get(ctx, publicCacheKey).Result(); err == nil {
			var mods []game.Module
			if err := json.Unmarshal([]byte(raw), &mods); err == nil {
				return mods, nil
			}
			slog.Warn("discarding unreadable public listing cache")
		}
	}

	mods, err := s.store.ListPublic(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if b, err := json.Marshal(mods); err == nil {
			if err := s.cache.Client.Set(ctx, publicCacheKey, b, publicCacheTTL).Err(); err != nil {
				slog.Warn("caching public listing failed", "error", err)
			}
		}
	}
	return mods, nil
}

// Start subscribes to the change feed and pumps events into the
// reconciler. Each applied event invalidates the listing cache and is
// re-broadcast to feed watchers. Stop tears the pump down.
func (s *Service) Start(ctx context.Context) error {
	events, cancel, err := s.store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe change feed: %w", err)
	}
	s.cancelFeed = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for ev := range events {
			s.rec.Apply(ev)
			s.invalidateCache(ctx)
			if s.feed != nil {
				s.feed.Broadcast(ev)
			}
		}
	}()
	return nil
}

// Stop unsubscribes from the change feed; no event mutates the views
// after it returns.
func (s *Service) Stop() {
	if s.cancelFeed == nil {
		return
	}
	s.cancelFeed()
	<-s.done
	s.cancelFeed = nil
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Client.Del(ctx, publicCacheKey).Err(); err != nil {
		slog.Warn("invalidating public listing cache failed", "error", err)
	}
}

// Save persists the module. A second submission while one is in flight is
// refused; the guard clears even when the save fails.
func (s *Service) Save(ctx context.Context, m game.Module, isEdit bool) (game.Module, error) {
	if !s.saving.CompareAndSwap(false, true) {
		return game.Module{}, ErrSaveInFlight
	}
	defer s.saving.Store(false)

	if m.AuthorID == "" {
		m.AuthorID = s.userID
	}
	stored, err := s.store.Save(ctx, m, isEdit)
	if err != nil {
		return game.Module{}, err
	}
	s.invalidateCache(ctx)
	return stored, nil
}

// Delete removes the module; view updates arrive through the feed.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

// DeleteAllUserData erases the current user's modules and engagement
// records.
func (s *Service) DeleteAllUserData(ctx context.Context) error {
	userID := s.userID
	if userID == "" {
		userID = store.DefaultAuthorID
	}
	if err := s.store.DeleteAllUserData(ctx, userID); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

// Public returns the public view snapshot.
func (s *Service) Public() []game.Module { return s.rec.Public() }

// Mine returns the current user's view snapshot.
func (s *Service) Mine() []game.Module { return s.rec.Mine() }

// SearchPublic filters the public view by title and description. Matching
// folds case with Turkish rules so dotted and dotless i compare the way
// authors expect.
func (s *Service) SearchPublic(query string) []game.Module {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Public()
	}
	lower := cases.Lower(language.Turkish)
	q := lower.String(query)

	out := []game.Module{}
	for _, m := range s.rec.Public() {
		if strings.Contains(lower.String(m.Title), q) ||
			strings.Contains(lower.String(m.Description), q) {
			out = append(out, m)
		}
	}
	return out
}
