// Package store persists game modules behind two interchangeable backends:
// a JSON-file-backed local store for offline use and a PostgreSQL-backed
// remote store with a live change feed. The backend is chosen once at
// startup and injected; callers never branch on configuration.
package store

import (
	"context"
	"fmt"

	"github.com/playforge/playforge/internal/game"
)

// DefaultAuthorID is the placeholder author used by the local backend when
// no real session exists.
const DefaultAuthorID = "demo-user"

// EventType mirrors the document store's change-feed event kinds.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one change-feed delivery. New is set for inserts and
// updates; OldID identifies the removed row for deletes.
type ChangeEvent struct {
	Type  EventType
	New   *game.Module
	OldID string
}

// StoreError wraps a backend failure (network, constraint violation). The
// caller must leave prior in-memory state untouched and report it; no
// automatic retry happens at this layer.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// GameStore is the dual-backend persistence contract.
type GameStore interface {
	// ListPublic returns all public modules, newest first.
	ListPublic(ctx context.Context) ([]game.Module, error)
	// ListByAuthor returns the author's modules, newest first.
	ListByAuthor(ctx context.Context, authorID string) ([]game.Module, error)
	// Save inserts when isEdit is false and performs a full-row update
	// keyed by id when true. It returns the canonicalized stored row.
	Save(ctx context.Context, m game.Module, isEdit bool) (game.Module, error)
	// Delete removes the module and, on the remote backend, its dependent
	// engagement records first. Engagement cleanup failure is non-fatal.
	Delete(ctx context.Context, id string) error
	// DeleteAllUserData removes the user's engagement records, every
	// engagement record referencing the user's modules, and finally the
	// modules themselves.
	DeleteAllUserData(ctx context.Context, userID string) error
	// Subscribe opens the change feed. The cancel func stops delivery and
	// closes the channel; no event arrives after cancellation.
	Subscribe(ctx context.Context) (<-chan ChangeEvent, func(), error)
	Close() error
}
