package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playforge/playforge/internal/game"
)

const (
	dbTimeout = 5 * time.Second

	// notifyChannel carries the change feed; writes publish an
	// {event, id} envelope in the same transaction as the row change.
	notifyChannel = "playforge_games"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS games (
	id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	title       text NOT NULL,
	description text NOT NULL DEFAULT '',
	game_type   text NOT NULL,
	data        jsonb NOT NULL,
	settings    jsonb NOT NULL,
	author_id   text NOT NULL,
	author_name text,
	is_public   boolean NOT NULL DEFAULT false,
	plays       integer NOT NULL DEFAULT 0,
	likes       integer NOT NULL DEFAULT 0,
	created_at  timestamptz NOT NULL DEFAULT now()
);

-- The reference is deliberately not ON DELETE CASCADE; module deletion
-- cleans likes up explicitly first.
CREATE TABLE IF NOT EXISTS likes (
	game_id uuid NOT NULL REFERENCES games(id),
	user_id text NOT NULL,
	PRIMARY KEY (game_id, user_id)
);

CREATE INDEX IF NOT EXISTS games_public_created_idx
	ON games (created_at DESC) WHERE is_public;
CREATE INDEX IF NOT EXISTS games_author_idx ON games (author_id);
`

const gameColumns = `id::text, title, description, game_type, data, settings,
	author_id, author_name, is_public, plays, likes, created_at`

// PostgresStore is the remote document-store backend.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the remote store and ensures its tables exist.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModule(row rowScanner) (game.Module, error) {
	var (
		m          game.Module
		data       []byte
		settings   []byte
		authorName *string
	)
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.GameType, &data, &settings,
		&m.AuthorID, &authorName, &m.IsPublic, &m.Plays, &m.Likes, &m.CreatedAt,
	)
	if err != nil {
		return game.Module{}, err
	}
	if authorName != nil {
		m.AuthorName = *authorName
	}
	m.Data, err = game.DecodeModuleData(m.GameType, data)
	if err != nil {
		return game.Module{}, err
	}
	if err := json.Unmarshal(settings, &m.Settings); err != nil {
		return game.Module{}, fmt.Errorf("decode settings: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) queryModules(ctx context.Context, query string, args ...any) ([]game.Module, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []game.Module{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListPublic(ctx context.Context) ([]game.Module, error) {
	mods, err := s.queryModules(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE is_public = true
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, storeErr("list public", err)
	}
	return mods, nil
}

func (s *PostgresStore) ListByAuthor(ctx context.Context, authorID string) ([]game.Module, error) {
	mods, err := s.queryModules(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE author_id = $1
		 ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, storeErr("list by author", err)
	}
	return mods, nil
}

// GetByID fetches a single module row. Feed resolution uses it to turn an
// {event, id} envelope back into a full row.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (game.Module, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	m, err := scanModule(s.pool.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1::uuid`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return game.Module{}, err
		}
		return game.Module{}, storeErr("get", err)
	}
	return m, nil
}

func notifyPayload(event EventType, id string) string {
	b, _ := json.Marshal(struct {
		Event EventType `json:"event"`
		ID    string    `json:"id"`
	}{event, id})
	return string(b)
}

func (s *PostgresStore) Save(ctx context.Context, m game.Module, isEdit bool) (game.Module, error) {
	data, err := json.Marshal(m.Data)
	if err != nil {
		return game.Module{}, storeErr("save", err)
	}
	settings, err := json.Marshal(m.Settings)
	if err != nil {
		return game.Module{}, storeErr("save", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return game.Module{}, storeErr("save", err)
	}
	defer tx.Rollback(ctx)

	var (
		row   pgx.Row
		event = EventInsert
	)
	if isEdit {
		if m.ID == "" {
			return game.Module{}, storeErr("save", fmt.Errorf("edit without id"))
		}
		event = EventUpdate
		row = tx.QueryRow(ctx,
			`UPDATE games
			 SET title = $2, description = $3, game_type = $4, data = $5,
			     settings = $6, author_id = $7, author_name = $8, is_public = $9
			 WHERE id = $1::uuid
			 RETURNING `+gameColumns,
			m.ID, m.Title, m.Description, m.GameType, data, settings,
			m.AuthorID, nullIfEmpty(m.AuthorName), m.IsPublic)
	} else {
		row = tx.QueryRow(ctx,
			`INSERT INTO games (title, description, game_type, data, settings,
			                    author_id, author_name, is_public)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+gameColumns,
			m.Title, m.Description, m.GameType, data, settings,
			m.AuthorID, nullIfEmpty(m.AuthorName), m.IsPublic)
	}

	stored, err := scanModule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return game.Module{}, storeErr("save", fmt.Errorf("module not found: %s", m.ID))
		}
		return game.Module{}, storeErr("save", err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`,
		notifyChannel, notifyPayload(event, stored.ID)); err != nil {
		return game.Module{}, storeErr("save", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return game.Module{}, storeErr("save", err)
	}
	return stored, nil
}

// Delete removes the module row. Likes referencing it go first because the
// foreign key is not configured to cascade; a failure there is logged and
// the module deletion proceeds regardless.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `DELETE FROM likes WHERE game_id = $1::uuid`, id); err != nil {
		slog.Warn("cleaning up likes failed", "game_id", id, "error", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeErr("delete", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `DELETE FROM games WHERE id = $1::uuid`, id)
	if err != nil {
		return storeErr("delete", err)
	}
	if cmd.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`,
			notifyChannel, notifyPayload(EventDelete, id)); err != nil {
			return storeErr("delete", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return storeErr("delete", err)
	}
	return nil
}

// DeleteAllUserData erases a user's footprint in two phases: their own
// likes first, then likes from ANY user on the user's modules, then the
// modules. The second phase exists because other users' likes on these
// modules are unreachable by a plain "delete my rows" pass.
func (s *PostgresStore) DeleteAllUserData(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `DELETE FROM likes WHERE user_id = $1`, userID); err != nil {
		return storeErr("delete user data", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT id::text FROM games WHERE author_id = $1`, userID)
	if err != nil {
		return storeErr("delete user data", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return storeErr("delete user data", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storeErr("delete user data", err)
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeErr("delete user data", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE game_id = ANY($1::uuid[])`, ids); err != nil {
		return storeErr("delete user data", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM games WHERE id = ANY($1::uuid[])`, ids); err != nil {
		return storeErr("delete user data", err)
	}
	for _, id := range ids {
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`,
			notifyChannel, notifyPayload(EventDelete, id)); err != nil {
			return storeErr("delete user data", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return storeErr("delete user data", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
