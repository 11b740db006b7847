package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// feedEnvelope is the pg_notify payload. Row data stays out of the
// envelope (NOTIFY payloads are size-limited); the listener re-fetches the
// row for inserts and updates.
type feedEnvelope struct {
	Event EventType `json:"event"`
	ID    string    `json:"id"`
}

// Subscribe opens the live change feed on a dedicated connection. The
// returned cancel func stops delivery and closes the channel; no event is
// delivered after it returns.
func (s *PostgresStore) Subscribe(ctx context.Context) (<-chan ChangeEvent, func(), error) {
	poolConn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, storeErr("subscribe", err)
	}
	// Hijack so the LISTEN state never leaks back into the pool.
	conn := poolConn.Hijack()

	if _, err := conn.Exec(ctx, `LISTEN `+notifyChannel); err != nil {
		conn.Close(context.Background())
		return nil, nil, storeErr("subscribe", err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	ch := make(chan ChangeEvent, 32)
	done := make(chan struct{})

	go s.listen(listenCtx, conn, ch, done)

	cancelFn := func() {
		cancel()
		<-done
	}
	return ch, cancelFn, nil
}

func (s *PostgresStore) listen(ctx context.Context, conn *pgx.Conn, ch chan<- ChangeEvent, done chan<- struct{}) {
	defer close(done)
	defer close(ch)
	defer conn.Close(context.Background())

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			slog.Error("change feed listener stopped", "error", err)
			return
		}

		ev, ok := s.resolve(ctx, n.Payload)
		if !ok {
			continue
		}
		select {
		case ch <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// resolve turns a notification payload into a change event. Malformed or
// unresolvable notifications are dropped, never raised.
func (s *PostgresStore) resolve(ctx context.Context, payload string) (ChangeEvent, bool) {
	var env feedEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		slog.Warn("dropping malformed feed notification", "error", err)
		return ChangeEvent{}, false
	}

	switch env.Event {
	case EventDelete:
		return ChangeEvent{Type: EventDelete, OldID: env.ID}, true
	case EventInsert, EventUpdate:
		m, err := s.GetByID(ctx, env.ID)
		if err != nil {
			// Row already gone or unreadable; the upcoming DELETE
			// notification covers the former case.
			slog.Warn("dropping unresolvable feed notification",
				"event", env.Event, "id", env.ID, "error", err)
			return ChangeEvent{}, false
		}
		return ChangeEvent{Type: env.Event, New: &m}, true
	default:
		slog.Warn("dropping unknown feed event", "event", env.Event)
		return ChangeEvent{}, false
	}
}
