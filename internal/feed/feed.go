// Package feed pushes applied change events to websocket clients so
// browsing surfaces can update their lists in near real time.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/playforge/playforge/internal/game"
	"github.com/playforge/playforge/internal/store"
)

const writeTimeout = 5 * time.Second

// wireEvent is the JSON shape delivered to clients.
type wireEvent struct {
	Event  store.EventType `json:"event"`
	Module *game.Module    `json:"module,omitempty"`
	ID     string          `json:"id,omitempty"`
}

// Broadcaster fans change events out to connected websocket clients.
// Clients only listen; inbound frames are discarded.
type Broadcaster struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]context.Context
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{conns: make(map[*websocket.Conn]context.Context)}
}

// Handler accepts websocket subscriptions and keeps them registered until
// the client goes away.
func (b *Broadcaster) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Warn("feed subscription rejected", "error", err)
			return
		}

		// CloseRead discards inbound frames and cancels the context
		// when the peer disconnects.
		ctx := conn.CloseRead(r.Context())

		b.mu.Lock()
		b.conns[conn] = ctx
		n := len(b.conns)
		b.mu.Unlock()
		slog.Info("feed client connected", "clients", n)

		<-ctx.Done()

		b.mu.Lock()
		delete(b.conns, conn)
		b.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	})
}

// Clients returns the number of connected feed clients.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// Broadcast sends the event to every connected client. A client that
// cannot be written to is dropped.
func (b *Broadcaster) Broadcast(ev store.ChangeEvent) {
	msg, err := json.Marshal(wireEvent{Event: ev.Type, Module: ev.New, ID: ev.OldID})
	if err != nil {
		slog.Error("encoding feed event failed", "error", err)
		return
	}

	b.mu.Lock()
	conns := make(map[*websocket.Conn]context.Context, len(b.conns))
	for c, ctx := range b.conns {
		conns[c] = ctx
	}
	b.mu.Unlock()

	for conn, ctx := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := conn.Write(writeCtx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			slog.Warn("dropping unresponsive feed client", "error", err)
			conn.Close(websocket.StatusPolicyViolation, "write timeout")
			b.mu.Lock()
			delete(b.conns, conn)
			b.mu.Unlock()
		}
	}
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.conns {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		delete(b.conns, conn)
	}
}
