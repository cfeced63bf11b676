package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/slpdexd/indexer/internal/broadcast"
	"github.com/slpdexd/indexer/internal/cashaddr"
	"github.com/slpdexd/indexer/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Accepting any origin matches the teacher's localhost-only posture
	// being relaxed: this endpoint is read-only market data, not an
	// authenticated API, so CSRF/CORS-style origin checks don't apply.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Store is the subset of internal/store.Store the websocket route needs
// to hand a session its connect-time dependencies.
type Store = session.Store

// Resyncer is the subset of internal/indexer.Engine the websocket route
// needs to resync an address before its first snapshot.
type Resyncer = session.Resyncer

// WebsocketHandler upgrades GET /ws/{cash_address} and runs a session for
// the connection's lifetime (spec.md §6.4).
func WebsocketHandler(store Store, resync Resyncer, bus *broadcast.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addrParam := chi.URLParam(r, "cash_address")
		addr, err := cashaddr.Decode(addrParam)
		if err != nil {
			slog.Warn("rejecting websocket upgrade: bad cash address", "address", addrParam, "err", err)
			http.Error(w, "invalid cash address", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "address", addrParam, "err", err)
			return
		}

		id := uuid.NewString()
		s := session.New(id, addr, conn, store, resync, bus)
		slog.Info("session connected", "session", id, "address", addrParam)

		if err := s.Run(r.Context()); err != nil {
			slog.Warn("session ended with error", "session", id, "err", err)
		} else {
			slog.Info("session disconnected", "session", id)
		}
		conn.Close()
	}
}
