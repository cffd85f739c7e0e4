package ws

import (
	"context"
	"sync"

	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/google/uuid"
)

// Entry is a presence record.
type Entry struct {
	UserID uuid.UUID
	Role   string
	Handle Handle
}

// ConnectionHub хранит активные соединения: один пользователь, одно соединение.
// The hub never writes to handles under its lock.
type ConnectionHub struct {
	clients map[uuid.UUID]Entry
	l       logger.Logger
	mu      sync.RWMutex
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[uuid.UUID]Entry),
		l:       l,
	}
}

// Register stores handle for userID and returns the handle it replaced, if any.
// The caller owns closing the replaced handle.
func (h *ConnectionHub) Register(userID uuid.UUID, role string, handle Handle) (Handle, bool) {
	h.mu.Lock()
	prev, replaced := h.clients[userID]
	h.clients[userID] = Entry{UserID: userID, Role: role, Handle: handle}
	h.mu.Unlock()

	if replaced {
		ctx := wrap.WithUserID(wrap.WithAction(context.Background(), "ws_connection_replace"), userID.String())
		h.l.Info(ctx, "replacing existing connection")
		return prev.Handle, true
	}
	return nil, false
}

// Unregister removes userID. Removing an absent user is a no-op.
func (h *ConnectionHub) Unregister(userID uuid.UUID) {
	h.mu.Lock()
	delete(h.clients, userID)
	h.mu.Unlock()
}

// UnregisterHandle removes userID only while it still points at handle, so a
// superseded connection can't evict its replacement.
func (h *ConnectionHub) UnregisterHandle(userID uuid.UUID, handle Handle) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur, ok := h.clients[userID]
	if !ok || cur.Handle != handle {
		return false
	}
	delete(h.clients, userID)
	return true
}

// Lookup returns the live handle of userID.
func (h *ConnectionHub) Lookup(userID uuid.UUID) (Handle, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	e, ok := h.clients[userID]
	if !ok {
		return nil, false
	}
	return e.Handle, true
}

// Each returns a snapshot of the entries with the given role; an empty role matches all.
func (h *ConnectionHub) Each(role string) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Entry, 0, len(h.clients))
	for _, e := range h.clients {
		if role == "" || e.Role == role {
			out = append(out, e)
		}
	}
	return out
}

func (h *ConnectionHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close закрывает все соединения и очищает хаб.
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	entries := make([]Entry, 0, len(h.clients))
	for _, e := range h.clients {
		entries = append(entries, e)
	}
	clear(h.clients)
	h.mu.Unlock()

	// закрываем вне локов
	for _, e := range entries {
		if err := e.Handle.Close(); err != nil {
			h.l.Warn(ctx, "failed to close conn", "user_id", e.UserID, "error", err.Error())
		}
	}

	h.l.Info(ctx, "all websocket connections closed", "count", len(entries))
}
