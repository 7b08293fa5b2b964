package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// ReloadMessage tells connected pages to reload.
const ReloadMessage = "reload"

const writeTimeout = 5 * time.Second

// Hub keeps the live-reload WebSocket connections.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:  make(map[*websocket.Conn]struct{}),
		logger: logger.With("component", "reload"),
	}
}

// ServeHTTP upgrades the request and holds the connection until the page
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		h.logger.Debug("websocket accept failed", "error", err)
		return
	}
	h.add(c)
	defer h.remove(c)

	ctx := c.CloseRead(r.Context())
	<-ctx.Done()
	c.Close(websocket.StatusNormalClosure, "")
}

// Broadcast sends msg to every connection and returns how many received it.
// Connections that fail are dropped.
func (h *Hub) Broadcast(ctx context.Context, msg string) int {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	sent := 0
	for _, c := range conns {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.Write(wctx, websocket.MessageText, []byte(msg))
		cancel()
		if err != nil {
			h.logger.Debug("dropping reload client", "error", err)
			h.remove(c)
			continue
		}
		sent++
	}
	return sent
}

// Len returns the number of connected pages.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}
