package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"meeting-chat/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ErrConnectionGone is returned when the connection is not held by this hub.
var ErrConnectionGone = errors.New("connection gone")

type client struct {
	conn    *websocket.Conn
	info    ConnInfo
	writeMu sync.Mutex
}

// Hub holds the live websocket connections of this node, keyed by connection id.
type Hub struct {
	clients map[string]*client
	mu      sync.RWMutex
	log     zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     log.With().Str("component", "ws_hub").Logger(),
	}
}

// Add registers a websocket connection under info.ConnID.
func (h *Hub) Add(info ConnInfo, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[info.ConnID] = &client{conn: conn, info: info}
}

// Remove forgets a connection. It reports whether the connection was held.
func (h *Hub) Remove(connectionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connectionID]; !ok {
		return false
	}
	delete(h.clients, connectionID)
	return true
}

// Len returns the number of held connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send writes one text frame to a connection. A failed write closes the
// connection, which in turn ends its read loop and deregisters it.
func (h *Hub) Send(ctx context.Context, connectionID string, payload []byte) error {
	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send %s: %w", connectionID, ErrConnectionGone)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.log.Warn().Err(err).Str("connection_id", connectionID).Msg("websocket write error")
		c.conn.Close()
		h.Remove(connectionID)
		h.publishWSError(c.info, err)
		return fmt.Errorf("send %s: %w", connectionID, err)
	}
	return nil
}

func (h *Hub) ping(connectionID string) error {
	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return ErrConnectionGone
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// CloseAll sends a going-away close frame to every held connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.conn.Close()
	}
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), observability.WSRoutingKey, wsEventEnvelope("ws_error", info, err.Error()), headers)
	observability.IncWSEvent("ws_error")
}
