package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

const (
	TypeAdvisory = "advisory"

	sendBuffer = 64
	writeWait  = 10 * time.Second
)

// Message is the envelope of everything sent to dashboard clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client is a connected dashboard.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected dashboards and broadcasts advisories to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg for every client. Clients whose buffer is full miss
// the message.
func (h *Hub) Broadcast(ctx context.Context, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Ctx(ctx).WarnContext(ctx, "live client buffer full, dropping message")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify broadcasts a new advisory. It implements the coordinator notifier.
func (h *Hub) Notify(ctx context.Context, a types.Advisory) error {
	b, err := encode(TypeAdvisory, a)
	if err != nil {
		return err
	}
	h.Broadcast(ctx, b)
	log.Ctx(ctx).DebugContext(ctx, "broadcast advisory", slog.Int("clients", h.ClientCount()))
	return nil
}

func encode(typ string, data any) ([]byte, error) {
	b, err := json.Marshal(Message{Type: typ, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", typ, err)
	}
	return b, nil
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
