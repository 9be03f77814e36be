package live

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/greengrid/greengrid/pkg/log"
	"github.com/greengrid/greengrid/pkg/types"
)

// LatestFunc returns the latest advisory of every household.
type LatestFunc func(ctx context.Context) ([]types.Advisory, error)

// Handler upgrades dashboard connections and registers them on the hub.
type Handler struct {
	hub      *Hub
	latest   LatestFunc
	upgrader websocket.Upgrader
}

// NewHandler returns a Handler. An empty origins list accepts any origin.
func NewHandler(hub *Hub, latest LatestFunc, origins []string) *Handler {
	return &Handler{
		hub:    hub,
		latest: latest,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				return slices.Contains(origins, r.Header.Get("Origin"))
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "websocket upgrade error", slog.Any("error", err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendLatest(ctx, client)
	h.readPump(ctx, client)
}

// sendLatest queues the current advisories so a new dashboard isn't empty
// until the next refresh.
func (h *Handler) sendLatest(ctx context.Context, c *Client) {
	if h.latest == nil {
		return
	}
	advisories, err := h.latest(ctx)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to load latest advisories for live client", slog.Any("error", err))
		return
	}
	for _, a := range advisories {
		b, err := encode(TypeAdvisory, a)
		if err != nil {
			continue
		}
		select {
		case c.send <- b:
		default:
		}
	}
}

// readPump discards client messages until the connection closes.
func (h *Handler) readPump(ctx context.Context, c *Client) {
	defer h.hub.Unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Ctx(ctx).DebugContext(ctx, "websocket read error", slog.Any("error", err))
			}
			return
		}
	}
}
