package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greengrid/greengrid/pkg/types"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string         `json:"type"`
		Data types.Advisory `json:"data"`
	}
	require.NoError(t, json.Unmarshal(b, &msg))
	return Message{Type: msg.Type, Data: msg.Data}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubNotify(t *testing.T) {
	hub := NewHub()
	mux := http.NewServeMux()
	mux.Handle("/ws", NewHandler(hub, nil, nil))
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dial(t, server)
	waitForClients(t, hub, 1)

	a := types.Advisory{
		ID:          "a1",
		HouseholdID: "home",
		Result: types.DispatchResult{
			Decision:      types.DecisionUseBattery,
			BatteryAction: types.BatteryActionDischarge,
		},
	}
	require.NoError(t, hub.Notify(context.Background(), a))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeAdvisory, msg.Type)
	got := msg.Data.(types.Advisory)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, types.DecisionUseBattery, got.Result.Decision)
}

func TestHandlerSendsLatestOnConnect(t *testing.T) {
	hub := NewHub()
	latest := func(ctx context.Context) ([]types.Advisory, error) {
		return []types.Advisory{{ID: "x", HouseholdID: "home"}, {ID: "y", HouseholdID: "flat"}}, nil
	}
	server := httptest.NewServer(NewHandler(hub, latest, nil))
	defer server.Close()

	conn := dial(t, server)
	assert.Equal(t, "x", readMessage(t, conn).Data.(types.Advisory).ID)
	assert.Equal(t, "y", readMessage(t, conn).Data.(types.Advisory).ID)
}

func TestHubUnregisterOnClose(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(NewHandler(hub, nil, nil))
	defer server.Close()

	conn := dial(t, server)
	waitForClients(t, hub, 1)
	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHandlerRejectsOrigin(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(NewHandler(hub, nil, []string{"https://greengrid.example"}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://greengrid.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c := &Client{send: make(chan []byte, 1)}
	hub.Register(c)

	hub.Broadcast(context.Background(), []byte("one"))
	hub.Broadcast(context.Background(), []byte("two"))
	assert.Len(t, c.send, 1)
	assert.Equal(t, []byte("one"), <-c.send)

	hub.Unregister(c)
	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
}
