package gateway

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

	"github.com/mcdev12/planpoker/go/internal/events"
)

func TestAllowOrigins(t *testing.T) {
	check := AllowOrigins([]string{"https://poker.example"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "non-browser clients send no origin")
	req.Header.Set("Origin", "https://poker.example")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	assert.True(t, AllowOrigins([]string{"*"})(req))
}

func readEvent(t *testing.T, conn *websocket.Conn) *events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev events.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return &ev
}

func TestWebSocketRoundTrip(t *testing.T) {
	f := newGatewayFixture(t)

	cm := NewConnectionManager(DefaultConnectionConfig())
	dispatcher := NewDispatcher(f.coord, f.rooms, f.gatekeeper, f.tokens, notifierFunc(cm.BroadcastToRoom), cm, f.clock)
	cm.SetHandler(dispatcher)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cm.Start(ctx)

	mux := http.NewServeMux()
	NewWebSocketHandler(cm).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	join, err := json.Marshal(ClientMessage{
		Action: ActionJoinRoom,
		Data:   json.RawMessage(`{"room_code":"` + f.room.Code + `","token":"` + f.hostToken + `"}`),
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, join))

	assert.Equal(t, events.EventTypeRoomState, readEvent(t, conn).Type)
	// The join is also announced to the room, this connection included.
	assert.Equal(t, events.EventTypeParticipantJoined, readEvent(t, conn).Type)

	stats := cm.GetConnectionStats()
	assert.Equal(t, 1, stats["total_connections"])
	assert.Equal(t, 1, stats["active_rooms"])

	cm.CloseRoom(f.room.Code)
	require.Eventually(t, func() bool {
		return cm.GetConnectionStats()["total_connections"] == 0
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		p, err := f.rooms.GetParticipant(context.Background(), f.room.Code, f.room.HostID)
		return err == nil && !p.Online
	}, 5*time.Second, 10*time.Millisecond)
}

// notifierFunc adapts a broadcast function to the coordinator's Notifier.
type notifierFunc func(ev *events.Event)

func (n notifierFunc) Notify(_ context.Context, ev *events.Event) error {
	n(ev)
	return nil
}
