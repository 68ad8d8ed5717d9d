package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:       "release",
		ReadLimit:  32768,
		HistoryCap: 100,
		RateLimit:  100,
		RateWindow: time.Second,
		Secret:     "test-secret",
	}
}

func startServer(t *testing.T) (*httptest.Server, *app.Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	orch := app.NewOrchestrator(100)
	srv := httptest.NewServer(SetupRouter(ctx, testConfig(), orch))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, orch
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/chat"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func sendEvent(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := startServer(t)

	for _, path := range []string{"/", "/healthz"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", string(body))
	}
}

func TestWebsocketGreetingAndIdentify(t *testing.T) {
	srv, _ := startServer(t)
	ws := dial(t, srv)

	info := readEvent(t, ws)
	assert.Equal(t, "server_info", info["type"])
	assert.NotEmpty(t, info["sessionId"])
	assert.Equal(t, "require_identity", readEvent(t, ws)["type"])

	sendEvent(t, ws, map[string]string{"type": "identify", "name": "Alice"})
	identity := readEvent(t, ws)
	assert.Equal(t, "identity", identity["type"])
	assert.Equal(t, "Alice", identity["name"])
	assert.NotEmpty(t, identity["userId"])
}

func TestWebsocketIdentityGate(t *testing.T) {
	srv, _ := startServer(t)
	ws := dial(t, srv)
	readEvent(t, ws) // server_info
	readEvent(t, ws) // require_identity

	sendEvent(t, ws, map[string]string{"type": "chat", "message": "hello"})
	ev := readEvent(t, ws)
	assert.Equal(t, "error", ev["type"])
	assert.Equal(t, "NOT_IDENTIFIED", ev["code"])
}

func TestWebsocketChatRelay(t *testing.T) {
	srv, _ := startServer(t)

	alice := dial(t, srv)
	readEvent(t, alice)
	readEvent(t, alice)
	sendEvent(t, alice, map[string]string{"type": "identify", "name": "Alice"})
	readEvent(t, alice) // identity
	sendEvent(t, alice, map[string]string{"type": "join", "roomId": "general"})
	readEvent(t, alice) // room_state
	readEvent(t, alice) // system joined

	bob := dial(t, srv)
	readEvent(t, bob)
	readEvent(t, bob)
	sendEvent(t, bob, map[string]string{"type": "identify", "name": "Bob"})
	readEvent(t, bob) // identity
	sendEvent(t, bob, map[string]string{"type": "join", "roomId": "general"})

	state := readEvent(t, alice)
	assert.Equal(t, "room_state", state["type"])
	assert.Equal(t, float64(2), state["memberCount"])
	assert.Equal(t, "Bob joined", readEvent(t, alice)["message"])
	readEvent(t, bob) // room_state
	readEvent(t, bob) // system joined

	sendEvent(t, alice, map[string]string{"type": "chat", "message": "hi"})
	for _, ws := range []*websocket.Conn{alice, bob} {
		chat := readEvent(t, ws)
		assert.Equal(t, "chat", chat["type"])
		assert.Equal(t, "hi", chat["message"])
		assert.Equal(t, "Alice", chat["sender"])
		assert.Equal(t, "general", chat["roomId"])
	}
}

func TestWebsocketRawTextFallsBackToChat(t *testing.T) {
	srv, _ := startServer(t)
	ws := dial(t, srv)
	readEvent(t, ws)
	readEvent(t, ws)
	sendEvent(t, ws, map[string]string{"type": "identify", "name": "Alice"})
	readEvent(t, ws)
	sendEvent(t, ws, map[string]string{"type": "join", "roomId": "general"})
	readEvent(t, ws)
	readEvent(t, ws)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("just plain text")))
	chat := readEvent(t, ws)
	assert.Equal(t, "chat", chat["type"])
	assert.Equal(t, "just plain text", chat["message"])
}

func TestWebsocketDisconnectNotifiesRoom(t *testing.T) {
	srv, orch := startServer(t)

	alice := dial(t, srv)
	readEvent(t, alice)
	readEvent(t, alice)
	sendEvent(t, alice, map[string]string{"type": "identify", "name": "Alice"})
	readEvent(t, alice)
	sendEvent(t, alice, map[string]string{"type": "join", "roomId": "general"})
	readEvent(t, alice)
	readEvent(t, alice)

	bob := dial(t, srv)
	readEvent(t, bob)
	readEvent(t, bob)
	sendEvent(t, bob, map[string]string{"type": "identify", "name": "Bob"})
	readEvent(t, bob)
	sendEvent(t, bob, map[string]string{"type": "join", "roomId": "general"})
	readEvent(t, alice) // room_state 2
	readEvent(t, alice) // Bob joined

	require.NoError(t, bob.Close())

	state := readEvent(t, alice)
	assert.Equal(t, "room_state", state["type"])
	assert.Equal(t, float64(1), state["memberCount"])
	assert.Equal(t, "Bob left", readEvent(t, alice)["message"])

	assert.Eventually(t, func() bool {
		return orch.MemberCount("general") == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRoomsAPI(t *testing.T) {
	srv, _ := startServer(t)

	ws := dial(t, srv)
	readEvent(t, ws)
	readEvent(t, ws)
	sendEvent(t, ws, map[string]string{"type": "identify", "name": "Alice"})
	readEvent(t, ws)
	sendEvent(t, ws, map[string]string{"type": "join", "roomId": "general"})
	readEvent(t, ws)
	readEvent(t, ws)

	resp, err := http.Get(srv.URL + "/api/rooms/general")
	require.NoError(t, err)
	defer resp.Body.Close()
	var info struct {
		Name        string `json:"name"`
		MemberCount int    `json:"memberCount"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "general", info.Name)
	assert.Equal(t, 1, info.MemberCount)

	resp2, err := http.Get(srv.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var list struct {
		Rooms []struct {
			Name        string `json:"name"`
			MemberCount int    `json:"memberCount"`
		} `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, "general", list.Rooms[0].Name)
}
