package discord

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type stubDoer struct{}

func (stubDoer) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(strings.NewReader(`{"id": "bot1", "username": "tracker", "bot": true}`)),
	}, nil
}

// newTestGateway serves hello, consumes the identify frame and hands the
// connection to the test's server-side script.
func newTestGateway(t *testing.T, serverScript func(conn *websocket.Conn)) *GatewayClient {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteJSON(map[string]any{
			"op": opHello,
			"d":  map[string]any{"heartbeat_interval": 45000},
		})
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		serverScript(conn)
	}))
	t.Cleanup(srv.Close)

	g := NewGatewayClient("test-token")
	g.httpClient = stubDoer{}
	g.gatewayURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return g
}

func TestGatewayListen_DispatchesMessageCreate(t *testing.T) {
	g := newTestGateway(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]any{
			"op": opDispatch,
			"t":  "MESSAGE_CREATE",
			"s":  1,
			"d": map[string]any{
				"id":         "m1",
				"channel_id": "c1",
				"content":    "!track",
				"author":     map[string]any{"id": "owner", "username": "owner"},
			},
		})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	})

	received := make(chan *Message, 1)
	g.OnMessage(func(m *Message) { received <- m })

	require.NoError(t, g.Connect(context.Background()))
	require.Equal(t, "bot1", g.BotUser().ID)

	_ = g.Listen(context.Background())

	select {
	case m := <-received:
		require.Equal(t, "m1", m.ID)
		require.Equal(t, "!track", m.Content)
	default:
		t.Fatal("no message dispatched")
	}
}

func TestGatewayListen_RemoteCloseReturnsError(t *testing.T) {
	g := newTestGateway(t, func(conn *websocket.Conn) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "recycling"), time.Now().Add(time.Second))
		_ = conn.Close()
	})

	require.NoError(t, g.Connect(context.Background()))

	// The remote hanging up is a reconnect condition, not a shutdown.
	err := g.Listen(context.Background())
	require.Error(t, err)
}

func TestGatewayListen_LocalCloseReturnsNil(t *testing.T) {
	g := newTestGateway(t, func(conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
	})

	require.NoError(t, g.Connect(context.Background()))

	listenDone := make(chan error, 1)
	go func() { listenDone <- g.Listen(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, g.Close())

	select {
	case err := <-listenDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listen did not return after close")
	}
}
