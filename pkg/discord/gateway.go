package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Gateway intents needed to observe forum-thread messages with content.
const (
	intentGuilds         = 1 << 0
	intentGuildMessages  = 1 << 9
	intentMessageContent = 1 << 15
)

const defaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Gateway opcodes.
const (
	opDispatch     = 0
	opHeartbeat    = 1
	opIdentify     = 2
	opHello        = 10
	opHeartbeatACK = 11
)

type GatewayClient struct {
	token       string
	gatewayURL  string
	botUser     User
	conn        *websocket.Conn
	httpClient  HTTPDoer
	handlers    []MessageHandler
	mu          sync.Mutex
	writeMu     sync.Mutex
	done        chan struct{}
	debugLog    func(format string, args ...interface{})
	lastSeq     int64
	heartbeatMs int64
}

type MessageHandler func(message *Message)

type gatewayPayload struct {
	Op   int             `json:"op"`
	Type string          `json:"t,omitempty"`
	Seq  *int64          `json:"s,omitempty"`
	Data json.RawMessage `json:"d,omitempty"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

func NewGatewayClient(token string) *GatewayClient {
	return &GatewayClient{
		token:      token,
		gatewayURL: defaultGatewayURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		done:       make(chan struct{}),
		debugLog:   func(format string, args ...interface{}) {},
	}
}

func (g *GatewayClient) SetDebugLog(fn func(format string, args ...interface{})) {
	g.debugLog = fn
}

func (g *GatewayClient) OnMessage(handler MessageHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers = append(g.handlers, handler)
}

func (g *GatewayClient) Connect(ctx context.Context) error {
	rest := NewClientWithHTTP(g.token, g.httpClient)
	me, err := rest.Me(ctx)
	if err != nil {
		return fmt.Errorf("getting bot user info: %w", err)
	}
	g.botUser = *me
	g.debugLog("Bot user ID: %s, username: %s", me.ID, me.Username)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, g.gatewayURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("gateway dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("gateway dial: %w", err)
	}
	g.conn = conn

	if err := g.awaitHello(); err != nil {
		g.conn.Close()
		return fmt.Errorf("gateway hello: %w", err)
	}

	if err := g.identify(); err != nil {
		g.conn.Close()
		return fmt.Errorf("gateway identify: %w", err)
	}

	g.debugLog("Gateway connected and identified")
	return nil
}

func (g *GatewayClient) awaitHello() error {
	var payload gatewayPayload
	if err := g.conn.ReadJSON(&payload); err != nil {
		return fmt.Errorf("reading hello: %w", err)
	}
	if payload.Op != opHello {
		return fmt.Errorf("expected hello opcode, got %d", payload.Op)
	}

	var hello helloData
	if err := json.Unmarshal(payload.Data, &hello); err != nil {
		return fmt.Errorf("decoding hello: %w", err)
	}
	atomic.StoreInt64(&g.heartbeatMs, hello.HeartbeatInterval)
	return nil
}

func (g *GatewayClient) identify() error {
	identifyMsg := map[string]interface{}{
		"op": opIdentify,
		"d": map[string]interface{}{
			"token":   g.token,
			"intents": intentGuilds | intentGuildMessages | intentMessageContent,
			"properties": map[string]string{
				"os":      runtime.GOOS,
				"browser": "thread-tracker",
				"device":  "thread-tracker",
			},
		},
	}
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	return g.conn.WriteJSON(identifyMsg)
}

func (g *GatewayClient) Listen(ctx context.Context) error {
	go g.heartbeatLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.done:
			return nil
		default:
			g.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
			_, raw, err := g.conn.ReadMessage()
			if err != nil {
				// A clean close from the remote side still needs a
				// reconnect; Discord recycles connections with 1000/1001.
				// Only a local Close ends the listen loop for good.
				select {
				case <-g.done:
					return nil
				default:
				}
				return fmt.Errorf("read message: %w", err)
			}

			var payload gatewayPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				g.debugLog("Failed to unmarshal payload: %v", err)
				continue
			}

			if payload.Seq != nil {
				atomic.StoreInt64(&g.lastSeq, *payload.Seq)
			}

			if payload.Op != opDispatch || payload.Type != "MESSAGE_CREATE" {
				continue
			}

			var message Message
			if err := json.Unmarshal(payload.Data, &message); err != nil {
				g.debugLog("Failed to unmarshal message: %v", err)
				continue
			}

			g.debugLog("Received message %s in channel %s", message.ID, message.ChannelID)

			g.mu.Lock()
			handlers := make([]MessageHandler, len(g.handlers))
			copy(handlers, g.handlers)
			g.mu.Unlock()

			for _, handler := range handlers {
				handler(&message)
			}
		}
	}
}

func (g *GatewayClient) heartbeatLoop(ctx context.Context) {
	interval := time.Duration(atomic.LoadInt64(&g.heartbeatMs)) * time.Millisecond
	if interval == 0 {
		interval = 41250 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.done:
			return
		case <-ticker.C:
			seq := atomic.LoadInt64(&g.lastSeq)
			heartbeat := map[string]interface{}{
				"op": opHeartbeat,
				"d":  seq,
			}
			g.debugLog("Sending heartbeat (seq=%d)", seq)
			g.writeMu.Lock()
			g.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := g.conn.WriteJSON(heartbeat)
			g.writeMu.Unlock()
			if err != nil {
				g.debugLog("Heartbeat failed: %v", err)
				return
			}
		}
	}
}

func (g *GatewayClient) Close() error {
	close(g.done)
	if g.conn != nil {
		return g.conn.Close()
	}
	return nil
}

func (g *GatewayClient) BotUser() User {
	return g.botUser
}
