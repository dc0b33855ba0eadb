package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/wricardo/mcp-training/battleship/game/engine"
	"github.com/wricardo/mcp-training/battleship/game/service"
	"github.com/wricardo/mcp-training/battleship/game/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// DefaultSendBuffer is the outbound queue length per connection.
	DefaultSendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one player's WebSocket connection
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan session.Event
	playerID string
	ctx      context.Context
	cancel   context.CancelFunc
	logger   hclog.Logger
}

// Hub tracks live connections and feeds their requests to the game service
type Hub struct {
	svc        service.GameService
	logger     hclog.Logger
	sendBuffer int

	mu      sync.Mutex
	clients map[string]*Client
}

// NewHub creates a new WebSocket hub
func NewHub(svc service.GameService, sendBuffer int, logger hclog.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Hub{
		svc:        svc,
		logger:     logger,
		sendBuffer: sendBuffer,
		clients:    make(map[string]*Client),
	}
}

// ServeWS upgrades the request and starts the connection's pumps. Each
// connection gets a fresh player id.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	playerID := uuid.NewString()
	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan session.Event, h.sendBuffer),
		playerID: playerID,
		ctx:      ctx,
		cancel:   cancel,
		logger:   h.logger.With("player", playerID),
	}

	h.register(client)
	go client.run()
}

// ClientCount returns the number of open connections
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close tears down every connection
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.cancel()
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.playerID] = c
	total := len(h.clients)
	h.mu.Unlock()

	c.logger.Debug("client connected", "total", total)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.playerID)
	total := len(h.clients)
	h.mu.Unlock()

	c.logger.Debug("client disconnected", "total", total)
}

// outbox is the handle the service uses to push events to this client.
// Overflowing it cancels the connection.
func (c *Client) outbox() session.Outbox {
	return session.Outbox{PlayerID: c.playerID, Events: c.send, Drop: c.cancel}
}

// reply queues a direct response behind any pushes already pending
func (c *Client) reply(ev session.Event) {
	if !c.outbox().Push(ev) {
		c.logger.Warn("send buffer full, dropping client", "event", ev.Type)
	}
}

// run starts both pumps and cleans up once either of them stops
func (c *Client) run() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer c.cancel()
		c.writePump()
	}()
	go func() {
		defer wg.Done()
		defer c.cancel()
		c.readPump()
	}()

	<-c.ctx.Done()
	c.conn.Close()
	wg.Wait()

	c.hub.unregister(c)
	c.hub.svc.OnDisconnect(context.Background(), c.playerID)
}

// readPump decodes requests from the connection and dispatches them
func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.replyError(fmt.Errorf("malformed message: %v: %w", err, engine.ErrBadRequest))
			continue
		}
		if err := c.handle(c.ctx, req); err != nil {
			c.replyError(err)
		}
	}
}

func (c *Client) replyError(err error) {
	c.logger.Debug("request failed", "error", err)
	c.reply(session.Event{Type: session.EventError, Payload: service.NewErrorPayload(err)})
}

// writePump writes queued events to the connection. A disconnect event is
// the last thing written before the socket is closed.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}
			if ev.Type == session.EventDisconnect {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "disconnect"))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
