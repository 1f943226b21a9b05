package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
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

	// Buffered outbound messages per session.
	sendBuffer = 256
)

// Server to client event names the hub produces on its own
const (
	EventWelcome = "welcome"
	EventError   = "error"
)

var ErrHubClosed = errors.New("hub is closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Game clients connect from anywhere
		return true
	},
}

// Frame is one client to server message
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Envelope is one server to client message
type Envelope struct {
	Session string      `json:"session"`
	Event   string      `json:"event"`
	Data    interface{} `json:"data,omitempty"`
}

// Handler receives the lifecycle and frames of every session. The hub never
// calls it while holding its own lock, so a handler may publish freely.
type Handler interface {
	Connect(session string) error
	HandleFrame(session string, frame Frame) error
	Disconnect(session, reason string)
}

// Client represents one connected session
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	limiter   *rate.Limiter
	closeOnce sync.Once
}

type departure struct {
	client *Client
	reason string
}

// Hub maintains the connected sessions and delivers messages to them
type Hub struct {
	// Connected clients by session handle
	sessions map[string]*Client
	mu       sync.RWMutex

	handler Handler
	limit   rate.Limit
	burst   int
	logger  *log.Logger

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan departure

	done chan struct{}
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithRateLimit caps the frames each session may send
func WithRateLimit(perSecond float64, burst int) HubOption {
	return func(h *Hub) {
		h.limit = rate.Limit(perSecond)
		h.burst = burst
	}
}

// WithLogger sets the hub logger
func WithLogger(l *log.Logger) HubOption {
	return func(h *Hub) { h.logger = l }
}

// NewHub creates a new WebSocket hub reporting to handler
func NewHub(handler Handler, opts ...HubOption) *Hub {
	h := &Hub{
		sessions:   make(map[string]*Client),
		handler:    handler,
		limit:      rate.Limit(5),
		burst:      10,
		register:   make(chan *Client),
		unregister: make(chan departure),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = log.Default()
	}
	return h
}

// Run starts the hub's event loop. It returns when ctx is done, after
// disconnecting every session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case d := <-h.unregister:
			h.unregisterClient(d.client, d.reason)
		}
	}
}

// ServeWS upgrades the request and assigns the connection a new session
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[WS] upgrade failed: %v", err)
		return
	}

	client := h.newClient(uuid.NewString(), conn)

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Publish sends an event to one session. It never blocks: a session whose
// buffer is full is disconnected.
func (h *Hub) Publish(session, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Session: session, Event: event, Data: payload})
	if err != nil {
		h.logger.Printf("[WS] failed to marshal %s for %s: %v", event, session, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.sessions[session]
	if !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Printf("[WS] session %s is not keeping up, dropping it", session)
		client.kick()
	}
}

// Sessions returns the number of connected sessions
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Connected reports whether session is connected
func (h *Hub) Connected(session string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[session]
	return ok
}

func (h *Hub) newClient(session string, conn *websocket.Conn) *Client {
	return &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		sessionID: session,
		limiter:   rate.NewLimiter(h.limit, h.burst),
	}
}

// registerClient adds a client and reports it to the handler
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.sessions[client.sessionID] = client
	total := len(h.sessions)
	h.mu.Unlock()

	h.logger.Printf("[WS] session %s connected (total sessions: %d)", client.sessionID, total)
	h.Publish(client.sessionID, EventWelcome, map[string]string{"session": client.sessionID})

	if err := h.handler.Connect(client.sessionID); err != nil {
		h.logger.Printf("[WS] handler rejected session %s: %v", client.sessionID, err)
		h.Publish(client.sessionID, EventError, map[string]string{"error": err.Error()})
		client.kick()
	}
}

// unregisterClient removes a client and reports it to the handler
func (h *Hub) unregisterClient(client *Client, reason string) {
	h.mu.Lock()
	current, ok := h.sessions[client.sessionID]
	if !ok || current != client {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, client.sessionID)
	close(client.send)
	remaining := len(h.sessions)
	h.mu.Unlock()

	h.logger.Printf("[WS] session %s disconnected: %s (remaining sessions: %d)", client.sessionID, reason, remaining)
	h.handler.Disconnect(client.sessionID, reason)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.sessions))
	for id, client := range h.sessions {
		clients = append(clients, client)
		delete(h.sessions, id)
		close(client.send)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.handler.Disconnect(client.sessionID, "server shutting down")
	}
	h.logger.Printf("[WS] hub stopped, %d sessions disconnected", len(clients))
}

// kick closes the connection so the read pump unregisters the client
func (c *Client) kick() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// handle processes one raw client frame
func (c *Client) handle(raw []byte) {
	if !c.limiter.Allow() {
		c.hub.Publish(c.sessionID, EventError, map[string]string{"error": "rate limit exceeded"})
		return
	}

	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.hub.Publish(c.sessionID, EventError, map[string]string{"error": "invalid frame: " + err.Error()})
		return
	}

	if err := c.hub.handler.HandleFrame(c.sessionID, frame); err != nil {
		c.hub.Publish(c.sessionID, EventError, map[string]string{"error": err.Error()})
	}
}

// readPump pumps frames from the WebSocket connection to the handler
func (c *Client) readPump() {
	reason := "client left"
	defer func() {
		select {
		case c.hub.unregister <- departure{client: c, reason: reason}:
		case <-c.hub.done:
		}
		c.kick()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Printf("[WS] read error for %s: %v", c.sessionID, err)
				reason = err.Error()
			}
			return
		}
		c.handle(raw)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.kick()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
