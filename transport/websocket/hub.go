package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wricardo/collab-board/board/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	DefaultSendBuffer      = 256
	DefaultMaxMessageBytes = 64 * 1024
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// Dispatcher consumes connection events. session.Handler implements it.
type Dispatcher interface {
	Connect(conn session.Conn)
	HandleMessage(connID string, raw []byte)
	Disconnect(connID string)
}

// Options tunes a Hub. Zero values select defaults.
type Options struct {
	SendBuffer      int
	MaxMessageBytes int64

	// CheckOrigin validates the upgrade request origin. Nil allows all
	// origins.
	CheckOrigin func(r *http.Request) bool

	Logger *slog.Logger
}

// Client is one websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	id     string
	closed bool
	mu     sync.Mutex
}

type inbound struct {
	client *Client
	data   []byte
}

// Hub owns every client and feeds their events to the dispatcher from a
// single goroutine, so commands are handled one at a time in arrival order.
type Hub struct {
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	opts       Options
	log        *slog.Logger

	// Registered clients
	clients map[*Client]bool

	// Inbound frames from clients
	inbound chan inbound

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	done  chan struct{}
	count atomic.Int64
}

// NewHub creates a hub delivering events to d.
func NewHub(d Dispatcher, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if opts.CheckOrigin == nil {
		opts.CheckOrigin = func(r *http.Request) bool { return true }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Hub{
		dispatcher: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		opts:       opts,
		log:        opts.Logger,
		clients:    make(map[*Client]bool),
		inbound:    make(chan inbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns when ctx is cancelled, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.inbound:
			if h.clients[msg.client] {
				h.dispatcher.HandleMessage(msg.client.id, msg.data)
			}

		case <-ctx.Done():
			for client := range h.clients {
				h.unregisterClient(client)
			}
			h.log.Info("hub.stopped")
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// ServeWS upgrades the request and starts the client's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws.upgrade_failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.opts.SendBuffer),
		id:   uuid.NewString(),
	}

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

// registerClient adds a client and announces it to the dispatcher
func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	h.count.Add(1)
	h.dispatcher.Connect(client)

	h.log.Debug("ws.registered", "conn", client.id, "clients", len(h.clients))
}

// unregisterClient removes a client once. The dispatcher is told before the
// send channel closes so no payload is queued on a closed client.
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	h.count.Add(-1)

	h.dispatcher.Disconnect(client.id)
	client.close()

	h.log.Debug("ws.unregistered", "conn", client.id, "clients", len(h.clients))
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Send queues payload without blocking. A full buffer drops the payload.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("ws.read_failed", "conn", c.id, "error", err)
			}
			return
		}

		select {
		case c.hub.inbound <- inbound{client: c, data: data}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection. Each
// payload is written as its own text frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
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
