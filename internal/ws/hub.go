package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pawlog/internal/domain"
	"pawlog/internal/logging"
	"pawlog/internal/observability"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// EventStats is the event name of summary messages.
const EventStats = "stats"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// SnapshotFunc returns the current summary for newly connected clients.
type SnapshotFunc func(ctx context.Context) (*domain.Summary, error)

// Hub manages WebSocket clients and fans out summaries to them.
type Hub struct {
	snapshot SnapshotFunc
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub. snapshot may be nil, in which case clients wait for the
// next broadcast.
func New(snapshot SnapshotFunc, logger *slog.Logger) *Hub {
	return &Hub{
		snapshot: snapshot,
		logger:   logging.Component(logger, "ws"),
		clients:  make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes all connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the connection and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	if h.snapshot != nil {
		if summary, err := h.snapshot(r.Context()); err != nil {
			h.logger.Warn("initial summary failed", "error", err)
		} else if data, err := encode(summary); err == nil {
			h.mu.RLock()
			if _, ok := h.clients[c]; ok {
				select {
				case c.send <- data:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}

	go c.writePump()
	c.readPump()
}

// Broadcast sends summary to every connected client.
func (h *Hub) Broadcast(summary *domain.Summary) {
	data, err := encode(summary)
	if err != nil {
		h.logger.Error("encode summary", "error", err)
		return
	}

	// Sends happen under the read lock: unregister and closeAll close
	// send channels under the write lock, and the sends never block.
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", "remote", c.remoteAddr())
		h.unregister(c)
	}
	observability.RecordWSBroadcast()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(summary *domain.Summary) ([]byte, error) {
	return json.Marshal(Message{Event: EventStats, Data: summary.Flatten()})
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.SetWSClients(n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	observability.SetWSClients(n)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	observability.SetWSClients(0)
}

func (c *client) remoteAddr() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// writePump forwards queued messages and sends pings. One goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles pong and close frames. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
