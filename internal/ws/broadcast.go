package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tgate/dataviewer/internal/notify"
)

const writeWait = 10 * time.Second

type client struct {
	id    string
	table string
	conn  *websocket.Conn
	send  chan []byte

	// closeCode is sent in the close frame once send is closed.
	closeCode int
}

func newClient(conn *websocket.Conn, table string, buffer int) *client {
	c := &client{
		id:        uuid.NewString(),
		table:     table,
		conn:      conn,
		send:      make(chan []byte, buffer),
		closeCode: websocket.CloseGoingAway,
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			glog.V(1).Infof("ws: client %s write: %v", c.id, err)
			return
		}
	}
	frame := websocket.FormatCloseMessage(c.closeCode, "")
	c.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
}

// Hub fans notifications out to every connected push client. Clients of all
// tables receive every notification; viewers decide relevance themselves.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	buffer  int
	metrics *Metrics
}

// NewHub creates a hub with per-client send buffers of the given size.
// metrics may be nil.
func NewHub(buffer int, metrics *Metrics) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		clients: make(map[*client]bool),
		buffer:  buffer,
		metrics: metrics,
	}
}

// Add registers conn as a client watching table.
func (h *Hub) Add(conn *websocket.Conn, table string) *client {
	c := newClient(conn, table, h.buffer)

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.clients.WithLabelValues(table).Inc()
	}
	return c
}

// Remove unregisters c and closes its connection.
func (h *Hub) Remove(c *client) {
	h.removeWithCode(c, websocket.CloseGoingAway)
}

func (h *Hub) removeWithCode(c *client, code int) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		c.closeCode = code
		close(c.send)
	}
	h.mu.Unlock()

	if ok && h.metrics != nil {
		h.metrics.clients.WithLabelValues(c.table).Dec()
	}
}

// Broadcast sends n to every client. Clients that cannot keep up are
// disconnected.
func (h *Hub) Broadcast(n notify.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		glog.Errorf("ws: marshal notification: %v", err)
		return
	}
	if h.metrics != nil {
		h.metrics.notifications.WithLabelValues(n.Channel).Inc()
	}

	// Sends happen under the read lock so removeWithCode cannot close a
	// send channel mid-broadcast.
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
		glog.Warningf("ws: client %s (%s) too slow, disconnecting", c.id, c.table)
		if h.metrics != nil {
			h.metrics.slowClients.Inc()
		}
		h.removeWithCode(c, websocket.ClosePolicyViolation)
	}
}

// Run broadcasts everything received on src until ctx is done or src is
// closed, then disconnects all clients.
func (h *Hub) Run(ctx context.Context, src <-chan notify.Notification) {
	defer h.CloseAll()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-src:
			if !ok {
				return
			}
			h.Broadcast(n)
		}
	}
}

// CloseAll disconnects every client with a going-away close frame.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.Remove(c)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
