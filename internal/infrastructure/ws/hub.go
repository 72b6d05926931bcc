// Package ws pushes live inbox snapshots and toasts to connected browsers.
package ws

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/edutok-api/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

const (
	TypeInbox = "inbox"
	TypeToast = "toast"
)

// Message is one frame sent to a client.
type Message struct {
	Type  string        `json:"type"`
	Inbox any           `json:"inbox,omitempty"`
	Toast *domain.Toast `json:"toast,omitempty"`
}

// NewUpgrader accepts connections from the given origins; "*" allows any.
func NewUpgrader(origins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

// Hub tracks the open connections of each user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: map[string]map[*Client]struct{}{}}
}

// Attach registers conn for userID and starts its writer.
func (h *Hub) Attach(userID string, conn *websocket.Conn) *Client {
	c := &Client{
		hub:    h,
		userID: userID,
		conn:   conn,
		send:   make(chan Message, sendBuffer),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	return c
}

// Toast shows t on every open connection of userID.
func (h *Hub) Toast(userID string, t domain.Toast) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		c.Send(Message{Type: TypeToast, Toast: &t})
	}
}

// Connected is the number of open connections for userID.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[c.userID], c)
	if len(h.clients[c.userID]) == 0 {
		delete(h.clients, c.userID)
	}
}

// Client is one websocket connection. All writes go through its writer
// goroutine.
type Client struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn
	send   chan Message
	done   chan struct{}
	once   sync.Once
}

// Send queues m without blocking. It reports false when the client is closed
// or too far behind, in which case the frame is dropped.
func (c *Client) Send(m Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- m:
		return true
	case <-c.done:
		return false
	default:
		slog.Warn("websocket client lagging, dropping frame", "user_id", c.userID, "type", m.Type)
		return false
	}
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.hub.detach(c)
		_ = c.conn.Close()
	})
}

// ReadUntilClosed consumes incoming frames until the peer goes away, then
// closes the client.
func (c *Client) ReadUntilClosed() {
	defer c.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read failed", "user_id", c.userID, "err", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case m := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(m); err != nil {
				slog.Debug("websocket write failed", "user_id", c.userID, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
