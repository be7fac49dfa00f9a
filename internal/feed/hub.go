package feed

import (
	"context"       // Hub lifetime
	"encoding/json" // Event encoding
	"net/http"      // Upgrade request
	"sync"          // Client map guard
	"time"          // Event timestamps and pings

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/gorilla/websocket" // WebSocket connections
	"github.com/sirupsen/logrus"   // Logging
)

// Event is one message pushed to feed clients
type Event struct {
	Type      string `json:"type"`      // e.g. "new_donation"
	Data      any    `json:"data"`      // Event payload
	Timestamp int64  `json:"timestamp"` // Unix seconds
}

// Hub fans events out to every connected websocket client
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{} // Closed when Run returns
	mu         sync.Mutex
}

// NewHub creates a hub; call Run to start it
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // Feed is public
		},
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run serves register/unregister/broadcast until ctx is done
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.drop(c)
		case msg := <-h.broadcast:
			h.writeAll(websocket.TextMessage, msg)
		case <-ping.C:
			h.writeAll(websocket.PingMessage, nil)
		}
	}
}

func (h *Hub) writeAll(kind int, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(time.Second))
		if err := c.WriteMessage(kind, msg); err != nil {
			logrus.WithField("error", err.Error()).Warn("Feed client dropped")
			c.Close()
			delete(h.clients, c)
		}
	}
}

func (h *Hub) drop(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		c.Close()
		delete(h.clients, c)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues an event for every client. It never blocks; events are
// dropped when the queue is full.
func (h *Hub) Publish(eventType string, data any) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: time.Now().Unix()})
	if err != nil {
		logrus.WithField("error", err.Error()).Error("Failed to encode feed event")
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		logrus.WithField("type", eventType).Warn("Feed queue full, event dropped")
	}
}

// ServeWS upgrades the request and keeps the connection registered until the client leaves
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithField("error", err.Error()).Warn("Feed upgrade failed")
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	// Clients only listen; reads detect disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("error", err.Error()).Warn("Feed read error")
			}
			break
		}
	}
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}
