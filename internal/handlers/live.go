package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"fitcoach-backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients connect from arbitrary origins
	},
}

// liveClient is one WebSocket subscriber, optionally filtered to a device
type liveClient struct {
	conn     *websocket.Conn
	deviceID string
	send     chan []byte
}

// Hub fans rep results out to WebSocket subscribers
type Hub struct {
	mu      sync.RWMutex
	clients map[*liveClient]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*liveClient]struct{})}
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a result to every matching subscriber. Slow subscribers
// whose buffer is full are disconnected.
func (h *Hub) Broadcast(result *models.RepResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("Live: failed to marshal rep result: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.deviceID != "" && c.deviceID != result.DeviceID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			log.Printf("Live: subscriber for %q too slow, disconnecting", c.deviceID)
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeWS upgrades GET /ws/reps?device_id=... and streams rep results
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Live: websocket upgrade error: %v", err)
		return
	}

	client := &liveClient{
		conn:     conn,
		deviceID: c.Query("device_id"),
		send:     make(chan []byte, clientSendSize),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	log.Printf("Live: subscriber connected (device=%q)", client.deviceID)

	go h.writeLoop(client)
	h.readLoop(client)
}

func (h *Hub) remove(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readLoop discards client messages and detects disconnects
func (h *Hub) readLoop(c *liveClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Live: websocket read error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *liveClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
