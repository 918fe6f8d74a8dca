package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// EventNotification is the event name pushed for persisted notifications.
const EventNotification = "notification"

// Event is the frame written to every subscribed connection.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type client struct {
	hub    *Hub
	userId string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub fans events out to each user's open WebSocket connections.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
}

func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{clients: make(map[string]map[*client]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowedOrigins, "*") {
				return true
			}
			return slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// ServeWS upgrades the request and subscribes the connection to the user
// named by the "user" query parameter or the X-User-ID header.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userId := r.URL.Query().Get("user")
	if userId == "" {
		userId = r.Header.Get("X-User-ID")
	}
	if userId == "" {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("WebSocket upgrade failed", zap.String("user_id", userId), zap.Error(err))
		return
	}

	c := &client{hub: h, userId: userId, conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userId]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userId] = set
	}
	set[c] = struct{}{}
	zap.L().Debug("WebSocket client registered", zap.String("user_id", c.userId), zap.Int("connections", len(set)))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userId]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userId)
	}
}

// Publish sends an event to every connection of userId and returns how many
// connections accepted it. Slow connections are dropped rather than blocking.
func (h *Hub) Publish(userId, event string, data any) (int, error) {
	frame, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s event: %w", event, err)
	}

	h.mu.RLock()
	var slow []*client
	delivered := 0
	for c := range h.clients[userId] {
		select {
		case c.send <- frame:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		zap.L().Warn("Dropping slow WebSocket client", zap.String("user_id", userId))
		h.unregister(c)
	}
	return delivered, nil
}

// Connections reports the number of open connections for userId.
func (h *Hub) Connections(userId string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userId])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.unregister(c)
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Clients only listen; anything they send is discarded.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("WebSocket read error", zap.String("user_id", c.userId), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
