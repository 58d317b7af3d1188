package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Msg is a message sent to clients.
type Msg struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans state updates out to every connected WebSocket client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	logger  *zap.Logger
}

type client struct {
	ws   *websocket.Conn
	send chan []byte
	hub  *Hub
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		logger:  logger.Named("hub"),
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to every client. Slow clients miss it.
func (h *Hub) Broadcast(msgType string, data any) {
	b, err := json.Marshal(Msg{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Failed to encode message", zap.String("type", msgType), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			// slow client, drop
		}
	}
}

// Stream broadcasts the game state every interval while anyone is listening, until ctx is done.
// A non-positive interval disables streaming.
func (h *Hub) Stream(ctx context.Context, g Game, interval time.Duration) {
	if interval <= 0 {
		h.logger.Warn("State streaming disabled", zap.Duration("interval", interval))
		<-ctx.Done()
		h.closeAll()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			if h.Len() == 0 {
				continue
			}
			h.Broadcast("state", g.Snapshot())
		}
	}
}

// HandleWS is the HTTP handler for WebSocket connections.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		ws:   wsConn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.logger.Debug("Client connected", zap.String("remote", r.RemoteAddr))

	go c.writePump()
	go c.readPump()
}

// readPump only watches for the close; clients do not send commands over the socket.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.ws.Close()
	}()
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
