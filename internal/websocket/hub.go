package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Hub maps userID to the set of live sessions for that user. A user may hold
// several sessions at once (tabs, devices); pushes go to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
	log     *logrus.Entry

	// Session lifecycle callbacks; wired to the presence tracker at startup.
	OnConnect    func(userID uint)
	OnDisconnect func(userID uint)
	// Incoming client frames (typing etc.) are handed off whole.
	OnClientMessage func(userID uint, data []byte)
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[uint]map[*Client]struct{}),
		log:     logrus.WithField("component", "websocket"),
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	sessions, ok := h.clients[client.userID]
	if !ok {
		sessions = make(map[*Client]struct{})
		h.clients[client.userID] = sessions
	}
	sessions[client] = struct{}{}
	h.mu.Unlock()

	h.log.WithField("user_id", client.userID).Debug("Client connected")
	if h.OnConnect != nil {
		h.OnConnect(client.userID)
	}
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	removed := false
	if sessions, ok := h.clients[client.userID]; ok {
		if _, exists := sessions[client]; exists {
			delete(sessions, client)
			close(client.send)
			removed = true
		}
		if len(sessions) == 0 {
			delete(h.clients, client.userID)
		}
	}
	h.mu.Unlock()

	if !removed {
		return
	}
	h.log.WithField("user_id", client.userID).Debug("Client disconnected")
	if h.OnDisconnect != nil {
		h.OnDisconnect(client.userID)
	}
}

// PushToUser delivers the payload to every live session of userID. Sessions
// with a full send buffer are dropped; delivery is fire-and-forget.
func (h *Hub) PushToUser(userID uint, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal push payload")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			h.log.WithField("user_id", userID).Warn("Dropping slow websocket session")
		}
	}
}

func HandleWebSocket(hub *Hub, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		conn.Close()
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID.(uint),
	}

	hub.register(client)

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("user_id", c.userID).Warn("WebSocket read error")
			}
			break
		}

		if c.hub.OnClientMessage != nil {
			c.hub.OnClientMessage(c.userID, message)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.log.WithError(err).WithField("user_id", c.userID).Warn("WebSocket write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
