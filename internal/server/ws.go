package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// clientBuffer is how many events may queue for a slow viewer before
	// further events to it are dropped.
	clientBuffer = 32
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is one message on /api/events.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts session events to WebSocket viewers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Publish encodes an event and queues it for every viewer. Viewers whose
// queue is full miss the event.
func (h *Hub) Publish(eventType string, data any) {
	msg, err := json.Marshal(Event{Type: eventType, At: time.Now().UTC(), Data: data})
	if err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Debug().Str("type", eventType).Msg("viewer queue full, event dropped")
		}
	}
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	if !h.add(c) {
		conn.Close()
		return
	}
	log.Debug().Str("remote", r.RemoteAddr).Msg("viewer connected")

	go h.writePump(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	log.Debug().Str("remote", r.RemoteAddr).Msg("viewer disconnected")
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// remove unregisters c and closes its queue, which ends its writer.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug().Err(err).Msg("websocket write failed")
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// Close disconnects every viewer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
