package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/classpoll/backend/internal/session"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub tracks every connected client of the single classroom session and
// fans out events to them. It is the only component touching transport;
// the Coordinator publishes through it via the session.Broadcaster
// interface. Delivery is fire-and-forget: a client whose send buffer is
// full has the message dropped rather than blocking the session.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

var _ session.Broadcaster = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("identity", c.id), zap.Int("connections", total))
}

// Unregister removes a client and closes its send channel. Safe to call
// more than once for the same client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	c.closeSend()
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("identity", c.id))
}

// Broadcast delivers an event to every connected client.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(msg)
	}
}

// SendTo delivers an event to a single identity. Unknown identities are
// ignored.
func (h *Hub) SendTo(identity, event string, payload interface{}) {
	msg, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, exists := h.clients[identity]; exists {
		c.enqueue(msg)
	}
}

// Disconnect removes the identity from the hub and closes its send
// channel. Messages already queued (such as a terminal "kicked"
// notification) are flushed by the client's write pump before the
// connection closes.
func (h *Hub) Disconnect(identity string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, exists := h.clients[identity]
	if !exists {
		return
	}
	delete(h.clients, identity)
	c.closeSend()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) encode(event string, payload interface{}) (WSMessage, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal event payload", zap.String("event", event), zap.Error(err))
		return WSMessage{}, false
	}
	return WSMessage{Event: event, Data: data}, true
}
