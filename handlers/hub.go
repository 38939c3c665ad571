package handlers

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/metrics"
	"github.com/karthikraju391/go-nats-chat-relay/models"
)

// Hub tracks the sockets open on this instance and pushes payloads to them.
// A connection that is not open here is reported as a stale target.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*Client), log: log}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.clients[c.ID]; ok && prev != c {
		prev.Close()
	}
	h.clients[c.ID] = c
	metrics.ConnectionsActive.Set(float64(len(h.clients)))
}

// Unregister removes c if it is still the client registered under its id.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.ID]; ok && cur == c {
		delete(h.clients, c.ID)
	}
	metrics.ConnectionsActive.Set(float64(len(h.clients)))
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Push queues payload for the connection's writer. It blocks until the
// queue accepts it, the connection closes or ctx ends. A nil error means
// queued, not written: if the writer later fails the socket is closed and the
// frames still queued are lost with it, the same outcome as a stale target.
func (h *Hub) Push(ctx context.Context, connectionID string, payload []byte) error {
	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("connection %s: %w", connectionID, models.ErrStaleTarget)
	}
	return c.enqueue(ctx, payload)
}

// CloseAll closes every open client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	h.log.Info("closed all websocket clients", zap.Int("count", len(clients)))
}
