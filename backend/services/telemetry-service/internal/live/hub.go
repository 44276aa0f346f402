// Package live streams freshly stored measurements to websocket clients.
package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"greenhouse/backend/services/telemetry-service/internal/models"
)

const defaultPingInterval = 30 * time.Second

// Hub tracks live feed clients and fans measurements out to them.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*Client]struct{}
	pingInterval time.Duration
	logger       *zap.Logger
	onChange     func(n int)
}

// NewHub builds a hub. onChange, when set, receives the client count after
// every register and unregister.
func NewHub(pingInterval time.Duration, logger *zap.Logger, onChange func(int)) *Hub {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	return &Hub{
		clients:      make(map[*Client]struct{}),
		pingInterval: pingInterval,
		logger:       logger,
		onChange:     onChange,
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.changed(n)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.changed(n)
}

func (h *Hub) changed(n int) {
	if h.onChange != nil {
		h.onChange(n)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends m to every client subscribed to its device.
func (h *Hub) Publish(m models.Measurement) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(m)
	if err != nil {
		h.logger.Warn("failed to encode live measurement", zap.Error(err))
		return
	}
	for c := range h.clients {
		if c.wants(m.DeviceID) {
			c.Send(msg)
		}
	}
}

// Run pings clients until ctx is done, then disconnects them all.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.mu.RLock()
			for c := range h.clients {
				if err := c.Ping(); err != nil {
					h.logger.Debug("live ping failed", zap.Error(err))
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.Close()
	}
}
