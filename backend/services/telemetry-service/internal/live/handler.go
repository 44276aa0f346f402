package live

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades GET /api/measurements/live requests. The optional
// device_id query parameter narrows the feed to one device.
type Handler struct {
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the websocket endpoint for hub.
func NewHandler(hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimSpace(r.URL.Query().Get("device_id"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(deviceID, conn, h.logger)
	h.hub.add(client)
	h.logger.Info("live client connected", zap.String("device_id", deviceID), zap.String("remote", r.RemoteAddr))

	go client.writePump()
	go func() {
		client.readPump()
		h.hub.remove(client)
		h.logger.Info("live client disconnected", zap.String("device_id", deviceID))
	}()
}
