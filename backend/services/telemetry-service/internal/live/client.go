package live

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer   = 16
	readLimit    = 4096
	pongWait     = 60 * time.Second
	writeTimeout = 10 * time.Second
)

// Client is one live feed websocket connection.
type Client struct {
	deviceID string
	ws       *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	logger   *zap.Logger
}

func newClient(deviceID string, ws *websocket.Conn, logger *zap.Logger) *Client {
	return &Client{
		deviceID: deviceID,
		ws:       ws,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// wants reports whether the client filters on deviceID or takes everything.
func (c *Client) wants(deviceID string) bool {
	return c.deviceID == "" || c.deviceID == deviceID
}

// Send enqueues msg, dropping it when the client is slow.
func (c *Client) Send(msg []byte) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.logger.Warn("dropping live message, buffer full", zap.String("device_id", c.deviceID))
	}
}

// Ping sends a websocket ping control frame.
func (c *Client) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// Close stops the pumps and closes the socket. Safe to call repeatedly.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
		_ = c.ws.Close()
	})
}

// readPump discards client frames; it exists to process pongs and notice
// the peer going away.
func (c *Client) readPump() {
	defer c.Close()
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.Close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("live write failed", zap.Error(err))
				return
			}
		}
	}
}
