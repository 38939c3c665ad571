package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/karthikraju391/go-nats-chat-relay/config"
	"github.com/karthikraju391/go-nats-chat-relay/models"
)

type Client struct {
	ID       string
	ClientID *string

	conn      *websocket.Conn
	send      chan []byte   // Frames waiting for the writer
	done      chan struct{} // Closed once the client is gone
	closeOnce sync.Once
	log       *zap.Logger
}

func NewClient(conn *websocket.Conn, id string, clientID *string, log *zap.Logger) *Client {
	return &Client{
		ID:       id,
		ClientID: clientID,
		conn:     conn,
		send:     make(chan []byte, config.SendQueueSize),
		done:     make(chan struct{}),
		log:      log.With(zap.String("connection_id", id)),
	}
}

// Close marks the client gone and stops its writer. Safe to call repeatedly.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) enqueue(ctx context.Context, payload []byte) error {
	if c.closed() {
		return fmt.Errorf("connection %s closed: %w", c.ID, models.ErrStaleTarget)
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return fmt.Errorf("connection %s closed: %w", c.ID, models.ErrStaleTarget)
	case <-ctx.Done():
		return fmt.Errorf("push to %s: %w", c.ID, ctx.Err())
	}
}

// tryEnqueue queues a reply without waiting; the frame is dropped when the
// queue is full.
func (c *Client) tryEnqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		c.log.Warn("send queue full, dropping reply")
	}
}

// readPump hands every inbound frame to onFrame until the socket fails or closes.
func (c *Client) readPump(onFrame func(raw []byte)) {
	defer c.log.Debug("reader closed")

	c.conn.SetReadLimit(config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", zap.Error(err))
			} else {
				c.log.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		onFrame(raw)
	}
}

// writePump is the only writer on the socket once the connection is accepted.
func (c *Client) writePump() {
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.log.Debug("writer closed")
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Warn("websocket write error", zap.Error(err))
				c.Close()
				_ = c.conn.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Warn("websocket ping error", zap.Error(err))
				c.Close()
				_ = c.conn.Close()
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			// Unblocks the reader when the close came from this side.
			_ = c.conn.Close()
			return
		}
	}
}
