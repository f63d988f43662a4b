package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/seojinhan/matjip-backend/pkg/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Watch clients only send
	// control frames, so this is small.
	maxMessageSize = 4 * 1024
)

// Client is one watch connection. Snapshots queued on Send are written
// to the peer; the connection closes when the peer goes away.
type Client struct {
	conn *websocket.Conn

	// Send carries JSON-encoded result-set snapshots.
	Send chan []byte

	// Done closes when the peer disconnects, so the owner can tear
	// down the watch subscription.
	Done chan struct{}
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		Send: make(chan []byte, 8),
		Done: make(chan struct{}),
	}
}

// ReadPump drains control messages from the peer and signals Done on
// disconnect. Watch clients send nothing meaningful; reading is only
// for close/pong handling.
func (c *Client) ReadPump() {
	defer func() {
		close(c.Done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error", err)
			}
			return
		}
	}
}

// WritePump writes queued snapshots and keeps the connection alive
// with pings. It exits when the peer disconnects; Send is never
// closed, so a producer racing with shutdown cannot panic.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("Failed to write snapshot", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.Done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// CloseWithError sends a close frame carrying the reason and drops the
// connection. Used when subscription setup is rejected after the
// upgrade already happened.
func (c *Client) CloseWithError(reason string) {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
	)
	c.conn.Close()
}
