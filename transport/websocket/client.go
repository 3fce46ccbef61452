package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/roomsync/game/session"
)

// Client is one websocket connection. It implements registry.Conn.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	session *session.Session

	mu     sync.Mutex
	closed bool
}

// Send queues data for the write pump without blocking. A client whose
// buffer is full is closed.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.closed = true
		close(c.send)
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame to the peer.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// readPump pumps messages from the WebSocket connection to the session handler
func (c *Client) readPump() {
	defer func() {
		c.hub.handler.Disconnect(c.session)
		c.Close()
		c.hub.remove(c)
		c.conn.Close()
		c.hub.wg.Done()
	}()

	idle := c.hub.opts.IdleTimeout
	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	if idle > 0 {
		c.conn.SetReadDeadline(time.Now().Add(idle))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(idle))
		})
	}

	for {
		// Text and binary frames are both accepted.
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.logger.Debug("websocket read error", "player_id", c.session.ID(), "error", err)
			}
			return
		}
		if idle > 0 {
			c.conn.SetReadDeadline(time.Now().Add(idle))
		}

		c.hub.handler.HandleMessage(c.session, data)
	}
}

// writePump pumps queued frames to the WebSocket connection, one frame per
// message
func (c *Client) writePump() {
	var tick <-chan time.Time
	if c.hub.opts.IdleTimeout > 0 {
		ticker := time.NewTicker(c.hub.opts.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer func() {
		c.conn.Close()
		c.hub.wg.Done()
	}()

	writeWait := c.hub.opts.WriteWait
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("websocket write failed", "player_id", c.session.ID(), "error", err)
				return
			}

		case <-tick:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
