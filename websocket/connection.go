// Package websocket provides the WebSocket relay that shareform peers meet
// on, and the client Transport a peer session talks through.
// file: websocket/connection.go
package websocket

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"shareform/logger"
)

// WSConn is the subset of *websocket.Conn the pumps use.
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	ReadMessage() (int, []byte, error)
	Close() error
	RemoteAddr() net.Addr
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
}

// MaxMessageSize is the largest frame the relay and the client accept. A
// larger read closes the connection with 1009, so senders must stay below it.
const MaxMessageSize = 64 * 1024

// Configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Connection is one peer attached to the relay hub.
type Connection struct {
	id   ulid.ULID
	conn WSConn
	send chan []byte
	hub  *Hub
}

func newConnection(hub *Hub, conn WSConn) *Connection {
	return &Connection{
		id:   ulid.Make(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		hub:  hub,
	}
}

// ID identifies the connection as a frame origin.
func (c *Connection) ID() ulid.ULID { return c.id }

// readPump forwards every text frame from the peer to the hub.
func (c *Connection) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn.Printf("[readPump] Read error from %s (%v): %v", c.id, c.conn.RemoteAddr(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			logger.Debug.Printf("[readPump] Ignoring non-text messageType=%d from %s", messageType, c.id)
			continue
		}
		logger.Debug.Printf("[readPump] %s -> %s", c.id, string(message))
		if !c.hub.submit(frame{origin: c, data: message}) {
			return
		}
	}
}

// writePump drains the send channel to the peer and pings it periodically.
// It exits when the hub closes the channel.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				logger.Debug.Printf("[writePump] Send channel closed for %s", c.id)
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn.Printf("[writePump] Error writing to %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn.Printf("[writePump] Ping error for %s: %v", c.id, err)
				return
			}
		}
	}
}
