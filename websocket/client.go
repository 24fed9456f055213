// file: websocket/client.go
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"shareform/logger"
)

// ErrTransportUnavailable is returned by Send when there is no live
// connection. The frame is dropped.
var ErrTransportUnavailable = errors.New("transport unavailable")

// ErrFrameTooLarge is returned by Send for frames over MaxMessageSize. The
// frame is dropped and the connection stays up.
var ErrFrameTooLarge = errors.New("frame too large")

// Client is a peer's single connection to the relay. It satisfies
// formsync.Transport. There is no reconnect: once closed, every Send is a
// logged no-op.
type Client struct {
	dialer  *websocket.Dialer
	header  http.Header
	bufSize int

	mu        sync.Mutex
	conn      WSConn
	send      chan []byte
	quit      chan struct{}
	onMessage func([]byte)
	onClose   func()
	closeOnce *sync.Once
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithHeader adds handshake headers, e.g. the session cookie.
func WithHeader(h http.Header) ClientOption {
	return func(c *Client) {
		c.header = h
	}
}

// WithSendBuffer sets how many outbound frames may queue before new ones are
// dropped.
func WithSendBuffer(n int) ClientOption {
	return func(c *Client) {
		c.bufSize = n
	}
}

// NewClient returns an unconnected client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		dialer:  websocket.DefaultDialer,
		bufSize: sendBufferSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnMessage sets the callback for every inbound text frame. It runs on the
// read goroutine.
func (c *Client) OnMessage(fn func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

// OnClose sets the callback run once when the connection ends.
func (c *Client) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = fn
}

// Connect dials address and starts the pumps.
func (c *Client) Connect(ctx context.Context, address string) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	c.mu.Unlock()

	logger.Info.Printf("[Client.Connect] dialing %s", address)
	ws, resp, err := c.dialer.DialContext(ctx, address, c.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", address, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", address, err)
	}
	c.attach(ws)
	return nil
}

// attach takes ownership of an established connection.
func (c *Client) attach(conn WSConn) {
	c.mu.Lock()
	c.conn = conn
	c.send = make(chan []byte, c.bufSize)
	c.quit = make(chan struct{})
	c.closeOnce = &sync.Once{}
	send, quit := c.send, c.quit
	c.mu.Unlock()

	go c.writePump(conn, send, quit)
	go c.readPump(conn)
}

// Connected reports whether frames can currently be sent.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send queues data for the write pump. It never blocks and never panics.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		logger.Warn.Printf("[Client.Send] no ws. NOT sending message (%s)", string(data))
		return ErrTransportUnavailable
	}
	if len(data) > MaxMessageSize {
		logger.Warn.Printf("[Client.Send] %d byte frame exceeds %d; NOT sending message", len(data), MaxMessageSize)
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}
	select {
	case c.send <- data:
		logger.Debug.Printf("[Client.Send] sending message (%s) to ws", string(data))
		return nil
	default:
		logger.Warn.Printf("[Client.Send] send buffer full; dropping (%s)", string(data))
		return fmt.Errorf("%w: send buffer full", ErrTransportUnavailable)
	}
}

// Close ends the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.shutdown(conn)
	return nil
}

// shutdown detaches conn, stops the write pump and fires OnClose once. The
// write pump closes conn after it has sent the close frame.
func (c *Client) shutdown(conn WSConn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	once, quit := c.closeOnce, c.quit
	c.conn = nil
	onClose := c.onClose
	c.mu.Unlock()

	once.Do(func() {
		close(quit)
		logger.Info.Println("[Client] connection closed")
		if onClose != nil {
			onClose()
		}
	})
}

func (c *Client) readPump(conn WSConn) {
	defer c.shutdown(conn)

	conn.SetReadLimit(MaxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn.Printf("[Client.readPump] read error: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		logger.Debug.Printf("[Client.readPump] received: %s", string(message))

		c.mu.Lock()
		fn := c.onMessage
		c.mu.Unlock()
		if fn != nil {
			fn(message)
		}
	}
}

func (c *Client) writePump(conn WSConn, send <-chan []byte, quit <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		c.shutdown(conn)
	}()

	for {
		select {
		case <-quit:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-send:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn.Printf("[Client.writePump] write error: %v", err)
				return
			}

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn.Printf("[Client.writePump] ping error: %v", err)
				return
			}
		}
	}
}
