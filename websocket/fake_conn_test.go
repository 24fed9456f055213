// file: websocket/fake_conn_test.go
package websocket

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// fakeConn implements WSConn in memory. Frames pushed into inbound are
// returned by ReadMessage; text frames written are recorded.
type fakeConn struct {
	mu        sync.Mutex
	written   []string
	pings     int
	closes    int
	readLimit int64
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (fc *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-fc.closed:
		return websocket.ErrCloseSent
	default:
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	switch messageType {
	case websocket.TextMessage:
		fc.written = append(fc.written, string(data))
	case websocket.PingMessage:
		fc.pings++
	case websocket.CloseMessage:
		fc.closes++
	}
	return nil
}

func (fc *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (fc *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case m := <-fc.inbound:
		return websocket.TextMessage, m, nil
	case <-fc.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (fc *fakeConn) Close() error {
	fc.closeOnce.Do(func() { close(fc.closed) })
	return nil
}

func (fc *fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 12345}
}

func (fc *fakeConn) SetReadLimit(limit int64) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.readLimit = limit
}

func (fc *fakeConn) SetReadDeadline(t time.Time) error { return nil }

func (fc *fakeConn) SetPongHandler(h func(string) error) {}

func (fc *fakeConn) Written() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.written...)
}

func (fc *fakeConn) CloseFrames() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.closes
}

func (fc *fakeConn) ReadLimit() int64 {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.readLimit
}

func (fc *fakeConn) isClosed() bool {
	select {
	case <-fc.closed:
		return true
	default:
		return false
	}
}
