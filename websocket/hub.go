// file: websocket/hub.go
package websocket

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"shareform/logger"
	"shareform/protocol"
)

// frame is one text message and the connection it came from.
type frame struct {
	origin *Connection
	data   []byte
}

// Reporter is told the live connection count whenever it changes.
type Reporter interface {
	PublishConnections(count int)
}

// Hub relays every frame from one connection to all the others. All
// connection bookkeeping happens on the Run goroutine.
type Hub struct {
	connections map[*Connection]bool

	register   chan *Connection
	unregister chan *Connection
	share      chan frame
	done       chan struct{}

	validate bool
	metrics  *Metrics
	reporter Reporter
	upgrader websocket.Upgrader
	count    atomic.Int64
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithEnvelopeValidation drops frames that are not well-formed envelopes
// instead of relaying them.
func WithEnvelopeValidation(enabled bool) HubOption {
	return func(h *Hub) {
		h.validate = enabled
	}
}

// WithAllowedOrigins restricts the Origin header on upgrade. An empty list
// accepts any origin.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) {
		if len(origins) == 0 {
			h.upgrader.CheckOrigin = func(*http.Request) bool { return true }
			return
		}
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		}
	}
}

// WithMetrics records relay activity in m.
func WithMetrics(m *Metrics) HubOption {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithReporter publishes connection counts to r.
func WithReporter(r Reporter) HubOption {
	return func(h *Hub) {
		h.reporter = r
	}
}

// NewHub returns a hub; call Run to start relaying.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		share:       make(chan frame),
		done:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Count is the number of registered connections.
func (h *Hub) Count() int { return int(h.count.Load()) }

// Run relays until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	logger.Info.Println("[Hub.Run] relay hub running")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.connections {
				h.remove(c)
			}
			logger.Info.Println("[Hub.Run] relay hub stopped")
			return

		case c := <-h.register:
			h.connections[c] = true
			logger.Info.Printf("[Hub.Run] register %s (%v)", c.id, c.conn.RemoteAddr())
			h.changed()

		case c := <-h.unregister:
			if h.connections[c] {
				logger.Info.Printf("[Hub.Run] unregister %s", c.id)
				h.remove(c)
			}

		case f := <-h.share:
			h.relay(f)
		}
	}
}

func (h *Hub) relay(f frame) {
	if h.validate {
		if _, err := protocol.Decode(f.data); err != nil {
			logger.Warn.Printf("[Hub.relay] dropping frame from %s: %v", f.origin.id, err)
			h.metrics.dropped(reasonMalformed)
			return
		}
	}

	for c := range h.connections {
		if c == f.origin {
			continue
		}
		select {
		case c.send <- f.data:
			h.metrics.relayed()
		default:
			logger.Warn.Printf("[Hub.relay] %s is not keeping up; removing it", c.id)
			h.metrics.dropped(reasonSlowConsumer)
			h.remove(c)
		}
	}
}

// remove must only run on the Run goroutine.
func (h *Hub) remove(c *Connection) {
	delete(h.connections, c)
	close(c.send)
	h.changed()
}

func (h *Hub) changed() {
	n := len(h.connections)
	h.count.Store(int64(n))
	h.metrics.setConnections(n)
	if h.reporter != nil {
		h.reporter.PublishConnections(n)
	}
}

// join hands c to the Run goroutine. It reports false after the hub stopped.
func (h *Hub) join(c *Connection) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Connection) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) submit(f frame) bool {
	select {
	case h.share <- f:
		return true
	case <-h.done:
		return false
	}
}
