// file: formsync/helpers_test.go
package formsync

import (
	"bytes"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"shareform/logger"
	"shareform/protocol"
)

var errNotConnected = errors.New("not connected")

// recordingSender captures every frame handed to it.
type recordingSender struct {
	mu     sync.Mutex
	frames []string
	fail   bool
}

func (s *recordingSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errNotConnected
	}
	s.frames = append(s.frames, string(data))
	return nil
}

func (s *recordingSender) Frames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.frames...)
}

// memTransport is an in-process Transport; two of them form a connection.
type memTransport struct {
	mu        sync.Mutex
	peer      *memTransport
	onMessage func([]byte)
	onClose   func()
	closed    bool
	sent      []string
}

func newMemPair() (*memTransport, *memTransport) {
	a, b := &memTransport{}, &memTransport{}
	a.peer, b.peer = b, a
	return a, b
}

func (m *memTransport) Send(data []byte) error {
	m.mu.Lock()
	if m.closed || m.peer == nil {
		m.mu.Unlock()
		return errNotConnected
	}
	m.sent = append(m.sent, string(data))
	peer := m.peer
	m.mu.Unlock()

	peer.mu.Lock()
	fn := peer.onMessage
	peer.mu.Unlock()
	if fn != nil {
		fn(data)
	}
	return nil
}

func (m *memTransport) OnMessage(fn func([]byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMessage = fn
}

func (m *memTransport) OnClose(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClose = fn
}

func (m *memTransport) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	fn := m.onClose
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// inject delivers raw bytes as if they came off the wire.
func (m *memTransport) inject(data []byte) {
	m.mu.Lock()
	fn := m.onMessage
	m.mu.Unlock()
	fn(data)
}

func (m *memTransport) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogs redirects the package loggers for the duration of the test.
func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	logger.SetOutput(buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })
	return buf
}

// harness runs a registry on a loop driven by a mock clock.
type harness struct {
	t      *testing.T
	mock   *clock.Mock
	loop   *Loop
	sender *recordingSender
	guard  *EchoGuard
	reg    *Registry
	hooked []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, mock: clock.NewMock(), sender: &recordingSender{}, guard: NewEchoGuard()}
	h.loop = NewLoop(h.mock)
	go h.loop.Run()
	t.Cleanup(h.loop.Stop)

	h.reg = NewRegistry(h.loop, h.sender, h.guard,
		WithRemoteUpdateHook(func(vm string) { h.hooked = append(h.hooked, vm) }))
	h.do(func() {
		h.reg.Register("band", map[string]protocol.Value{
			"bandVal": protocol.String(""),
			"muted":   protocol.Bool(false),
		})
	})
	return h
}

func (h *harness) do(fn func()) {
	h.t.Helper()
	require.True(h.t, h.loop.Do(fn), "loop stopped")
}

// inbound follows the session's inbound path: record, then route.
func (h *harness) inbound(env protocol.Envelope) error {
	var err error
	h.do(func() {
		h.guard.RecordInbound(env)
		err = h.reg.RouteInbound(env)
	})
	return err
}

func (h *harness) edit(vm, prop string, v protocol.Value) {
	h.t.Helper()
	var err error
	h.do(func() { err = h.reg.Set(vm, prop, v) })
	require.NoError(h.t, err)
}

func (h *harness) value(vm, prop string) protocol.Value {
	var (
		v  protocol.Value
		ok bool
	)
	h.do(func() {
		var c *Cell
		if c, ok = h.reg.Cell(vm, prop); ok {
			v = c.Get()
		}
	})
	require.True(h.t, ok, "no cell %s.%s", vm, prop)
	return v
}

// pending is polled from require.Eventually, so it must not fail the test.
func (h *harness) pending(vm, prop string) bool {
	var p bool
	h.loop.Do(func() {
		if d, ok := h.reg.Debounced(vm, prop); ok {
			p = d.Pending()
		}
	})
	return p
}

// settle advances the clock by the quiet period and waits for vm.prop to
// finish settling on the loop.
func (h *harness) settle(vm, prop string) {
	h.t.Helper()
	h.mock.Add(DefaultQuietPeriod)
	require.Eventually(h.t, func() bool { return !h.pending(vm, prop) }, time.Second, 5*time.Millisecond)
}

func (h *harness) hooks() []string {
	var out []string
	h.do(func() { out = append(out, h.hooked...) })
	return out
}
