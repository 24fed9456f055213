// file: formsync/session.go
package formsync

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"shareform/logger"
	"shareform/protocol"
)

// ErrSessionClosed is returned by Edit and Value after Close.
var ErrSessionClosed = errors.New("session closed")

// Transport is the single bidirectional channel a session talks through.
// Send must never panic; when there is no live connection it returns an
// error after logging it.
type Transport interface {
	Send(data []byte) error
	OnMessage(fn func(data []byte))
	OnClose(fn func())
	Close() error
}

// Session ties one transport to one registry on one loop.
type Session struct {
	transport Transport
	loop      *Loop
	guard     *EchoGuard
	registry  *Registry
	closeOnce sync.Once
	closeErr  error
}

type sessionConfig struct {
	clock    clock.Clock
	quiet    time.Duration
	onRemote func(viewModel string)
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clk clock.Clock) SessionOption {
	return func(c *sessionConfig) {
		c.clock = clk
	}
}

// WithSessionQuietPeriod sets the debounce interval.
func WithSessionQuietPeriod(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.quiet = d
	}
}

// WithRemoteUpdate installs the presentation hook run after each applied
// inbound update.
func WithRemoteUpdate(fn func(viewModel string)) SessionOption {
	return func(c *sessionConfig) {
		c.onRemote = fn
	}
}

// NewSession registers fields, hooks into transport and starts the loop.
func NewSession(transport Transport, fields []Field, opts ...SessionOption) *Session {
	cfg := sessionConfig{quiet: DefaultQuietPeriod}
	for _, opt := range opts {
		opt(&cfg)
	}

	loop := NewLoop(cfg.clock)
	guard := NewEchoGuard()
	s := &Session{
		transport: transport,
		loop:      loop,
		guard:     guard,
	}

	regOpts := []RegistryOption{WithQuietPeriod(cfg.quiet)}
	if cfg.onRemote != nil {
		regOpts = append(regOpts, WithRemoteUpdateHook(cfg.onRemote))
	}
	s.registry = NewRegistry(loop, transport, guard, regOpts...)
	s.registry.RegisterFields(fields)

	transport.OnMessage(s.deliver)
	transport.OnClose(s.disconnected)

	go loop.Run()
	return s
}

// deliver is the transport's message callback. It may run on any goroutine.
func (s *Session) deliver(data []byte) {
	payload := append([]byte(nil), data...)
	s.loop.Post(func() { s.handleInbound(payload) })
}

func (s *Session) handleInbound(data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		logger.Warn.Printf("[Session.handleInbound] dropping message: %v", err)
		return
	}
	logger.Debug.Printf("[Session.handleInbound] received %s", string(data))
	s.guard.RecordInbound(env)
	_ = s.registry.RouteInbound(env)
}

func (s *Session) disconnected() {
	logger.Warn.Println("[Session] connection closed; edits stay local")
}

// Edit applies a local change to vm.prop as if typed by the user.
func (s *Session) Edit(vm, prop string, v protocol.Value) error {
	var err error
	if !s.loop.Do(func() { err = s.registry.Set(vm, prop, v) }) {
		return ErrSessionClosed
	}
	return err
}

// Value reads vm.prop.
func (s *Session) Value(vm, prop string) (protocol.Value, error) {
	var (
		v   protocol.Value
		err error
	)
	ok := s.loop.Do(func() {
		var p *property
		if p, err = s.registry.lookup(vm, prop); err == nil {
			v = p.cell.Get()
		}
	})
	if !ok {
		return protocol.Value{}, ErrSessionClosed
	}
	return v, err
}

// Kind returns the configured kind of vm.prop.
func (s *Session) Kind(vm, prop string) (protocol.Kind, error) {
	v, err := s.Value(vm, prop)
	return v.Kind(), err
}

// Do runs fn on the session loop with the registry, for callers that need
// several reads or writes to happen atomically.
func (s *Session) Do(fn func(r *Registry)) error {
	if !s.loop.Do(func() { fn(s.registry) }) {
		return ErrSessionClosed
	}
	return nil
}

// Close shuts the transport, cancels pending settles and stops the loop.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.transport.Close()
		s.loop.Do(s.registry.Close)
		s.loop.Stop()
		<-s.loop.Done()
	})
	return s.closeErr
}
