// file: formsync/echo_guard.go
package formsync

import (
	"bytes"

	"shareform/logger"
	"shareform/protocol"
)

// EchoGuard remembers the last envelope received from the peer and vetoes
// sending that exact envelope back. It is shared by every cell of a session
// and, like the cells, is only touched from the loop.
type EchoGuard struct {
	last    protocol.Envelope
	encoded []byte
}

// NewEchoGuard returns an empty guard that lets everything through.
func NewEchoGuard() *EchoGuard {
	return &EchoGuard{}
}

// RecordInbound overwrites the slot with env.
func (g *EchoGuard) RecordInbound(env protocol.Envelope) {
	encoded, err := env.Encode()
	if err != nil {
		// a decoded envelope always re-encodes; keep the slot as it was otherwise
		logger.Warn.Printf("[EchoGuard.RecordInbound] cannot encode %s: %v", env.Key(), err)
		return
	}
	g.last = env
	g.encoded = encoded
}

// ShouldSend reports whether env differs from the last inbound envelope.
// It never changes the slot, so a vetoed envelope stays vetoed.
func (g *EchoGuard) ShouldSend(env protocol.Envelope) bool {
	if g.encoded == nil {
		return true
	}
	encoded, err := env.Encode()
	if err != nil {
		return true
	}
	return !bytes.Equal(encoded, g.encoded)
}

// NoteSent clears the slot once a different value for the same cell has gone
// out. After that the user may legitimately send the old value again.
func (g *EchoGuard) NoteSent(env protocol.Envelope) {
	if g.encoded == nil {
		return
	}
	if env.ViewModel != g.last.ViewModel || env.Property != g.last.Property {
		return
	}
	if env.Value.Equal(g.last.Value) {
		return
	}
	g.last = protocol.Envelope{}
	g.encoded = nil
}

// Last returns the remembered envelope, if any.
func (g *EchoGuard) Last() (protocol.Envelope, bool) {
	return g.last, g.encoded != nil
}
