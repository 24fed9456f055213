// file: protocol/envelope.go
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEnvelope is returned by Decode for any payload that is not a
// complete envelope.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope addresses one property of one view-model and carries its value.
type Envelope struct {
	ViewModel string `json:"vm"`
	Property  string `json:"prop"`
	Value     Value  `json:"val"`
}

// Equal reports structural equality.
func (e Envelope) Equal(o Envelope) bool {
	return e.ViewModel == o.ViewModel && e.Property == o.Property && e.Value.Equal(o.Value)
}

// Key is the "vm.prop" address used in logs.
func (e Envelope) Key() string {
	return e.ViewModel + "." + e.Property
}

// Encode returns the canonical text frame for the envelope.
func (e Envelope) Encode() ([]byte, error) {
	out, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Key(), err)
	}
	return out, nil
}

// Encode builds the canonical frame {"vm":..,"prop":..,"val":..}.
func Encode(viewModel, property string, value Value) ([]byte, error) {
	return Envelope{ViewModel: viewModel, Property: property, Value: value}.Encode()
}

// wireEnvelope keeps the fields raw so missing keys can be told apart from
// empty ones.
type wireEnvelope struct {
	VM   *string          `json:"vm"`
	Prop *string          `json:"prop"`
	Val  *json.RawMessage `json:"val"`
}

// Decode parses a frame. Every failure wraps ErrMalformedEnvelope.
func Decode(data []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	switch {
	case w.VM == nil:
		return Envelope{}, fmt.Errorf("%w: missing vm", ErrMalformedEnvelope)
	case w.Prop == nil:
		return Envelope{}, fmt.Errorf("%w: missing prop", ErrMalformedEnvelope)
	case w.Val == nil:
		return Envelope{}, fmt.Errorf("%w: missing val", ErrMalformedEnvelope)
	}

	var v Value
	if err := v.UnmarshalJSON(*w.Val); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return Envelope{ViewModel: *w.VM, Property: *w.Prop, Value: v}, nil
}
