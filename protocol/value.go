// Package protocol defines the wire format shared by every shareform peer:
// a tagged scalar Value and the (view-model, property, value) Envelope.
// file: protocol/value.go
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the scalar carried by a Value.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindBool
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	default:
		return "invalid"
	}
}

// Value is an immutable string, boolean or number. The zero Value is invalid
// and never encodes.
type Value struct {
	kind Kind
	s    string
	b    bool
	n    float64
}

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, n: f} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) Valid() bool    { return v.kind >= KindString && v.kind <= KindNumber }
func (v Value) Str() string    { return v.s }
func (v Value) Bool() bool     { return v.b }
func (v Value) Float() float64 { return v.n }

// Equal reports whether both values carry the same tag and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	}
	return true
}

// String renders the value the way a user would type it.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes the bare scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return nil, fmt.Errorf("protocol: non-finite number %v", v.n)
		}
		return json.Marshal(v.n)
	default:
		return nil, fmt.Errorf("protocol: cannot encode %s value", v.kind)
	}
}

// UnmarshalJSON accepts a JSON string, boolean or number. Anything else,
// null included, is rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("protocol: empty value")
	}
	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case c == 't' || c == 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case c == '-' || (c >= '0' && c <= '9'):
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*v = Number(f)
	default:
		return fmt.Errorf("protocol: unsupported value %.20s", string(data))
	}
	return nil
}

// ParseValue converts user text into a Value of the requested kind.
func ParseValue(kind Kind, text string) (Value, error) {
	switch kind {
	case KindString:
		return String(text), nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return Value{}, fmt.Errorf("protocol: %q is not a bool", text)
		}
		return Bool(b), nil
	case KindNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("protocol: %q is not a finite number", text)
		}
		return Number(f), nil
	default:
		return Value{}, fmt.Errorf("protocol: unknown kind %d", kind)
	}
}
