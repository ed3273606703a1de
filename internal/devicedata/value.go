package devicedata

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Kind is the discriminant of a Value.
type Kind uint8

const (
	// KindInvalid is the zero Kind. No element can be declared with it.
	KindInvalid Kind = iota
	KindInteger
	KindBool
	KindFloat
	KindString
)

// String returns the kind name as used in configuration files.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Valid reports whether k names a usable kind.
func (k Kind) Valid() bool {
	return k >= KindInteger && k <= KindString
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int":
		return KindInteger, nil
	case "bool", "boolean":
		return KindBool, nil
	case "float":
		return KindFloat, nil
	case "string":
		return KindString, nil
	}
	return KindInvalid, fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Value carries one scalar of a fixed Kind.
//
// The kind is set at construction and never changes. Values are passed and
// compared by value; the zero Value has KindInvalid.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

// NewValue returns a value of the given kind holding the kind's default payload.
func NewValue(kind Kind) Value {
	return Value{kind: kind}
}

func IntValue(i int64) Value { return Value{kind: KindInteger, i: i} }
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the value's discriminant.
func (v Value) Kind() Kind { return v.kind }

func (v Value) check(want Kind) error {
	if v.kind != want {
		return fmt.Errorf("%w: value is %s, want %s", ErrKindMismatch, v.kind, want)
	}
	return nil
}

// Int returns the integer payload.
func (v Value) Int() (int64, error) {
	if err := v.check(KindInteger); err != nil {
		return 0, err
	}
	return v.i, nil
}

// Bool returns the bool payload.
func (v Value) Bool() (bool, error) {
	if err := v.check(KindBool); err != nil {
		return false, err
	}
	return v.b, nil
}

// Float returns the float payload.
func (v Value) Float() (float64, error) {
	if err := v.check(KindFloat); err != nil {
		return 0, err
	}
	return v.f, nil
}

// Str returns the string payload.
func (v Value) Str() (string, error) {
	if err := v.check(KindString); err != nil {
		return "", err
	}
	return v.s, nil
}

// SetInt replaces the payload of an integer value.
func (v *Value) SetInt(i int64) error {
	if err := v.check(KindInteger); err != nil {
		return err
	}
	v.i = i
	return nil
}

// SetBool replaces the payload of a bool value.
func (v *Value) SetBool(b bool) error {
	if err := v.check(KindBool); err != nil {
		return err
	}
	v.b = b
	return nil
}

// SetFloat replaces the payload of a float value.
func (v *Value) SetFloat(f float64) error {
	if err := v.check(KindFloat); err != nil {
		return err
	}
	v.f = f
	return nil
}

// SetStr replaces the payload of a string value.
func (v *Value) SetStr(s string) error {
	if err := v.check(KindString); err != nil {
		return err
	}
	v.s = s
	return nil
}

// Equal reports whether both kind and payload match exactly.
// Floats compare by bit pattern: NaN equals an identical NaN, and 0 differs from -0.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindBool:
		return v.b == o.b
	case KindFloat:
		return math.Float64bits(v.f) == math.Float64bits(o.f)
	case KindString:
		return v.s == o.s
	}
	return true
}

// String formats the payload for logs.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	}
	return "<invalid>"
}

// valueWire is the CBOR shape of a Value, keyed by integers.
type valueWire struct {
	Kind  Kind    `cbor:"1,keyasint"`
	Int   int64   `cbor:"2,keyasint"`
	Bool  bool    `cbor:"3,keyasint"`
	Float float64 `cbor:"4,keyasint"`
	Str   string  `cbor:"5,keyasint"`
}

// MarshalCBOR implements cbor.Marshaler.
func (v Value) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(valueWire{Kind: v.kind, Int: v.i, Bool: v.b, Float: v.f, Str: v.s})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var w valueWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Kind.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidKind, w.Kind)
	}
	*v = Value{kind: w.Kind}
	switch w.Kind {
	case KindInteger:
		v.i = w.Int
	case KindBool:
		v.b = w.Bool
	case KindFloat:
		v.f = w.Float
	case KindString:
		v.s = w.Str
	}
	return nil
}
