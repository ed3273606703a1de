package devicedata

import "context"

// ChangeFunc pushes a value detected by a binding into its element.
// It returns ErrKindMismatch if v does not have the element's kind.
type ChangeFunc func(v Value) error

// Native is the protocol-specific half of an element (Modbus, LwM2M, ...).
//
// ReadNative fetches the current value from the field device. WriteNative
// pushes v to it. ObserveNative starts whatever subscription the protocol
// needs; after it returns nil the binding calls changed for every new value
// it detects, for as long as the element lives.
type Native interface {
	ReadNative(ctx context.Context) (Value, error)
	WriteNative(ctx context.Context, v Value) error
	ObserveNative(ctx context.Context, changed ChangeFunc) error
}
