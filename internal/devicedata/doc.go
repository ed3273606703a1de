// Package devicedata implements device data elements: single typed data
// points that can be read, written and observed independently of the field
// protocol behind them.
//
// # Values
//
// A Value holds one scalar of a fixed Kind (integer, bool, float, string).
// Values compare exactly, which is what change detection needs.
//
// # Elements
//
// An Element owns a name, a description, access flags and the last known
// Value. Generic bookkeeping lives here; the protocol work is delegated to a
// Native binding:
//
//	Element.Read         -> Native.ReadNative
//	Element.SetValue     -> Native.WriteNative
//	Element.ObserveValue -> Native.ObserveNative (first call only)
//
// When ObserveNative succeeds the binding receives a ChangeFunc. Calling it
// updates the cached value and notifies every observer synchronously, in the
// order they were registered.
//
// # Access Control
//
// Elements have access flags:
//   - Read: Can be read from the device
//   - Write: Can be written
//   - Observe: Can be observed for changes
//
// Operations outside the granted access fail with ErrAccessDenied and leave
// the element untouched.
package devicedata
