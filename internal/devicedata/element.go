package devicedata

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Access flags for elements.
type Access uint8

const (
	// AccessNone grants nothing.
	AccessNone Access = 0

	// AccessRead allows reading the element from the device.
	AccessRead Access = 1 << (iota - 1)

	// AccessWrite allows writing the element.
	AccessWrite

	// AccessObserve allows subscribing to changes.
	AccessObserve
)

// CanRead returns true if reading is allowed.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite returns true if writing is allowed.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// CanObserve returns true if observing is allowed.
func (a Access) CanObserve() bool { return a&AccessObserve != 0 }

// String returns the access flags as a string.
func (a Access) String() string {
	var s string
	if a.CanRead() {
		s += "R"
	}
	if a.CanWrite() {
		s += "W"
	}
	if a.CanObserve() {
		s += "O"
	}
	if s == "" {
		return "-"
	}
	return s
}

// ParseAccess combines access names ("read", "write", "observe") into flags.
func ParseAccess(names ...string) (Access, error) {
	var a Access
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "read", "r":
			a |= AccessRead
		case "write", "w":
			a |= AccessWrite
		case "observe", "o":
			a |= AccessObserve
		case "none", "":
		default:
			return AccessNone, fmt.Errorf("unknown access %q", n)
		}
	}
	return a, nil
}

// ObserverFunc receives every new value of an observed element.
// Per-subscriber state is whatever the closure captures.
type ObserverFunc func(v Value)

// Element is a single addressable data point of a device.
//
// Identity and access flags are fixed at construction. The cached value
// always has the element's declared kind. Observers are append-only.
type Element struct {
	name        string
	description string
	kind        Kind
	access      Access
	native      Native

	// activateMu serializes native observe activation.
	activateMu sync.Mutex

	mu        sync.RWMutex
	value     Value
	observed  bool
	observers []ObserverFunc
}

// New creates an element whose cached value starts at the kind's default.
func New(name, description string, kind Kind, access Access, native Native) (*Element, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("element %q: %w", name, ErrInvalidKind)
	}
	if native == nil {
		return nil, fmt.Errorf("element %q: %w", name, ErrNilNative)
	}
	return &Element{
		name:        name,
		description: description,
		kind:        kind,
		access:      access,
		native:      native,
		value:       NewValue(kind),
	}, nil
}

func (e *Element) Name() string        { return e.name }
func (e *Element) Description() string { return e.description }
func (e *Element) Kind() Kind          { return e.kind }
func (e *Element) Access() Access      { return e.access }
func (e *Element) Readable() bool      { return e.access.CanRead() }
func (e *Element) Writable() bool      { return e.access.CanWrite() }
func (e *Element) Observable() bool    { return e.access.CanObserve() }

// Observed reports whether native observation has been activated.
func (e *Element) Observed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.observed
}

// ObserverCount returns the number of registered observers.
func (e *Element) ObserverCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.observers)
}

// Value returns the last known value. It never touches the device;
// use Read to refresh.
func (e *Element) Value() Value {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value
}

// Read fetches the value through the binding and publishes it like any
// other change.
func (e *Element) Read(ctx context.Context) (Value, error) {
	if !e.access.CanRead() {
		return Value{}, fmt.Errorf("read %q: %w", e.name, ErrAccessDenied)
	}
	v, err := e.native.ReadNative(ctx)
	if err != nil {
		return Value{}, fmt.Errorf("read %q: %w", e.name, err)
	}
	if err := e.valueChanged(v); err != nil {
		return Value{}, fmt.Errorf("read %q: %w", e.name, err)
	}
	return v, nil
}

// SetValue writes v through the binding. On success the cache is updated
// and every observer is notified, the writer included.
func (e *Element) SetValue(ctx context.Context, v Value) error {
	if !e.access.CanWrite() {
		return fmt.Errorf("write %q: %w", e.name, ErrAccessDenied)
	}
	if v.Kind() != e.kind {
		return fmt.Errorf("write %q: %w: got %s, want %s", e.name, ErrKindMismatch, v.Kind(), e.kind)
	}
	if err := e.native.WriteNative(ctx, v); err != nil {
		return fmt.Errorf("write %q: %w", e.name, err)
	}
	return e.valueChanged(v)
}

// ObserveValue registers fn for change notifications. The first successful
// call activates native observation; later calls only add observers.
//
// During activation fn is not yet registered, so values the binding pushes
// while activating are not seen by it. If activation fails, fn is never
// registered, the element stays unobserved and the error is returned. The
// next call tries to activate again.
func (e *Element) ObserveValue(ctx context.Context, fn ObserverFunc) error {
	if !e.access.CanObserve() {
		return fmt.Errorf("observe %q: %w", e.name, ErrAccessDenied)
	}
	if fn == nil {
		return fmt.Errorf("observe %q: %w", e.name, ErrNilObserver)
	}

	e.activateMu.Lock()
	defer e.activateMu.Unlock()

	e.mu.Lock()
	if e.observed {
		e.observers = append(e.observers, fn)
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if err := e.native.ObserveNative(ctx, e.valueChanged); err != nil {
		return fmt.Errorf("observe %q: %w", e.name, err)
	}

	e.mu.Lock()
	e.observers = append(e.observers, fn)
	e.observed = true
	e.mu.Unlock()
	return nil
}

// valueChanged stores v and fans it out to all observers in registration
// order. Observers run on the caller's goroutine, outside the lock.
func (e *Element) valueChanged(v Value) error {
	if v.Kind() != e.kind {
		return fmt.Errorf("%w: got %s, want %s", ErrKindMismatch, v.Kind(), e.kind)
	}

	e.mu.Lock()
	e.value = v
	obs := make([]ObserverFunc, len(e.observers))
	copy(obs, e.observers)
	e.mu.Unlock()

	for _, fn := range obs {
		fn(v)
	}
	return nil
}
