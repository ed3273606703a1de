package devicedata

import "errors"

// Element errors.
var (
	ErrAccessDenied = errors.New("access denied")
	ErrKindMismatch = errors.New("value kind mismatch")
	ErrInvalidKind  = errors.New("invalid value kind")
	ErrNilNative    = errors.New("native binding required")
	ErrNilObserver  = errors.New("observer function required")
)
