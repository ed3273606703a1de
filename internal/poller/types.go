// internal/poller/types.go
package poller

import (
	"context"
	"time"

	"github.com/tamzrod/devicedata/internal/devicedata"
)

// Source is one observed data point the poller reads on every tick.
// Geometry and protocol live behind ReadNative.
type Source interface {
	Name() string
	ReadNative(ctx context.Context) (devicedata.Value, error)
}

// target pairs a source with the change hook handed out by its element.
type target struct {
	src     Source
	changed devicedata.ChangeFunc

	// last is the last value delivered through changed or reported by
	// Delivered. Guarded by Poller.mu.
	last devicedata.Value
	seen bool
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	UnitID string
	At     time.Time

	Reads   int // sources read successfully
	Changed int // values delivered to elements

	Err error // non-nil if any source failed; other sources were still polled
}
