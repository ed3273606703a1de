// internal/status/tracker.go
package status

import "time"

// Tracker folds poll outcomes into a Snapshot.
// Runner-owned: not safe for concurrent use.
type Tracker struct {
	snap Snapshot

	// staleAfter marks the unit stale once no successful poll was seen for
	// that long. Zero disables staleness.
	staleAfter time.Duration
	lastOK     time.Time
}

// NewTracker starts in HealthUnknown.
func NewTracker(staleAfter time.Duration) *Tracker {
	return &Tracker{
		snap:       Snapshot{Health: HealthUnknown},
		staleAfter: staleAfter,
	}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Apply records one poll cycle outcome and reports whether the snapshot changed.
// seconds_in_error is only advanced by Tick.
func (t *Tracker) Apply(at time.Time, err error) (Snapshot, bool) {
	prev := t.snap

	if err == nil {
		t.lastOK = at
		t.snap = Snapshot{Health: HealthOK}
	} else {
		t.snap.Health = HealthError
		t.snap.LastErrorCode = ErrorCode(err)
	}

	return t.snap, t.snap != prev
}

// Tick advances the 1 Hz counters and reports whether the snapshot changed.
func (t *Tracker) Tick(now time.Time) (Snapshot, bool) {
	prev := t.snap

	if t.snap.Health == HealthOK && t.staleAfter > 0 && now.Sub(t.lastOK) > t.staleAfter {
		t.snap.Health = HealthStale
	}

	if t.snap.Health != HealthOK && t.snap.Health != HealthDisabled {
		if t.snap.SecondsInError < MaxSecondsInError {
			t.snap.SecondsInError++
		}
	}

	return t.snap, t.snap != prev
}

// Disable marks a unit that has nothing to poll.
func (t *Tracker) Disable() {
	t.snap = Snapshot{Health: HealthDisabled}
}
