// internal/status/tracker_test.go
package status

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goburrow/modbus"
	"github.com/stretchr/testify/assert"
)

type codedErr struct{ code uint16 }

func (e codedErr) Error() string { return "coded" }
func (e codedErr) Code() uint16  { return e.code }

func TestErrorCode(t *testing.T) {
	assert.Equal(t, uint16(0), ErrorCode(nil))
	assert.Equal(t, uint16(1), ErrorCode(errors.New("i/o timeout")))
	assert.Equal(t, uint16(7), ErrorCode(fmt.Errorf("wrapped: %w", codedErr{code: 7})))

	mb := &modbus.ModbusError{FunctionCode: 0x83, ExceptionCode: modbus.ExceptionCodeIllegalDataAddress}
	assert.Equal(t, uint16(2), ErrorCode(errors.Join(errors.New("other"), fmt.Errorf("poller: temp: %w", mb))))
}

func TestTracker_ApplyTransitions(t *testing.T) {
	now := time.Now()
	tr := NewTracker(0)
	assert.Equal(t, HealthUnknown, tr.Snapshot().Health)

	snap, changed := tr.Apply(now, nil)
	assert.True(t, changed)
	assert.Equal(t, HealthOK, snap.Health)

	_, changed = tr.Apply(now, nil)
	assert.False(t, changed)

	snap, changed = tr.Apply(now, errors.New("boom"))
	assert.True(t, changed)
	assert.Equal(t, Snapshot{Health: HealthError, LastErrorCode: 1}, snap)

	_, changed = tr.Apply(now, errors.New("boom again"))
	assert.False(t, changed)

	snap, changed = tr.Apply(now, nil)
	assert.True(t, changed)
	assert.Equal(t, Snapshot{Health: HealthOK}, snap)
}

func TestTracker_TickCountsWhileNotOK(t *testing.T) {
	now := time.Now()
	tr := NewTracker(0)
	tr.Apply(now, errors.New("down"))

	for i := 0; i < 3; i++ {
		_, changed := tr.Tick(now)
		assert.True(t, changed)
	}
	assert.Equal(t, uint16(3), tr.Snapshot().SecondsInError)

	tr.Apply(now, nil)
	_, changed := tr.Tick(now)
	assert.False(t, changed)
	assert.Zero(t, tr.Snapshot().SecondsInError)
}

func TestTracker_TickSaturates(t *testing.T) {
	tr := NewTracker(0)
	tr.snap = Snapshot{Health: HealthError, SecondsInError: MaxSecondsInError}

	_, changed := tr.Tick(time.Now())
	assert.False(t, changed)
	assert.Equal(t, uint16(MaxSecondsInError), tr.Snapshot().SecondsInError)
}

func TestTracker_Stale(t *testing.T) {
	start := time.Now()
	tr := NewTracker(5 * time.Second)
	tr.Apply(start, nil)

	_, changed := tr.Tick(start.Add(time.Second))
	assert.False(t, changed)

	snap, changed := tr.Tick(start.Add(6 * time.Second))
	assert.True(t, changed)
	assert.Equal(t, HealthStale, snap.Health)
	assert.Equal(t, "stale", HealthName(snap.Health))
}

func TestTracker_Disabled(t *testing.T) {
	tr := NewTracker(0)
	tr.Disable()

	_, changed := tr.Tick(time.Now())
	assert.False(t, changed)
	assert.Equal(t, HealthDisabled, tr.Snapshot().Health)
}
