// internal/status/constants.go
package status

// Health codes reported per unit.

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device error state.
const HealthError uint16 = 2

// HealthStale represents a stale data state.
const HealthStale uint16 = 3

// HealthDisabled represents a unit with nothing to observe.
const HealthDisabled uint16 = 4

// MaxSecondsInError is where SecondsInError saturates.
const MaxSecondsInError = 65535

// HealthName returns a log-friendly name for a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	case HealthDisabled:
		return "disabled"
	default:
		return "invalid"
	}
}
