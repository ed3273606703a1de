// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/devicedata/internal/devicedata"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	if len(cfg.DeviceData.Units) == 0 {
		return errors.New("config: at least one unit required")
	}

	seenUnits := make(map[string]struct{})

	for _, u := range cfg.DeviceData.Units {
		if strings.TrimSpace(u.ID) == "" {
			return errors.New("config: unit id required")
		}
		if _, dup := seenUnits[u.ID]; dup {
			return fmt.Errorf("config: duplicate unit id %q", u.ID)
		}
		seenUnits[u.ID] = struct{}{}

		if err := validateUnit(u); err != nil {
			return err
		}
	}

	return nil
}

func validateUnit(u UnitConfig) error {
	if u.Source.Endpoint == "" {
		return fmt.Errorf("unit %q: source.endpoint required", u.ID)
	}
	if u.Source.TimeoutMs < 0 {
		return fmt.Errorf("unit %q: source.timeout_ms must be >= 0", u.ID)
	}

	byName := make(map[string]ElementConfig, len(u.Elements))
	observes := false

	for _, e := range u.Elements {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("unit %q: element name required", u.ID)
		}
		if _, dup := byName[e.Name]; dup {
			return fmt.Errorf("unit %q: duplicate element %q", u.ID, e.Name)
		}
		byName[e.Name] = e

		access, err := validateElement(e)
		if err != nil {
			return fmt.Errorf("unit %q: element %q: %w", u.ID, e.Name, err)
		}
		if access.CanObserve() {
			observes = true
		}
	}

	if observes && u.Poll.IntervalMs <= 0 {
		return fmt.Errorf("unit %q: poll.interval_ms must be > 0 when elements are observed", u.ID)
	}
	if u.Poll.StaleAfterMs < 0 {
		return fmt.Errorf("unit %q: poll.stale_after_ms must be >= 0", u.ID)
	}
	if u.Poll.StaleAfterMs > 0 && u.Poll.StaleAfterMs < u.Poll.IntervalMs {
		return fmt.Errorf("unit %q: poll.stale_after_ms (%d) must be 0 or >= poll.interval_ms (%d)",
			u.ID, u.Poll.StaleAfterMs, u.Poll.IntervalMs)
	}

	if err := validateOverlap(u); err != nil {
		return err
	}
	return validateMirrors(u, byName)
}

func validateElement(e ElementConfig) (devicedata.Access, error) {
	kind, err := devicedata.ParseKind(e.Kind)
	if err != nil {
		return 0, err
	}
	access, err := devicedata.ParseAccess(e.Access...)
	if err != nil {
		return 0, err
	}

	switch e.FC {
	case 1, 2:
		if kind != devicedata.KindBool {
			return 0, fmt.Errorf("fc %d carries bool only, got %s", e.FC, kind)
		}
		if e.Words > 1 {
			return 0, fmt.Errorf("fc %d spans a single bit, words=%d", e.FC, e.Words)
		}
	case 3, 4:
		if kind == devicedata.KindString {
			return 0, fmt.Errorf("kind %s not supported on registers", kind)
		}
		if e.Words > 2 {
			return 0, fmt.Errorf("words must be 1 or 2, got %d", e.Words)
		}
		if kind == devicedata.KindFloat && e.Words == 1 {
			return 0, errors.New("float needs words=2")
		}
	default:
		return 0, fmt.Errorf("unsupported fc %d", e.FC)
	}

	if access.CanWrite() && e.FC != 1 && e.FC != 3 {
		return 0, fmt.Errorf("write access requires fc 1 or 3, got fc %d", e.FC)
	}

	if uint32(e.Address)+uint32(span(e))-1 > 0xFFFF {
		return 0, fmt.Errorf("address %d + %d exceeds register space", e.Address, span(e))
	}

	return access, nil
}

// span is the number of coils or registers an element occupies.
func span(e ElementConfig) uint16 {
	if e.FC == 1 || e.FC == 2 {
		return 1
	}
	if e.Words == 0 {
		if strings.EqualFold(strings.TrimSpace(e.Kind), "float") {
			return 2
		}
		return 1
	}
	return e.Words
}

func validateOverlap(u UnitConfig) error {
	type rng struct {
		start uint32
		end   uint32
		name  string
	}

	// key = fc
	spans := make(map[uint8][]rng)

	for _, e := range u.Elements {
		start := uint32(e.Address)
		end := start + uint32(span(e)) - 1

		for _, s := range spans[e.FC] {
			// overlap check (inclusive)
			if !(end < s.start || start > s.end) {
				return fmt.Errorf(
					"unit %q: fc=%d range=%d-%d of %q overlaps %q range=%d-%d",
					u.ID, e.FC, start, end, e.Name, s.name, s.start, s.end,
				)
			}
		}

		spans[e.FC] = append(spans[e.FC], rng{start: start, end: end, name: e.Name})
	}

	return nil
}

func validateMirrors(u UnitConfig, byName map[string]ElementConfig) error {
	for _, e := range u.Elements {
		if len(e.MirrorTo) == 0 {
			continue
		}

		src, _ := devicedata.ParseAccess(e.Access...)
		if !src.CanObserve() {
			return fmt.Errorf("unit %q: element %q mirrors but is not observable", u.ID, e.Name)
		}

		for _, name := range e.MirrorTo {
			if name == e.Name {
				return fmt.Errorf("unit %q: element %q mirrors to itself", u.ID, e.Name)
			}
			dst, ok := byName[name]
			if !ok {
				return fmt.Errorf("unit %q: element %q mirrors to unknown element %q", u.ID, e.Name, name)
			}
			da, _ := devicedata.ParseAccess(dst.Access...)
			if !da.CanWrite() {
				return fmt.Errorf("unit %q: mirror target %q is not writable", u.ID, name)
			}
			sk, _ := devicedata.ParseKind(e.Kind)
			dk, _ := devicedata.ParseKind(dst.Kind)
			if sk != dk {
				return fmt.Errorf("unit %q: mirror %q -> %q: kind %s != %s", u.ID, e.Name, name, sk, dk)
			}
		}
	}

	// Mirrors fire synchronously, so a cycle would never terminate.
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(byName))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("unit %q: mirror cycle through %q", u.ID, name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, next := range byName[name].MirrorTo {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, e := range u.Elements {
		if err := visit(e.Name); err != nil {
			return err
		}
	}
	return nil
}
