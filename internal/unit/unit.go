// internal/unit/unit.go
package unit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cfg "github.com/tamzrod/devicedata/internal/config"
	"github.com/tamzrod/devicedata/internal/devicedata"
	"github.com/tamzrod/devicedata/internal/journal"
	"github.com/tamzrod/devicedata/internal/modbus"
	"github.com/tamzrod/devicedata/internal/poller"
	"github.com/tamzrod/devicedata/internal/status"
	"github.com/tamzrod/devicedata/internal/writer"
)

// Unit is one Modbus device: its elements, the poller that drives their
// observation and the mirrors between them.
type Unit struct {
	id  string
	log *slog.Logger

	poller *poller.Poller // nil when nothing is observable

	statusMu sync.Mutex
	tracker  *status.Tracker

	order    []string
	elements map[string]*devicedata.Element
	mirrors  map[string]*writer.Mirror
}

// Build constructs a Unit from a validated, normalized config.
// No I/O happens here; observation starts with Observe.
func Build(u cfg.UnitConfig, tr modbus.Transport, log *slog.Logger) (*Unit, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("unit", u.ID))

	out := &Unit{
		id:       u.ID,
		log:      log,
		tracker:  status.NewTracker(time.Duration(u.Poll.StaleAfterMs) * time.Millisecond),
		elements: make(map[string]*devicedata.Element, len(u.Elements)),
		mirrors:  make(map[string]*writer.Mirror),
	}

	if u.Poll.IntervalMs > 0 {
		p, err := poller.New(poller.Config{
			UnitID:   u.ID,
			Interval: time.Duration(u.Poll.IntervalMs) * time.Millisecond,
		}, log)
		if err != nil {
			return nil, err
		}
		out.poller = p
	}

	for _, ec := range u.Elements {
		e, err := buildElement(u, ec, tr, out.scheduler())
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", u.ID, err)
		}
		out.order = append(out.order, ec.Name)
		out.elements[ec.Name] = e
	}

	mirrors, err := writer.BuildMirrors(u, out.elements, log)
	if err != nil {
		return nil, err
	}
	for _, m := range mirrors {
		out.mirrors[m.Source()] = m
	}

	return out, nil
}

// scheduler avoids handing points a typed-nil interface.
func (u *Unit) scheduler() modbus.Scheduler {
	if u.poller == nil {
		return nil
	}
	return u.poller
}

func buildElement(u cfg.UnitConfig, ec cfg.ElementConfig, tr modbus.Transport, sched modbus.Scheduler) (*devicedata.Element, error) {
	kind, err := devicedata.ParseKind(ec.Kind)
	if err != nil {
		return nil, err
	}
	access, err := devicedata.ParseAccess(ec.Access...)
	if err != nil {
		return nil, err
	}

	p, err := modbus.NewPoint(modbus.PointConfig{
		Name:    ec.Name,
		UnitID:  u.Source.UnitID,
		Address: ec.Address,
		Layout: modbus.Layout{
			FC:     ec.FC,
			Kind:   kind,
			Words:  ec.Words,
			Signed: ec.Signed,
		},
	}, tr, sched)
	if err != nil {
		return nil, err
	}

	return devicedata.New(ec.Name, ec.Description, kind, access, p)
}

// ID returns the unit id.
func (u *Unit) ID() string { return u.id }

// Element returns an element by name.
func (u *Unit) Element(name string) (*devicedata.Element, bool) {
	e, ok := u.elements[name]
	return e, ok
}

// Elements returns all elements in config order.
func (u *Unit) Elements() []*devicedata.Element {
	out := make([]*devicedata.Element, 0, len(u.order))
	for _, name := range u.order {
		out = append(out, u.elements[name])
	}
	return out
}

// Status returns the unit's current health snapshot.
func (u *Unit) Status() status.Snapshot {
	u.statusMu.Lock()
	defer u.statusMu.Unlock()
	return u.tracker.Snapshot()
}

// Observe subscribes the change log, the journal (if j is non-nil) and any
// mirror to every observable element. Each subscription retries a failed
// activation. Errors are collected; the remaining elements are still
// observed.
func (u *Unit) Observe(ctx context.Context, j *journal.Journal) error {
	var errs []error

	for _, e := range u.Elements() {
		if !e.Observable() {
			continue
		}

		obs := []devicedata.ObserverFunc{u.changeLogger(e.Name())}
		if j != nil {
			obs = append(obs, j.Observer(u.id, e.Name()))
		}
		if m, ok := u.mirrors[e.Name()]; ok {
			obs = append(obs, m.Observer(ctx))
		}

		for _, fn := range obs {
			if err := e.ObserveValue(ctx, fn); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (u *Unit) changeLogger(name string) devicedata.ObserverFunc {
	return func(v devicedata.Value) {
		u.log.Info("value changed",
			slog.String("element", name),
			slog.String("kind", v.Kind().String()),
			slog.String("value", v.String()),
		)
	}
}

// Refresh reads every readable element that is not observed, so their
// cached values start from the device rather than the kind default.
func (u *Unit) Refresh(ctx context.Context) error {
	var errs []error
	for _, e := range u.Elements() {
		if !e.Readable() || e.Observed() {
			continue
		}
		if _, err := e.Read(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
