// internal/modbus/point.go
package modbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/tamzrod/devicedata/internal/devicedata"
	"github.com/tamzrod/devicedata/internal/poller"
)

// Point errors.
var (
	ErrReadOnlyArea = errors.New("modbus: area is read-only")
	ErrNoScheduler  = errors.New("modbus: point has no scheduler")
)

// Scheduler drives observation. Modbus has no push mechanism, so an
// observed point is handed to a poller.
//
// Delivered tells the scheduler that v already reached the element, so
// polling the written value back does not notify observers twice.
type Scheduler interface {
	Watch(src poller.Source, changed devicedata.ChangeFunc) error
	Delivered(src poller.Source, v devicedata.Value)
}

// PointConfig addresses one element on a Modbus device.
type PointConfig struct {
	Name    string
	UnitID  uint8
	Address uint16
	Layout  Layout
}

// Point is the Modbus binding of a single element.
type Point struct {
	cfg   PointConfig
	tr    Transport
	sched Scheduler
}

// NewPoint binds cfg to a transport. sched may be nil if the element is
// never observed.
func NewPoint(cfg PointConfig, tr Transport, sched Scheduler) (*Point, error) {
	if tr == nil {
		return nil, errors.New("modbus: transport required")
	}
	if cfg.Layout.FC < 1 || cfg.Layout.FC > 4 {
		return nil, fmt.Errorf("modbus: point %q: unsupported fc %d", cfg.Name, cfg.Layout.FC)
	}
	return &Point{cfg: cfg, tr: tr, sched: sched}, nil
}

func (p *Point) Name() string { return p.cfg.Name }

// ReadNative reads the point's coils or registers and decodes them.
func (p *Point) ReadNative(ctx context.Context) (devicedata.Value, error) {
	if err := ctx.Err(); err != nil {
		return devicedata.Value{}, err
	}
	l := p.cfg.Layout
	data, err := p.tr.Read(p.cfg.UnitID, l.FC, p.cfg.Address, l.Quantity())
	if err != nil {
		return devicedata.Value{}, err
	}
	return Decode(l, data)
}

// WriteNative writes a coil (FC 1) or holding registers (FC 3).
func (p *Point) WriteNative(ctx context.Context, v devicedata.Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := p.cfg.Layout

	switch l.FC {
	case 1:
		on, err := v.Bool()
		if err != nil {
			return err
		}
		if err := p.tr.WriteCoil(p.cfg.UnitID, p.cfg.Address, on); err != nil {
			return err
		}
		p.delivered(v)
		return nil

	case 3:
		regs, err := EncodeRegisters(l, v)
		if err != nil {
			return err
		}
		if err := p.tr.WriteRegisters(p.cfg.UnitID, p.cfg.Address, regs); err != nil {
			return err
		}
		// Record what the device will read back; float32 storage rounds.
		if echo, err := Decode(l, packRegisters(regs)); err == nil {
			p.delivered(echo)
		}
		return nil
	}
	return fmt.Errorf("%w: fc %d", ErrReadOnlyArea, l.FC)
}

func (p *Point) delivered(v devicedata.Value) {
	if p.sched != nil {
		p.sched.Delivered(p, v)
	}
}

// ObserveNative hands the point to the scheduler.
func (p *Point) ObserveNative(ctx context.Context, changed devicedata.ChangeFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.sched == nil {
		return ErrNoScheduler
	}
	return p.sched.Watch(p, changed)
}

var (
	_ devicedata.Native = (*Point)(nil)
	_ poller.Source     = (*Point)(nil)
	_ Scheduler         = (*poller.Poller)(nil)
)
