// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tamzrod/devicedata/internal/devicedata"
)

// Config is the minimal runtime config the poller needs.
type Config struct {
	UnitID   string
	Interval time.Duration
}

// Poller turns a request/response protocol into change notifications:
// it reads every watched source per tick and pushes values that differ
// from the last one delivered.
type Poller struct {
	cfg Config
	log *slog.Logger

	// pollMu keeps cycles from overlapping.
	pollMu sync.Mutex

	mu      sync.Mutex
	targets []*target
}

// New creates a poller with immutable config.
func New(cfg Config, log *slog.Logger) (*Poller, error) {
	if cfg.UnitID == "" {
		return nil, errors.New("poller: unit id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		cfg: cfg,
		log: log.With(slog.String("unit", cfg.UnitID)),
	}, nil
}

// UnitID returns the unit this poller serves.
func (p *Poller) UnitID() string { return p.cfg.UnitID }

// Watch adds a source. changed is called from the polling goroutine.
func (p *Poller) Watch(src Source, changed devicedata.ChangeFunc) error {
	if src == nil || changed == nil {
		return errors.New("poller: source and change func required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.targets = append(p.targets, &target{src: src, changed: changed})
	p.log.Debug("watching source", slog.String("element", src.Name()))
	return nil
}

// Delivered records v as the last value seen for src, so a value that
// already reached the element through a write is not delivered again by
// the next cycle. Unknown sources are ignored.
func (p *Poller) Delivered(src Source, v devicedata.Value) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, t := range p.targets {
		if t.src == src {
			t.last = v
			t.seen = true
		}
	}
}

// Len returns the number of watched sources.
func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.targets)
}

// PollOnce performs exactly one poll cycle.
// A failing source does not stop the cycle; its last value is kept.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	res := PollResult{
		UnitID: p.cfg.UnitID,
		At:     time.Now(),
	}

	p.mu.Lock()
	targets := make([]*target, len(p.targets))
	copy(targets, p.targets)
	p.mu.Unlock()

	var errs []error

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		v, err := t.src.ReadNative(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("poller: %s: %w", t.src.Name(), err))
			continue
		}
		res.Reads++

		p.mu.Lock()
		same := t.seen && t.last.Equal(v)
		p.mu.Unlock()
		if same {
			continue
		}

		if err := t.changed(v); err != nil {
			errs = append(errs, fmt.Errorf("poller: %s: %w", t.src.Name(), err))
			continue
		}
		p.mu.Lock()
		t.last = v
		t.seen = true
		p.mu.Unlock()
		res.Changed++
	}

	res.Err = errors.Join(errs...)
	return res
}
