// internal/writer/mirror.go
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tamzrod/devicedata/internal/devicedata"
)

// Target is the exact contract the mirror uses. *devicedata.Element satisfies it.
type Target interface {
	Name() string
	SetValue(ctx context.Context, v devicedata.Value) error
}

// Mirror replicates every value of a source element into its targets.
// Each target is written independently; one failure does not skip the rest.
type Mirror struct {
	unitID  string
	source  string
	targets []Target
	timeout time.Duration
	log     *slog.Logger
}

// New creates a mirror. timeout bounds each target write; zero means none.
func New(unitID, source string, targets []Target, timeout time.Duration, log *slog.Logger) (*Mirror, error) {
	if source == "" {
		return nil, errors.New("writer: mirror source required")
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("writer: mirror %q has no targets", source)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Mirror{
		unitID:  unitID,
		source:  source,
		targets: targets,
		timeout: timeout,
		log:     log,
	}, nil
}

// Source returns the mirrored element name.
func (m *Mirror) Source() string { return m.source }

// Write pushes v into every target.
func (m *Mirror) Write(ctx context.Context, v devicedata.Value) error {
	var errs []string

	for _, tgt := range m.targets {
		wctx, cancel := ctx, func() {}
		if m.timeout > 0 {
			wctx, cancel = context.WithTimeout(ctx, m.timeout)
		}
		err := tgt.SetValue(wctx, v)
		cancel()

		if err != nil {
			errs = append(errs, fmt.Sprintf(
				"writer: unit=%s %s -> %s err=%v",
				m.unitID, m.source, tgt.Name(), err,
			))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

// Observer adapts the mirror to an element observer. Failures are logged.
func (m *Mirror) Observer(ctx context.Context) devicedata.ObserverFunc {
	return func(v devicedata.Value) {
		if err := m.Write(ctx, v); err != nil {
			m.log.Warn("mirror write failed",
				slog.String("unit", m.unitID),
				slog.String("source", m.source),
				slog.String("value", v.String()),
				slog.Any("error", err),
			)
			return
		}
		m.log.Debug("mirrored value",
			slog.String("unit", m.unitID),
			slog.String("source", m.source),
			slog.String("value", v.String()),
		)
	}
}
