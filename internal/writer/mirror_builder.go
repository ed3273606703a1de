// internal/writer/mirror_builder.go
package writer

import (
	"fmt"
	"log/slog"
	"time"

	cfg "github.com/tamzrod/devicedata/internal/config"
	"github.com/tamzrod/devicedata/internal/devicedata"
)

// BuildMirrors creates one mirror per element that declares mirror_to.
// Assumes config has already passed validation.
func BuildMirrors(u cfg.UnitConfig, elements map[string]*devicedata.Element, log *slog.Logger) ([]*Mirror, error) {
	timeout := time.Duration(u.Source.TimeoutMs) * time.Millisecond

	var out []*Mirror
	for _, ec := range u.Elements {
		if len(ec.MirrorTo) == 0 {
			continue
		}

		targets := make([]Target, 0, len(ec.MirrorTo))
		for _, name := range ec.MirrorTo {
			e, ok := elements[name]
			if !ok {
				return nil, fmt.Errorf("writer: unit %q: mirror target %q not built", u.ID, name)
			}
			targets = append(targets, e)
		}

		m, err := New(u.ID, ec.Name, targets, timeout, log)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
