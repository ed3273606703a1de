// internal/config/normalize.go
package config

import "strings"

// Defaults applied by Normalize.
const (
	DefaultDescription = "undefined"
	DefaultTimeoutMs   = 1000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	for ui := range cfg.DeviceData.Units {
		u := &cfg.DeviceData.Units[ui]

		if u.Source.TimeoutMs <= 0 {
			u.Source.TimeoutMs = DefaultTimeoutMs
		}

		for ei := range u.Elements {
			e := &u.Elements[ei]

			if strings.TrimSpace(e.Description) == "" {
				e.Description = DefaultDescription
			}

			// Register geometry: float always spans two words.
			if e.Words == 0 {
				e.Words = 1
				if strings.EqualFold(strings.TrimSpace(e.Kind), "float") {
					e.Words = 2
				}
			}
		}
	}
}
