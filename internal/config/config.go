// internal/config/config.go
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DeviceData DeviceDataConfig `yaml:"devicedata"`
}

type DeviceDataConfig struct {
	Journal JournalConfig `yaml:"journal"`
	Units   []UnitConfig  `yaml:"units"`
}

// ---- JOURNAL ----

type JournalConfig struct {
	Path string `yaml:"path"` // empty disables the journal
}

// ---- UNIT ----

type UnitConfig struct {
	ID       string          `yaml:"id"`
	Source   SourceConfig    `yaml:"source"`
	Poll     PollConfig      `yaml:"poll"`
	Elements []ElementConfig `yaml:"elements"`
}

// ---- SOURCE ----

type SourceConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- ELEMENT ----

type ElementConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Kind        string   `yaml:"kind"`   // integer | bool | float
	Access      []string `yaml:"access"` // read | write | observe

	// Modbus geometry
	FC      uint8  `yaml:"fc"`
	Address uint16 `yaml:"address"`
	Words   uint16 `yaml:"words"` // 1 or 2; float needs 2
	Signed  bool   `yaml:"signed"`

	// MirrorTo names elements of the same unit that receive every new value.
	MirrorTo []string `yaml:"mirror_to"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs   int `yaml:"interval_ms"`
	StaleAfterMs int `yaml:"stale_after_ms"` // 0 disables staleness
}

// Load reads and decodes a YAML config file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML config bytes. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
