// internal/config/validate_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to build an element quickly
func elem(name, kind string, fc uint8, addr uint16, access ...string) ElementConfig {
	return ElementConfig{
		Name:    name,
		Kind:    kind,
		Access:  access,
		FC:      fc,
		Address: addr,
	}
}

// helper to build a unit quickly
func unit(id string, elements ...ElementConfig) UnitConfig {
	return UnitConfig{
		ID:       id,
		Source:   SourceConfig{Endpoint: "127.0.0.1:502", UnitID: 1},
		Poll:     PollConfig{IntervalMs: 1000},
		Elements: elements,
	}
}

func cfgOf(units ...UnitConfig) *Config {
	return &Config{DeviceData: DeviceDataConfig{Units: units}}
}

// ---- tests ----

func TestValidate_Valid(t *testing.T) {
	cfg := cfgOf(
		unit("boiler",
			elem("temp", "integer", 3, 0, "read", "observe"),
			elem("setpoint", "float", 3, 1, "read", "write"),
			elem("pump", "bool", 1, 0, "read", "write", "observe"),
		),
	)
	assert.NoError(t, Validate(cfg))
}

func TestValidate_Units(t *testing.T) {
	assert.Error(t, Validate(nil))
	assert.Error(t, Validate(cfgOf()))
	assert.Error(t, Validate(cfgOf(unit(""))))
	assert.Error(t, Validate(cfgOf(unit("a"), unit("a"))))

	u := unit("a")
	u.Source.Endpoint = ""
	assert.Error(t, Validate(cfgOf(u)))
}

func TestValidate_Elements(t *testing.T) {
	tests := []struct {
		name string
		e    ElementConfig
	}{
		{"no name", elem("", "integer", 3, 0, "read")},
		{"bad kind", elem("x", "decimal", 3, 0, "read")},
		{"bad access", elem("x", "integer", 3, 0, "execute")},
		{"bad fc", elem("x", "integer", 5, 0, "read")},
		{"coil integer", elem("x", "integer", 1, 0, "read")},
		{"string register", elem("x", "string", 3, 0, "read")},
		{"write input register", elem("x", "integer", 4, 0, "write")},
		{"write discrete input", elem("x", "bool", 2, 0, "write")},
		{"float one word", ElementConfig{Name: "x", Kind: "float", FC: 3, Words: 1, Access: []string{"read"}}},
		{"three words", ElementConfig{Name: "x", Kind: "integer", FC: 3, Words: 3, Access: []string{"read"}}},
		{"past end", ElementConfig{Name: "x", Kind: "integer", FC: 3, Words: 2, Address: 0xFFFF, Access: []string{"read"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Validate(cfgOf(unit("u", tt.e))))
		})
	}
}

func TestValidate_DuplicateElement(t *testing.T) {
	cfg := cfgOf(unit("u",
		elem("a", "integer", 3, 0, "read"),
		elem("a", "integer", 3, 5, "read"),
	))
	assert.Error(t, Validate(cfg))
}

func TestValidate_ObserveNeedsInterval(t *testing.T) {
	u := unit("u", elem("a", "integer", 3, 0, "observe"))
	u.Poll.IntervalMs = 0
	assert.Error(t, Validate(cfgOf(u)))

	u = unit("u", elem("a", "integer", 3, 0, "read"))
	u.Poll.IntervalMs = 0
	assert.NoError(t, Validate(cfgOf(u)))
}

func TestValidate_StaleAfterShorterThanInterval(t *testing.T) {
	u := unit("u", elem("a", "integer", 3, 0, "observe"))

	u.Poll.StaleAfterMs = 500
	assert.Error(t, Validate(cfgOf(u)))

	u.Poll.StaleAfterMs = 1000
	assert.NoError(t, Validate(cfgOf(u)))

	u.Poll.StaleAfterMs = 0
	assert.NoError(t, Validate(cfgOf(u)))
}

func TestValidate_NoOverlapDifferentFC(t *testing.T) {
	cfg := cfgOf(unit("u",
		elem("a", "integer", 3, 0, "read"),
		elem("b", "integer", 4, 0, "read"),
	))
	assert.NoError(t, Validate(cfg))
}

func TestValidate_TouchingRangesAllowed(t *testing.T) {
	cfg := cfgOf(unit("u",
		elem("a", "float", 3, 0, "read"),   // 0–1
		elem("b", "integer", 3, 2, "read"), // 2
	))
	assert.NoError(t, Validate(cfg))
}

func TestValidate_OverlapDetected(t *testing.T) {
	cfg := cfgOf(unit("u",
		elem("a", "float", 3, 0, "read"),   // 0–1
		elem("b", "integer", 3, 1, "read"), // 1 → overlap
	))
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps")
}

func TestValidate_Mirrors(t *testing.T) {
	src := elem("src", "integer", 4, 0, "read", "observe")
	dst := elem("dst", "integer", 3, 0, "write")

	ok := src
	ok.MirrorTo = []string{"dst"}
	assert.NoError(t, Validate(cfgOf(unit("u", ok, dst))))

	unknown := src
	unknown.MirrorTo = []string{"nope"}
	assert.Error(t, Validate(cfgOf(unit("u", unknown, dst))))

	notWritable := src
	notWritable.MirrorTo = []string{"ro"}
	assert.Error(t, Validate(cfgOf(unit("u", notWritable, elem("ro", "integer", 3, 0, "read")))))

	notObservable := elem("src", "integer", 4, 0, "read")
	notObservable.MirrorTo = []string{"dst"}
	assert.Error(t, Validate(cfgOf(unit("u", notObservable, dst))))

	kind := src
	kind.MirrorTo = []string{"flag"}
	assert.Error(t, Validate(cfgOf(unit("u", kind, elem("flag", "bool", 1, 0, "write")))))
}

func TestValidate_MirrorCycle(t *testing.T) {
	a := elem("a", "integer", 3, 0, "write", "observe")
	a.MirrorTo = []string{"b"}
	b := elem("b", "integer", 3, 1, "write", "observe")
	b.MirrorTo = []string{"a"}

	err := Validate(cfgOf(unit("u", a, b)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devicedata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
devicedata:
  journal:
    path: /tmp/changes.cbor
  units:
    - id: boiler
      source:
        endpoint: 10.0.0.5:502
        unit_id: 3
      poll:
        interval_ms: 500
      elements:
        - name: temp
          kind: integer
          access: [read, observe]
          fc: 4
          address: 100
          signed: true
          mirror_to: [display]
        - name: display
          kind: integer
          access: [write]
          fc: 3
          address: 200
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "/tmp/changes.cbor", cfg.DeviceData.Journal.Path)
	require.Len(t, cfg.DeviceData.Units, 1)
	u := cfg.DeviceData.Units[0]
	assert.Equal(t, uint8(3), u.Source.UnitID)
	require.Len(t, u.Elements, 2)
	assert.Equal(t, []string{"read", "observe"}, u.Elements[0].Access)
	assert.True(t, u.Elements[0].Signed)
	assert.Equal(t, []string{"display"}, u.Elements[0].MirrorTo)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("devicedata:\n  unitz: []\n"))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	cfg := cfgOf(unit("u",
		elem("a", "integer", 3, 0, "read"),
		elem("b", "Float", 3, 1, "read"),
		ElementConfig{Name: "c", Kind: "integer", FC: 3, Address: 3, Words: 2, Description: "energy"},
	))
	require.NoError(t, Validate(cfg))
	Normalize(cfg)

	u := cfg.DeviceData.Units[0]
	assert.Equal(t, DefaultTimeoutMs, u.Source.TimeoutMs)
	assert.Equal(t, DefaultDescription, u.Elements[0].Description)
	assert.Equal(t, uint16(1), u.Elements[0].Words)
	assert.Equal(t, uint16(2), u.Elements[1].Words)
	assert.Equal(t, uint16(2), u.Elements[2].Words)
	assert.Equal(t, "energy", u.Elements[2].Description)

	Normalize(nil)
}
