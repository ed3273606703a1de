package unit

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/tamzrod/devicedata/internal/config"
	"github.com/tamzrod/devicedata/internal/devicedata"
	"github.com/tamzrod/devicedata/internal/journal"
	"github.com/tamzrod/devicedata/internal/status"
)

// memSlave is a locked in-memory Modbus slave.
type memSlave struct {
	mu      sync.Mutex
	coils   map[uint16]bool
	regs    map[uint16]uint16
	readErr error
}

func newMemSlave() *memSlave {
	return &memSlave{coils: map[uint16]bool{}, regs: map[uint16]uint16{}}
}

func (s *memSlave) Read(_ uint8, fc uint8, addr, qty uint16) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return nil, s.readErr
	}
	if fc == 1 || fc == 2 {
		out := make([]byte, (qty+7)/8)
		for i := uint16(0); i < qty; i++ {
			if s.coils[addr+i] {
				out[i/8] |= 1 << (i % 8)
			}
		}
		return out, nil
	}
	out := make([]byte, 2*qty)
	for i := uint16(0); i < qty; i++ {
		binary.BigEndian.PutUint16(out[2*i:], s.regs[addr+i])
	}
	return out, nil
}

func (s *memSlave) WriteCoil(_ uint8, addr uint16, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coils[addr] = on
	return nil
}

func (s *memSlave) WriteRegisters(_ uint8, addr uint16, regs []uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range regs {
		s.regs[addr+uint16(i)] = r
	}
	return nil
}

func (s *memSlave) setReg(addr, v uint16) {
	s.mu.Lock()
	s.regs[addr] = v
	s.mu.Unlock()
}

func (s *memSlave) reg(addr uint16) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[addr]
}

func boilerConfig() cfg.UnitConfig {
	c := &cfg.Config{DeviceData: cfg.DeviceDataConfig{Units: []cfg.UnitConfig{{
		ID:     "boiler",
		Source: cfg.SourceConfig{Endpoint: "127.0.0.1:502", UnitID: 1},
		Poll:   cfg.PollConfig{IntervalMs: 100},
		Elements: []cfg.ElementConfig{
			{Name: "temp", Kind: "integer", Access: []string{"read", "observe"}, FC: 4, Address: 0, MirrorTo: []string{"display"}},
			{Name: "display", Kind: "integer", Access: []string{"read", "write"}, FC: 3, Address: 10},
			{Name: "setpoint", Kind: "float", Access: []string{"read", "write"}, FC: 3, Address: 20},
		},
	}}}}
	cfg.Normalize(c)
	return c.DeviceData.Units[0]
}

func TestBuild(t *testing.T) {
	u, err := Build(boilerConfig(), newMemSlave(), nil)
	require.NoError(t, err)

	assert.Equal(t, "boiler", u.ID())
	require.NotNil(t, u.poller)

	els := u.Elements()
	require.Len(t, els, 3)
	assert.Equal(t, "temp", els[0].Name())
	assert.Equal(t, "display", els[1].Name())
	assert.Equal(t, "undefined", els[0].Description())

	sp, ok := u.Element("setpoint")
	require.True(t, ok)
	assert.Equal(t, devicedata.KindFloat, sp.Kind())
	assert.True(t, sp.Writable())
	assert.False(t, sp.Observable())

	_, ok = u.Element("ghost")
	assert.False(t, ok)
}

func TestBuild_NoPollerWithoutInterval(t *testing.T) {
	uc := boilerConfig()
	uc.Poll.IntervalMs = 0
	uc.Elements = uc.Elements[1:]

	u, err := Build(uc, newMemSlave(), nil)
	require.NoError(t, err)
	assert.Nil(t, u.poller)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		u.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, status.HealthDisabled, u.Status().Health)
}

func TestObserve_PollMirrorJournal(t *testing.T) {
	slave := newMemSlave()
	u, err := Build(boilerConfig(), slave, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	j := journal.New(&buf, nil)

	ctx := context.Background()
	require.NoError(t, u.Observe(ctx, j))

	temp, _ := u.Element("temp")
	assert.True(t, temp.Observed())
	assert.Equal(t, 3, temp.ObserverCount(), "change log, journal and mirror")
	assert.Equal(t, 1, u.poller.Len())

	slave.setReg(0, 21)
	res := u.poller.PollOnce(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Changed)

	assert.True(t, temp.Value().Equal(devicedata.IntValue(21)))
	assert.Equal(t, uint16(21), slave.reg(10), "mirrored to display")

	display, _ := u.Element("display")
	assert.True(t, display.Value().Equal(devicedata.IntValue(21)))

	// unchanged value: no delivery
	res = u.poller.PollOnce(ctx)
	assert.Equal(t, 0, res.Changed)

	recs, err := journal.ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "boiler", recs[0].Unit)
	assert.Equal(t, "temp", recs[0].Element)
}

func TestObserve_EverySubscriberRetriesActivation(t *testing.T) {
	uc := boilerConfig()
	// No poll interval: the point has no scheduler and activation fails.
	uc.Poll.IntervalMs = 0

	u, err := Build(uc, newMemSlave(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = u.Observe(context.Background(), journal.New(&buf, nil))
	require.Error(t, err)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	assert.Len(t, joined.Unwrap(), 3, "change log, journal and mirror each attempted activation")

	temp, _ := u.Element("temp")
	assert.False(t, temp.Observed())
	assert.Zero(t, temp.ObserverCount())
}

func TestRefresh(t *testing.T) {
	slave := newMemSlave()
	slave.setReg(10, 7)
	u, err := Build(boilerConfig(), slave, nil)
	require.NoError(t, err)

	require.NoError(t, u.Refresh(context.Background()))

	display, _ := u.Element("display")
	assert.True(t, display.Value().Equal(devicedata.IntValue(7)))

	slave.mu.Lock()
	slave.readErr = errors.New("link down")
	slave.mu.Unlock()
	assert.Error(t, u.Refresh(context.Background()))
}

func TestRun_TracksHealth(t *testing.T) {
	slave := newMemSlave()
	slave.readErr = errors.New("link down")

	u, err := Build(boilerConfig(), slave, nil)
	require.NoError(t, err)
	require.NoError(t, u.Observe(context.Background(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go u.Run(ctx)

	require.Eventually(t, func() bool {
		return u.Status().Health == status.HealthError
	}, 2*time.Second, 20*time.Millisecond)

	slave.mu.Lock()
	slave.readErr = nil
	slave.mu.Unlock()

	require.Eventually(t, func() bool {
		return u.Status().Health == status.HealthOK
	}, 2*time.Second, 20*time.Millisecond)
}
