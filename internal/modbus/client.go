// internal/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Transport is the exact Modbus surface a Point uses.
type Transport interface {
	Read(unitID uint8, fc uint8, addr, qty uint16) ([]byte, error)
	WriteCoil(unitID uint8, addr uint16, on bool) error
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// EndpointClient is a single TCP connection to one Modbus endpoint.
// It serializes requests because it mutates SlaveId per request.
type EndpointClient struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &EndpointClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// Read issues one read request (FC 1-4) and returns the raw data bytes,
// byte count stripped.
func (c *EndpointClient) Read(unitID uint8, fc uint8, addr, qty uint16) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	switch fc {
	case 1:
		return c.client.ReadCoils(addr, qty)
	case 2:
		return c.client.ReadDiscreteInputs(addr, qty)
	case 3:
		return c.client.ReadHoldingRegisters(addr, qty)
	case 4:
		return c.client.ReadInputRegisters(addr, qty)
	}
	return nil, fmt.Errorf("modbus client: unsupported read fc %d", fc)
}

func (c *EndpointClient) WriteCoil(unitID uint8, addr uint16, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	var v uint16
	if on {
		v = 0xFF00
	}
	_, err := c.client.WriteSingleCoil(addr, v)
	return err
}

// WriteRegisters uses FC 6 for a single register and FC 16 otherwise.
func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	if len(regs) == 1 {
		_, err := c.client.WriteSingleRegister(addr, regs[0])
		return err
	}

	qty := uint16(len(regs))
	_, err := c.client.WriteMultipleRegisters(addr, qty, packRegisters(regs))
	return err
}

var _ Transport = (*EndpointClient)(nil)
