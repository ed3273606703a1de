// internal/modbus/codec.go
package modbus

import (
	"errors"
	"fmt"
	"math"

	"github.com/tamzrod/devicedata/internal/devicedata"
)

// Codec errors.
var (
	ErrShortPayload    = errors.New("modbus: payload shorter than point")
	ErrOutOfRange      = errors.New("modbus: value out of register range")
	ErrUnsupportedKind = errors.New("modbus: kind not supported for area")
)

// Layout describes how one point is stored on the device.
// Registers are big-endian; 32-bit values use high word first.
type Layout struct {
	FC     uint8
	Kind   devicedata.Kind
	Words  uint16
	Signed bool
}

// Quantity is the number of coils or registers the point spans.
func (l Layout) Quantity() uint16 {
	if l.FC == 1 || l.FC == 2 {
		return 1
	}
	if l.Words == 0 {
		return 1
	}
	return l.Words
}

// Decode converts the raw data of a read into a value.
func Decode(l Layout, data []byte) (devicedata.Value, error) {
	switch l.FC {
	case 1, 2:
		if len(data) < 1 {
			return devicedata.Value{}, ErrShortPayload
		}
		if l.Kind != devicedata.KindBool {
			return devicedata.Value{}, fmt.Errorf("%w: %s on fc %d", ErrUnsupportedKind, l.Kind, l.FC)
		}
		return devicedata.BoolValue(unpackBits(data, 1)[0]), nil

	case 3, 4:
		qty := int(l.Quantity())
		if len(data) < 2*qty {
			return devicedata.Value{}, ErrShortPayload
		}
		regs := unpackRegisters(data[:2*qty])
		return decodeRegisters(l, regs)
	}
	return devicedata.Value{}, fmt.Errorf("modbus: unsupported fc %d", l.FC)
}

func decodeRegisters(l Layout, regs []uint16) (devicedata.Value, error) {
	var raw uint32
	switch len(regs) {
	case 1:
		raw = uint32(regs[0])
	case 2:
		raw = uint32(regs[0])<<16 | uint32(regs[1])
	default:
		return devicedata.Value{}, fmt.Errorf("modbus: unsupported word count %d", len(regs))
	}

	switch l.Kind {
	case devicedata.KindInteger:
		if !l.Signed {
			return devicedata.IntValue(int64(raw)), nil
		}
		if len(regs) == 1 {
			return devicedata.IntValue(int64(int16(raw))), nil
		}
		return devicedata.IntValue(int64(int32(raw))), nil

	case devicedata.KindBool:
		return devicedata.BoolValue(raw != 0), nil

	case devicedata.KindFloat:
		if len(regs) != 2 {
			return devicedata.Value{}, fmt.Errorf("%w: float needs 2 words", ErrUnsupportedKind)
		}
		return devicedata.FloatValue(float64(math.Float32frombits(raw))), nil
	}
	return devicedata.Value{}, fmt.Errorf("%w: %s on fc %d", ErrUnsupportedKind, l.Kind, l.FC)
}

// EncodeRegisters converts a value into the registers written for an FC 3 point.
func EncodeRegisters(l Layout, v devicedata.Value) ([]uint16, error) {
	words := l.Quantity()

	var raw uint32
	switch v.Kind() {
	case devicedata.KindInteger:
		i, _ := v.Int()
		lo, hi := intRange(words, l.Signed)
		if i < lo || i > hi {
			return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, i, lo, hi)
		}
		raw = uint32(i)

	case devicedata.KindBool:
		b, _ := v.Bool()
		if b {
			raw = 1
		}

	case devicedata.KindFloat:
		if words != 2 {
			return nil, fmt.Errorf("%w: float needs 2 words", ErrUnsupportedKind)
		}
		f, _ := v.Float()
		raw = math.Float32bits(float32(f))

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, v.Kind())
	}

	if words == 1 {
		return []uint16{uint16(raw)}, nil
	}
	return []uint16{uint16(raw >> 16), uint16(raw)}, nil
}

func intRange(words uint16, signed bool) (int64, int64) {
	switch {
	case words == 1 && signed:
		return math.MinInt16, math.MaxInt16
	case words == 1:
		return 0, math.MaxUint16
	case signed:
		return math.MinInt32, math.MaxInt32
	default:
		return 0, math.MaxUint32
	}
}

// ---- helpers (pure geometry) ----

func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		bitIdx := i % 8
		if byteIdx >= len(data) {
			out[i] = false
			continue
		}
		out[i] = (data[byteIdx]&(1<<bitIdx) != 0)
	}
	return out
}

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
