// Package journal records element value changes as a stream of CBOR records.
//
// A journal is attached to elements as an ordinary observer, so it sees
// exactly what every other subscriber sees: polled changes, reads and the
// element's own writes.
package journal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/tamzrod/devicedata/internal/devicedata"
)

// encMode is the CBOR encoder mode for journal records.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for journal records.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create journal CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create journal CBOR decoder mode: %v", err))
	}
}

// Record is one observed value change.
type Record struct {
	ID      uuid.UUID        `cbor:"1,keyasint"`
	At      time.Time        `cbor:"2,keyasint"`
	Unit    string           `cbor:"3,keyasint"`
	Element string           `cbor:"4,keyasint"`
	Value   devicedata.Value `cbor:"5,keyasint"`
}

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("journal: closed")

// Journal appends records to a writer.
// It is safe for concurrent use from multiple goroutines.
type Journal struct {
	mu      sync.Mutex
	closer  io.Closer
	encoder *cbor.Encoder
	closed  bool
	log     *slog.Logger

	now func() time.Time
}

// New creates a journal writing to w. If w is an io.Closer, Close closes it.
func New(w io.Writer, log *slog.Logger) *Journal {
	if log == nil {
		log = slog.Default()
	}
	j := &Journal{
		encoder: encMode.NewEncoder(w),
		log:     log,
		now:     time.Now,
	}
	if c, ok := w.(io.Closer); ok {
		j.closer = c
	}
	return j
}

// Open creates a journal appending to the file at path. The file is
// created with permissions 0644 if it doesn't exist.
func Open(path string, log *slog.Logger) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return New(f, log), nil
}

// Append writes one record and returns it.
func (j *Journal) Append(unit, element string, v devicedata.Value) (Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return Record{}, ErrClosed
	}

	rec := Record{
		ID:      uuid.New(),
		At:      j.now(),
		Unit:    unit,
		Element: element,
		Value:   v,
	}
	if err := j.encoder.Encode(rec); err != nil {
		return Record{}, fmt.Errorf("journal: %w", err)
	}
	return rec, nil
}

// Observer returns an observer that journals every value of one element.
// Failures are logged; notification fan-out is never interrupted.
func (j *Journal) Observer(unit, element string) devicedata.ObserverFunc {
	return func(v devicedata.Value) {
		if _, err := j.Append(unit, element, v); err != nil {
			j.log.Warn("journal append failed",
				slog.String("unit", unit),
				slog.String("element", element),
				slog.Any("error", err),
			)
		}
	}
}

// Close closes the underlying writer if it is closable.
// It is safe to call Close multiple times.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// ReadAll decodes every record from r.
func ReadAll(r io.Reader) ([]Record, error) {
	dec := decMode.NewDecoder(r)

	var out []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("journal: record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}
