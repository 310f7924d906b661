package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/chute.report/internal/monitoring"
	"github.com/banshee-data/chute.report/internal/serialport"
	"github.com/banshee-data/chute.report/internal/timeutil"
)

// Decoder limits.
const (
	DefaultAttempts     = 5
	DefaultHeaderSearch = 10
	DefaultBudget       = 2 * time.Second
)

var errBudgetExhausted = errors.New("acquisition budget exhausted")

// Device decodes samples from a sensor attached to a serial port. It is not
// safe for concurrent use; the owner serialises access to the port.
type Device struct {
	port serialport.SerialPorter

	// Attempts is the number of frame reads tried per Acquire.
	Attempts int
	// HeaderSearch bounds the byte pairs inspected while looking for a header.
	HeaderSearch int
	// Budget bounds the wall time of a single Acquire.
	Budget time.Duration
	Clock  timeutil.Clock

	deadline time.Time
}

// NewDevice wraps an open port with the default decoder limits.
func NewDevice(port serialport.SerialPorter) *Device {
	return &Device{
		port:         port,
		Attempts:     DefaultAttempts,
		HeaderSearch: DefaultHeaderSearch,
		Budget:       DefaultBudget,
		Clock:        timeutil.RealClock{},
	}
}

// Simulated is always false for a Device.
func (d *Device) Simulated() bool { return false }

// Close closes the underlying port.
func (d *Device) Close() error { return d.port.Close() }

// Acquire reads up to Attempts frames and returns the first valid sample.
// Bad headers, short reads, checksum mismatches and implausible distances
// are retried, as are transient I/O errors. When the attempts or the time
// budget run out, the zero Sample is returned with a nil error.
func (d *Device) Acquire(ctx context.Context) (Sample, error) {
	d.deadline = d.Clock.Now().Add(d.Budget)

	for attempt := 1; attempt <= d.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Sample{}, err
		}

		s, err := d.readSample()
		switch {
		case err == nil:
			return s, nil
		case errors.Is(err, errBudgetExhausted):
			monitoring.Logf("sensor: gave up after %d attempts: %v", attempt, err)
			return Sample{}, nil
		case isAttemptFailure(err):
			monitoring.Logf("sensor: attempt %d: %v", attempt, err)
		case IsTransient(err):
			monitoring.Logf("sensor: attempt %d: retrying after transient error: %v", attempt, err)
		default:
			return Sample{}, &AcquisitionError{Attempt: attempt, Err: err}
		}
	}
	return Sample{}, nil
}

func (d *Device) readSample() (Sample, error) {
	if f, ok := d.port.(serialport.InputFlusher); ok {
		if err := f.ResetInputBuffer(); err != nil {
			return Sample{}, fmt.Errorf("flush input: %w", err)
		}
	}

	if err := d.findHeader(); err != nil {
		return Sample{}, err
	}

	frame := make([]byte, FrameSize)
	frame[0], frame[1] = FrameHeader, FrameHeader
	if err := d.readFull(frame[2:]); err != nil {
		return Sample{}, err
	}

	f, err := ParseFrame(frame)
	if err != nil {
		return Sample{}, err
	}
	return f.Sample()
}

// findHeader consumes bytes until two consecutive header bytes are read,
// inspecting at most HeaderSearch candidate pairs.
func (d *Device) findHeader() error {
	for i := 0; i < d.HeaderSearch; i++ {
		b1, ok, err := d.readByte()
		if err != nil {
			return err
		}
		if !ok || b1 != FrameHeader {
			continue
		}
		b2, ok, err := d.readByte()
		if err != nil {
			return err
		}
		if ok && b2 == FrameHeader {
			return nil
		}
	}
	return ErrNoHeader
}

// readByte returns ok=false when the port read timed out.
func (d *Device) readByte() (byte, bool, error) {
	var b [1]byte
	n, err := d.read(b[:])
	if err != nil || n == 0 {
		return 0, false, err
	}
	return b[0], true, nil
}

func (d *Device) readFull(buf []byte) error {
	got := 0
	for got < len(buf) {
		n, err := d.read(buf[got:])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: got %d of %d payload bytes", ErrShortFrame, got, len(buf))
		}
		got += n
	}
	return nil
}

func (d *Device) read(buf []byte) (int, error) {
	if d.Clock.Now().After(d.deadline) {
		return 0, errBudgetExhausted
	}
	return d.port.Read(buf)
}
