// Package serialport wraps go.bug.st/serial behind small interfaces so the
// sensor decoder and the light driver can be exercised without hardware.
package serialport

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with timeout capabilities.
// A Read that times out returns 0 bytes and a nil error.
type TimeoutSerialPorter interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
}

// InputFlusher is implemented by ports that can drop bytes already buffered
// by the driver. go.bug.st/serial ports implement it.
type InputFlusher interface {
	ResetInputBuffer() error
}

// Opener opens a serial port at path with the given options.
type Opener func(path string, opts PortOptions) (SerialPorter, error)
