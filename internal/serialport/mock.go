package serialport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// ErrPortClosed is returned by TestableSerialPort once Close has been called.
var ErrPortClosed = errors.New("serial port closed")

// TestableSerialPort implements TimeoutSerialPorter and InputFlusher with
// configurable behaviour for testing. An empty read buffer behaves like a
// read timeout on real hardware: Read returns 0 bytes and a nil error.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadLatency adds a delay to each Read call
	ReadLatency time.Duration

	// ReadErrors are returned, in order, by the next Read calls
	ReadErrors []error

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	// TimeoutError is returned by SetReadTimeout if set
	TimeoutError error

	// DiscardOnFlush makes ResetInputBuffer drop any unread data
	DiscardOnFlush bool

	Closed      bool
	ReadCalls   int
	WriteCalls  int
	FlushCalls  int
	CloseCalls  int
	ReadTimeout time.Duration
}

// NewTestableSerialPort creates a new TestableSerialPort preloaded with data.
func NewTestableSerialPort(data ...[]byte) *TestableSerialPort {
	t := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	for _, d := range data {
		t.ReadBuffer.Write(d)
	}
	return t
}

// Read reads from the read buffer, optionally simulating latency and errors.
func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, ErrPortClosed
	}

	if len(t.ReadErrors) > 0 {
		err := t.ReadErrors[0]
		t.ReadErrors = t.ReadErrors[1:]
		return 0, err
	}

	if t.ReadLatency > 0 {
		t.mu.Unlock()
		time.Sleep(t.ReadLatency)
		t.mu.Lock()
	}

	if t.ReadBuffer.Len() == 0 {
		return 0, nil
	}
	return t.ReadBuffer.Read(p)
}

// Write writes to the write buffer, optionally simulating an error.
func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, ErrPortClosed
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	return t.WriteBuffer.Write(p)
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.CloseCalls++
	t.Closed = true
	return t.CloseError
}

// SetReadTimeout implements TimeoutSerialPorter.
func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.TimeoutError != nil {
		return t.TimeoutError
	}
	t.ReadTimeout = timeout
	return nil
}

// ResetInputBuffer implements InputFlusher.
func (t *TestableSerialPort) ResetInputBuffer() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.FlushCalls++
	if t.DiscardOnFlush {
		t.ReadBuffer.Reset()
	}
	return nil
}

// AddReadData appends data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
}

// AddReadError queues an error for a subsequent Read call.
func (t *TestableSerialPort) AddReadError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadErrors = append(t.ReadErrors, err)
}

// GetWrittenData returns a copy of all data written to the port.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return bytes.Clone(t.WriteBuffer.Bytes())
}

// IsClosed reports whether Close has been called.
func (t *TestableSerialPort) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.Closed
}

// NewMockOpener returns an Opener that hands out port for every path and
// records the paths it was asked to open. A non-nil err fails every Open.
func NewMockOpener(port SerialPorter, err error) (Opener, *[]string) {
	var mu sync.Mutex
	var paths []string
	return func(path string, _ PortOptions) (SerialPorter, error) {
		mu.Lock()
		paths = append(paths, path)
		mu.Unlock()
		if err != nil {
			return nil, err
		}
		return port, nil
	}, &paths
}
