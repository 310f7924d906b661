package serialport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Open opens the serial port at path and applies the configured read timeout
// so that reads on a silent line return instead of blocking forever.
func Open(path string, opts PortOptions) (SerialPorter, error) {
	normalized, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	mode, err := normalized.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return withReadTimeout(port, path, normalized.ReadTimeout)
}

// withReadTimeout bounds reads on port so a silent line returns instead of
// blocking forever. The port is closed if the timeout cannot be applied.
func withReadTimeout(port TimeoutSerialPorter, path string, timeout time.Duration) (SerialPorter, error) {
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}
	return port, nil
}

// ListPorts returns the serial ports currently visible to the OS.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	if ports == nil {
		ports = []string{}
	}
	return ports, nil
}
