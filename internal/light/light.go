// Package light drives the USB tower light that signals chute status.
package light

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/chute.report/internal/classifier"
	"github.com/banshee-data/chute.report/internal/serialport"
)

// Single-byte tower light commands.
const (
	RedOn     byte = 0x11
	YellowOn  byte = 0x12
	GreenOn   byte = 0x14
	RedOff    byte = 0x21
	YellowOff byte = 0x22
	GreenOff  byte = 0x24
	BuzzerOff byte = 0x28
)

// Light shows a colour. Implementations must be safe for concurrent use.
type Light interface {
	SetColor(c classifier.Color) error
	Close() error
}

var allOff = []byte{RedOff, YellowOff, GreenOff}

// Commands returns the byte sequence that displays c. Unknown colours turn
// every lamp off. The tower has no blue lamp so blue shows as yellow.
func Commands(c classifier.Color) []byte {
	switch c {
	case classifier.Red:
		return []byte{YellowOff, GreenOff, RedOn}
	case classifier.Green:
		return []byte{RedOff, YellowOff, GreenOn}
	case classifier.Yellow, classifier.Blue:
		return []byte{RedOff, GreenOff, YellowOn}
	case classifier.White:
		return []byte{RedOn, YellowOn, GreenOn}
	default:
		return append([]byte(nil), allOff...)
	}
}

// Tower writes commands to an Adafruit-style USB tower light.
type Tower struct {
	mu     sync.Mutex
	port   serialport.SerialPorter
	closed bool
}

// NewTower takes ownership of port, silences the buzzer and turns all lamps off.
func NewTower(port serialport.SerialPorter) (*Tower, error) {
	t := &Tower{port: port}
	if err := t.write(append([]byte{BuzzerOff}, allOff...)); err != nil {
		return nil, fmt.Errorf("initialise tower light: %w", err)
	}
	return t, nil
}

// SetColor shows c.
func (t *Tower) SetColor(c classifier.Color) error {
	return t.write(Commands(c))
}

// Close turns every lamp off and closes the port. Later calls are no-ops.
func (t *Tower) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	offErr := t.writeLocked(allOff)
	return errors.Join(offErr, t.port.Close())
}

func (t *Tower) write(cmds []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return serialport.ErrPortClosed
	}
	return t.writeLocked(cmds)
}

// writeLocked sends one byte per write, as the tower expects discrete commands.
func (t *Tower) writeLocked(cmds []byte) error {
	for _, b := range cmds {
		if _, err := t.port.Write([]byte{b}); err != nil {
			return fmt.Errorf("write light command 0x%02x: %w", b, err)
		}
	}
	return nil
}

// Disabled is the Light used when no tower is attached.
type Disabled struct{}

func (Disabled) SetColor(classifier.Color) error { return nil }
func (Disabled) Close() error                    { return nil }
