// Package sensor decodes TF-Luna style UART frames into distance samples and
// provides the simulated source used when no sensor is attached.
package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame layout: 0x59 0x59 Dist_L Dist_H Strength_L Strength_H Temp_L Temp_H Checksum
const (
	FrameHeader byte = 0x59
	FrameSize        = 9
	payloadSize      = FrameSize - 2

	// MaxDistanceInches is the upper bound of a plausible reading.
	MaxDistanceInches = 2000.0
	// StrengthFullScale is the signal strength mapped to confidence 1.0.
	StrengthFullScale = 500.0
)

// Per-attempt acquisition failures. They are retried inside the decoder's
// budget and never returned from Acquire.
var (
	ErrNoHeader   = errors.New("frame header not found")
	ErrShortFrame = errors.New("short frame")
	ErrBadHeader  = errors.New("bad frame header")
	ErrChecksum   = errors.New("frame checksum mismatch")
	ErrOutOfRange = errors.New("distance out of range")
)

// Frame is a raw, checksum-validated sensor frame in native units.
type Frame struct {
	Distance    uint16
	Strength    uint16
	Temperature uint16
}

// Checksum returns the low 8 bits of the sum of b.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// Encode renders f as a wire frame with a correct checksum.
func (f Frame) Encode() []byte {
	buf := make([]byte, FrameSize)
	buf[0], buf[1] = FrameHeader, FrameHeader
	binary.LittleEndian.PutUint16(buf[2:4], f.Distance)
	binary.LittleEndian.PutUint16(buf[4:6], f.Strength)
	binary.LittleEndian.PutUint16(buf[6:8], f.Temperature)
	buf[8] = Checksum(buf[:8])
	return buf
}

// ParseFrame validates a complete 9-byte frame and extracts its fields.
func ParseFrame(b []byte) (Frame, error) {
	if len(b) != FrameSize {
		return Frame{}, fmt.Errorf("%w: got %d bytes, want %d", ErrShortFrame, len(b), FrameSize)
	}
	if b[0] != FrameHeader || b[1] != FrameHeader {
		return Frame{}, fmt.Errorf("%w: 0x%02X 0x%02X", ErrBadHeader, b[0], b[1])
	}
	if want := Checksum(b[:8]); b[8] != want {
		return Frame{}, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrChecksum, b[8], want)
	}
	return Frame{
		Distance:    binary.LittleEndian.Uint16(b[2:4]),
		Strength:    binary.LittleEndian.Uint16(b[4:6]),
		Temperature: binary.LittleEndian.Uint16(b[6:8]),
	}, nil
}

// Sample converts the frame to inches and a strength-derived confidence,
// rejecting distances outside (0, MaxDistanceInches].
func (f Frame) Sample() (Sample, error) {
	d := DistanceInches(f.Distance)
	if d <= 0 || d > MaxDistanceInches {
		return Sample{}, fmt.Errorf("%w: %.2f in", ErrOutOfRange, d)
	}
	return Sample{Distance: d, Confidence: Confidence(f.Strength)}, nil
}

// DistanceInches converts a native distance reading to inches. The TF-Luna
// reports centimetres in its default output mode.
func DistanceInches(native uint16) float64 {
	return float64(native) * 10.0 / 25.4
}

// Confidence maps signal strength to [0, 1].
func Confidence(strength uint16) float64 {
	c := float64(strength) / StrengthFullScale
	if c > 1 {
		return 1
	}
	return c
}
