// Package classifier turns a distance sample into a chute fill status.
package classifier

import (
	"math"

	"github.com/banshee-data/chute.report/internal/calibration"
	"github.com/banshee-data/chute.report/internal/sensor"
)

// Status is the qualitative fill state of the chute.
type Status string

const (
	Unknown        Status = "unknown"
	Empty          Status = "empty"
	NotFull        Status = "not_full"
	Full           Status = "full"
	NeedsAttention Status = "needs_attention"
)

// Classification floors.
const (
	MinConfidence = 0.1
	NotFullFloor  = 0.3
)

// Valid reports whether s is one of the known status names.
func (s Status) Valid() bool {
	switch s {
	case Unknown, Empty, NotFull, Full, NeedsAttention:
		return true
	}
	return false
}

// Fill returns the fill fraction in [0, 1] for distance d. A degenerate
// calibration (empty not beyond full) returns 1 at or inside full and 0
// otherwise.
func Fill(d float64, cal calibration.Data) float64 {
	span := cal.EmptyDistance - cal.FullDistance
	if span <= 0 {
		if d <= cal.FullDistance {
			return 1
		}
		return 0
	}
	f := 1 - (d-cal.FullDistance)/span
	return math.Max(0, math.Min(1, f))
}

// Classify maps a sample to a status without any history. Uncalibrated
// state, a missing sample or low confidence yield Unknown.
func Classify(s sensor.Sample, cal calibration.Data, fullThreshold float64) Status {
	if !cal.Calibrated || !s.Valid() || s.Confidence < MinConfidence {
		return Unknown
	}

	d := s.Distance
	if d <= cal.FullDistance {
		return Full
	}
	if d >= cal.EmptyDistance {
		return Empty
	}

	fill := Fill(d, cal)
	switch {
	case fill >= fullThreshold:
		return Full
	case fill >= NotFullFloor:
		return NotFull
	default:
		return Empty
	}
}

// Hysteresis counts consecutive Full results and escalates them once the
// run is long enough. The zero value is ready to use; it is not safe for
// concurrent use.
type Hysteresis struct {
	consecutive int
}

// Observe records a fresh classification and returns the status to publish.
// The counter keeps growing past threshold.
func (h *Hysteresis) Observe(s Status, threshold int) Status {
	if s != Full {
		h.consecutive = 0
		return s
	}
	h.consecutive++
	if h.consecutive >= threshold {
		return NeedsAttention
	}
	return Full
}

// Consecutive returns the current run of Full results.
func (h *Hysteresis) Consecutive() int { return h.consecutive }

// Reset zeroes the counter.
func (h *Hysteresis) Reset() { h.consecutive = 0 }
