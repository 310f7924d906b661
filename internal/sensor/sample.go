package sensor

import "context"

// Sample is a single distance reading in inches with a confidence in [0, 1].
// The zero Sample is the "no sample" sentinel: callers treat Distance <= 0 as
// absence of data.
type Sample struct {
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// Valid reports whether s carries a real reading.
func (s Sample) Valid() bool {
	return s.Distance > 0
}

// AngularSample is a reading with a bearing, produced by wider-field sensors.
type AngularSample struct {
	Angle      float64 `json:"angle"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// Source produces samples. Acquire returns the zero Sample with a nil error
// when nothing could be read within its retry budget, and a non-nil error
// only for failures that retrying cannot fix.
type Source interface {
	Acquire(ctx context.Context) (Sample, error)
	// Simulated reports whether samples are synthetic rather than read
	// from a connected device.
	Simulated() bool
	Close() error
}

// Sweeper is implemented by sources that report a bearing per reading.
type Sweeper interface {
	Sweep(ctx context.Context) ([]AngularSample, error)
}
