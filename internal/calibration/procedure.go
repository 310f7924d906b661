package calibration

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/chute.report/internal/sensor"
)

// DefaultPasses is the number of forced reads per calibration.
const DefaultPasses = 5

// ErrNoReadings is returned when a calibration pass collected nothing usable.
var ErrNoReadings = errors.New("calibration: no valid readings")

// AcquireFunc performs one forced read.
type AcquireFunc func(ctx context.Context) (sensor.Sample, error)

// Result summarises a calibration pass.
type Result struct {
	Mean  float64 `json:"mean"`
	Valid int     `json:"valid"`
	Total int     `json:"total"`
}

// Collect performs n reads and averages the ones that produced a distance.
// A "no sample" read counts as invalid. A read error ends the pass: the
// sensor already retries what can be retried, so the pair of references
// would otherwise mix readings from either side of a fault.
func Collect(ctx context.Context, acquire AcquireFunc, n int) (Result, error) {
	if n <= 0 {
		n = DefaultPasses
	}

	readings := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		s, err := acquire(ctx)
		if err != nil {
			return Result{Valid: len(readings), Total: i + 1}, fmt.Errorf("calibration read %d of %d: %w", i+1, n, err)
		}
		if s.Valid() {
			readings = append(readings, s.Distance)
		}
	}

	if len(readings) == 0 {
		return Result{Total: n}, ErrNoReadings
	}
	return Result{Mean: stat.Mean(readings, nil), Valid: len(readings), Total: n}, nil
}

// MeanInWindow averages the distances of the samples inside the chute window.
// ok is false when no sample qualified.
func MeanInWindow(d Data, samples []sensor.AngularSample) (sensor.Sample, bool) {
	in := d.FilterChute(samples)
	if len(in) == 0 {
		return sensor.Sample{}, false
	}
	dist := make([]float64, 0, len(in))
	conf := make([]float64, 0, len(in))
	for _, s := range in {
		if s.Distance > 0 {
			dist = append(dist, s.Distance)
			conf = append(conf, s.Confidence)
		}
	}
	if len(dist) == 0 {
		return sensor.Sample{}, false
	}
	return sensor.Sample{Distance: stat.Mean(dist, nil), Confidence: stat.Mean(conf, nil)}, true
}
