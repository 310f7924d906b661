// Package calibration holds the empty/full reference distances for a chute,
// the angular window that bounds it, and the procedure that measures them.
package calibration

import (
	"math"

	"github.com/banshee-data/chute.report/internal/sensor"
)

// DefaultAngleWindow is the chute bearing range used before any snapshot is loaded.
var DefaultAngleWindow = [2]float64{0, 30}

// Data is the calibration record. Distances are in inches.
type Data struct {
	EmptyDistance float64    `json:"empty_distance"`
	FullDistance  float64    `json:"full_distance"`
	AngleWindow   [2]float64 `json:"chute_angle_range"`
	Calibrated    bool       `json:"calibrated"`
}

// Default returns an uncalibrated record with zero distances.
func Default() Data {
	return Data{AngleWindow: DefaultAngleWindow}
}

// Consistent reports whether the reference pair is ordered the usual way:
// a fuller chute reads closer, so empty > full > 0.
func (d Data) Consistent() bool {
	return d.FullDistance > 0 && d.EmptyDistance > d.FullDistance
}

// NormalizeAngle maps an angle in degrees into [0, 360).
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// InWindow reports whether angle, once normalized, lies inside the window.
// Both bounds are inclusive.
func (d Data) InWindow(angle float64) bool {
	a := NormalizeAngle(angle)
	return a >= d.AngleWindow[0] && a <= d.AngleWindow[1]
}

// FilterChute keeps the samples whose bearing falls inside the chute window.
func (d Data) FilterChute(samples []sensor.AngularSample) []sensor.AngularSample {
	out := make([]sensor.AngularSample, 0, len(samples))
	for _, s := range samples {
		if d.InWindow(s.Angle) {
			out = append(out, s)
		}
	}
	return out
}
