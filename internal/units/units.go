// Package units provides shared constants and validation for distance units
package units

// Unit constants
const (
	Inches      = "in"
	Centimeters = "cm"
	Millimeters = "mm"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Inches, Centimeters, Millimeters}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "in, cm, mm"
}

// ConvertDistance converts a distance from inches to the target units.
// Calibration and samples are stored in inches.
func ConvertDistance(inches float64, targetUnits string) float64 {
	switch targetUnits {
	case Centimeters:
		return inches * 2.54
	case Millimeters:
		return inches * 25.4
	default:
		return inches // default to inches if unknown unit
	}
}
