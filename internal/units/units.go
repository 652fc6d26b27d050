// Package units provides shared geodetic constants, wind unit conversions,
// and speed display units.
package units

import "math"

// EarthRadiusMeters is the equatorial radius used for degree/metre
// conversion. Strictly the advected layer sits above the surface, so this
// underestimates the radius by the field height; the error is well under the
// grid resolution.
const EarthRadiusMeters = 6378 * 1000

// MetersPerDegree is the ground length of one degree of arc at the equator.
const MetersPerDegree = 2 * math.Pi * EarthRadiusMeters / 360

// WindToDegreesPerSecond converts wind components from m/s into deg/s at the
// given latitude. U runs parallel to the equator, so its conversion carries
// a cos(lat) latitude scaling for meridian convergence; V (north-south) does
// not.
func WindToDegreesPerSecond(u, v, latDeg float64) (uDeg, vDeg float64) {
	uDeg = u / MetersPerDegree * math.Cos(latDeg*math.Pi/180)
	vDeg = v / MetersPerDegree
	return uDeg, vDeg
}

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

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
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Wind fields carry speeds in m/s (meters per second)
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.23694 // m/s to mph
	case KMPH, KPH:
		return speedMPS * 3.6 // m/s to km/h
	case MPS:
		return speedMPS // no conversion needed
	default:
		return speedMPS // default to m/s if unknown unit
	}
}
