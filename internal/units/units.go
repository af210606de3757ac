// Package units provides shared constants and conversions for the
// measurement units used in gait reports. Internally the pipeline
// computes distances in millimetres and speeds in metres per second;
// these helpers convert at the presentation boundary only.
package units

// Speed unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidSpeedUnits contains all valid speed unit values
var ValidSpeedUnits = []string{MPS, MPH, KMPH, KPH}

// IsValidSpeedUnit checks if the given unit is in the list of valid units
func IsValidSpeedUnit(unit string) bool {
	for _, validUnit := range ValidSpeedUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ValidSpeedUnitsString returns a comma-separated string of valid units for error messages
func ValidSpeedUnitsString() string {
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from metres per second to the target units.
// The pipeline computes walking speed in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMPS
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// MMToMeters converts millimetres to metres.
func MMToMeters(mm float64) float64 { return mm / 1000.0 }

// MMToCM converts millimetres to centimetres.
func MMToCM(mm float64) float64 { return mm / 10.0 }

// StepsPerSecToCadence converts a step rate in steps/second to the
// clinical cadence convention of steps per minute.
func StepsPerSecToCadence(stepsPerSec float64) float64 { return stepsPerSec * 60.0 }

// CadenceFromStepTime returns cadence (steps/min) from a mean step
// time in seconds. Returns 0 for non-positive step times; callers that
// require a valid cadence must check the step time first.
func CadenceFromStepTime(stepTimeSec float64) float64 {
	if stepTimeSec <= 0 {
		return 0
	}
	return 60.0 / stepTimeSec
}
