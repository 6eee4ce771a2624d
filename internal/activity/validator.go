package activity

import "fmt"

// Club rule: a counted run is 3-15 km at a 3-13 min/km pace.
const (
	MinPaceMinPerKm = 3.0
	MaxPaceMinPerKm = 13.0
	MinDistanceKm   = 3.0
	MaxDistanceKm   = 15.0
)

// ValidationResult classifies one activity against the club's pace and
// distance rules
type ValidationResult struct {
	IsValid      bool
	PaceMinPerKm float64
	DistanceKm   float64
	Reason       string
}

// Validate classifies an activity by distance (meters) and moving time
// (seconds). Deterministic and total: zero, negative, or missing inputs yield
// pace 0 and an invalid result rather than an error.
func Validate(distanceMeters, movingTimeSeconds float64) ValidationResult {
	distanceKm := 0.0
	if distanceMeters > 0 {
		distanceKm = distanceMeters / 1000
	}

	timeMinutes := 0.0
	if movingTimeSeconds > 0 {
		timeMinutes = movingTimeSeconds / 60
	}

	pace := 0.0
	if distanceKm > 0 && timeMinutes > 0 {
		pace = timeMinutes / distanceKm
	}

	validPace := pace >= MinPaceMinPerKm && pace <= MaxPaceMinPerKm
	validDistance := distanceKm >= MinDistanceKm && distanceKm <= MaxDistanceKm
	isValid := validPace && validDistance

	var reason string
	if isValid {
		reason = fmt.Sprintf("Valid activity: Pace=%.2f min/km, Distance=%.2fkm", pace, distanceKm)
	} else {
		reason = fmt.Sprintf("Invalid activity: Pace=%.2f min/km (valid: %g-%g), Distance=%.2fkm (valid: %g-%gkm)",
			pace, MinPaceMinPerKm, MaxPaceMinPerKm, distanceKm, MinDistanceKm, MaxDistanceKm)
	}

	return ValidationResult{
		IsValid:      isValid,
		PaceMinPerKm: pace,
		DistanceKm:   distanceKm,
		Reason:       reason,
	}
}
