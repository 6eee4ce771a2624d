package activity

import (
	"time"

	"runclub-strava-sync/internal/database"
	"runclub-strava-sync/internal/strava"
)

// Clamp maxima mirroring the fixed-precision column widths in storage.
const (
	maxDistance = 999999999999999 // NUMERIC(17,2)
	maxStandard = 999999999999    // NUMERIC(14,2): speed, elevation, watts, kilojoules, calories
	maxSmall    = 999999          // NUMERIC(8,2): cadence, heartrate

	// DECIMAL(12,8) bound. All real coordinates fit well inside it.
	maxCoord = 9999.99999999
)

const localTimeLayout = "2006-01-02 15:04:05"

// Normalize maps one Strava activity representation onto the persisted
// schema: numeric fields are clamped into storage bounds, local timestamps
// derived from the UTC start plus the activity's UTC offset, and the validity
// classification applied. Pure transform; no I/O.
func Normalize(raw *strava.Activity, conn *database.Connection, now time.Time) (*database.Activity, ValidationResult) {
	validation := Validate(floatOrZero(raw.Distance), float64(intOrZero(raw.MovingTime)))

	a := &database.Activity{
		UserID:           conn.UserID,
		StravaActivityID: raw.ID,

		Distance:             clampNumeric(raw.Distance, maxDistance),
		MovingTime:           raw.MovingTime,
		ElapsedTime:          raw.ElapsedTime,
		TotalElevationGain:   clampNumeric(raw.TotalElevationGain, maxStandard),
		AverageSpeed:         clampNumeric(raw.AverageSpeed, maxStandard),
		MaxSpeed:             clampNumeric(raw.MaxSpeed, maxStandard),
		AverageCadence:       clampNumeric(raw.AverageCadence, maxSmall),
		AverageWatts:         clampNumeric(raw.AverageWatts, maxStandard),
		WeightedAverageWatts: clampNumeric(raw.WeightedAverageWatts, maxStandard),
		Kilojoules:           clampNumeric(raw.Kilojoules, maxStandard),
		AverageHeartrate:     clampNumeric(raw.AverageHeartrate, maxSmall),
		MaxHeartrate:         clampNumeric(raw.MaxHeartrate, maxSmall),
		Calories:             clampNumeric(raw.Calories, maxStandard),

		UTCOffset: raw.UTCOffset,

		AchievementCount: raw.AchievementCount,
		KudosCount:       raw.KudosCount,
		CommentCount:     raw.CommentCount,
		AthleteCount:     raw.AthleteCount,
		PRCount:          raw.PRCount,

		Trainer:      raw.Trainer,
		Commute:      raw.Commute,
		Manual:       raw.Manual,
		Private:      raw.Private,
		Flagged:      raw.Flagged,
		HasHeartrate: raw.HasHeartrate,

		IsValid:  validation.IsValid,
		SyncedAt: now,
	}

	// The athlete id comes from the activity when present, else the connection
	athleteID := raw.Athlete.ID
	if athleteID == 0 {
		athleteID = conn.AthleteID
	}
	a.AthleteID = &athleteID

	if raw.Name != "" {
		a.Name = &raw.Name
	}
	if raw.SportType != "" {
		a.SportType = &raw.SportType
	}
	if raw.ActivityType != "" {
		a.ActivityType = &raw.ActivityType
	}
	if raw.Timezone != "" {
		a.Timezone = &raw.Timezone
	}

	a.StartLat, a.StartLng = clampLatLng(raw.StartLatLng)
	a.EndLat, a.EndLng = clampLatLng(raw.EndLatLng)

	if raw.StartDate != nil {
		startUTC := raw.StartDate.UTC()
		a.StartDate = &startUTC

		offsetSeconds := int64(floatOrZero(raw.UTCOffset))
		startLocal := startUTC.Add(time.Duration(offsetSeconds) * time.Second)
		startLocalStr := startLocal.Format(localTimeLayout)
		a.StartDateLocal = &startLocalStr

		// End times are derived from elapsed duration, falling back to moving
		duration := intOrZero(raw.ElapsedTime)
		if duration == 0 {
			duration = intOrZero(raw.MovingTime)
		}
		endUTC := startUTC.Add(time.Duration(duration) * time.Second)
		a.EndDate = &endUTC
		endLocalStr := startLocal.Add(time.Duration(duration) * time.Second).Format(localTimeLayout)
		a.EndDateLocal = &endLocalStr
	}

	return a, validation
}

// clampNumeric clamps a value into [0, max], preserving absence
func clampNumeric(v *float64, max float64) *float64 {
	if v == nil {
		return nil
	}
	clamped := *v
	if clamped < 0 {
		clamped = 0
	}
	if clamped > max {
		clamped = max
	}
	return &clamped
}

// clampLatLng clamps a [lat, lng] pair into the DECIMAL(12,8) bound,
// preserving sign. Missing or short pairs yield nils.
func clampLatLng(pair []float64) (*float64, *float64) {
	if len(pair) < 2 {
		return nil, nil
	}
	lat := clampCoord(pair[0])
	lng := clampCoord(pair[1])
	return &lat, &lng
}

func clampCoord(v float64) float64 {
	if v < -maxCoord {
		return -maxCoord
	}
	if v > maxCoord {
		return maxCoord
	}
	return v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func intOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
