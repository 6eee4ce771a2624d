package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Activity is a storage-ready activity record
type Activity struct {
	UserID           string
	StravaActivityID int64
	AthleteID        *int64

	Name         *string
	SportType    *string
	ActivityType *string

	Distance             *float64
	MovingTime           *int64
	ElapsedTime          *int64
	TotalElevationGain   *float64
	AverageSpeed         *float64
	MaxSpeed             *float64
	AverageCadence       *float64
	AverageWatts         *float64
	WeightedAverageWatts *float64
	Kilojoules           *float64
	AverageHeartrate     *float64
	MaxHeartrate         *float64
	Calories             *float64

	StartDate      *time.Time
	StartDateLocal *string
	EndDate        *time.Time
	EndDateLocal   *string
	Timezone       *string
	UTCOffset      *float64

	StartLat *float64
	StartLng *float64
	EndLat   *float64
	EndLng   *float64

	AchievementCount *int64
	KudosCount       *int64
	CommentCount     *int64
	AthleteCount     *int64
	PRCount          *int64

	Trainer      *bool
	Commute      *bool
	Manual       *bool
	Private      *bool
	Flagged      *bool
	HasHeartrate *bool

	IsValid  bool
	SyncedAt time.Time
}

// UpsertActivity inserts or overwrites an activity keyed by (user_id, strava_activity_id)
func (db *DB) UpsertActivity(a *Activity) error {
	_, err := db.conn.Exec(`
		INSERT INTO strava_activities (
			user_id, strava_activity_id, athlete_id,
			name, sport_type, activity_type,
			distance, moving_time, elapsed_time,
			total_elevation_gain, average_speed, max_speed,
			average_cadence, average_watts, weighted_average_watts,
			kilojoules, average_heartrate, max_heartrate, calories,
			start_date, start_date_local, end_date, end_date_local,
			timezone, utc_offset,
			start_lat, start_lng, end_lat, end_lng,
			achievement_count, kudos_count, comment_count, athlete_count, pr_count,
			trainer, commute, manual, private, flagged, has_heartrate,
			is_valid, synced_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37, $38, $39, $40,
			$41, $42
		)
		ON CONFLICT (user_id, strava_activity_id) DO UPDATE SET
			athlete_id = EXCLUDED.athlete_id,
			name = EXCLUDED.name,
			sport_type = EXCLUDED.sport_type,
			activity_type = EXCLUDED.activity_type,
			distance = EXCLUDED.distance,
			moving_time = EXCLUDED.moving_time,
			elapsed_time = EXCLUDED.elapsed_time,
			total_elevation_gain = EXCLUDED.total_elevation_gain,
			average_speed = EXCLUDED.average_speed,
			max_speed = EXCLUDED.max_speed,
			average_cadence = EXCLUDED.average_cadence,
			average_watts = EXCLUDED.average_watts,
			weighted_average_watts = EXCLUDED.weighted_average_watts,
			kilojoules = EXCLUDED.kilojoules,
			average_heartrate = EXCLUDED.average_heartrate,
			max_heartrate = EXCLUDED.max_heartrate,
			calories = EXCLUDED.calories,
			start_date = EXCLUDED.start_date,
			start_date_local = EXCLUDED.start_date_local,
			end_date = EXCLUDED.end_date,
			end_date_local = EXCLUDED.end_date_local,
			timezone = EXCLUDED.timezone,
			utc_offset = EXCLUDED.utc_offset,
			start_lat = EXCLUDED.start_lat,
			start_lng = EXCLUDED.start_lng,
			end_lat = EXCLUDED.end_lat,
			end_lng = EXCLUDED.end_lng,
			achievement_count = EXCLUDED.achievement_count,
			kudos_count = EXCLUDED.kudos_count,
			comment_count = EXCLUDED.comment_count,
			athlete_count = EXCLUDED.athlete_count,
			pr_count = EXCLUDED.pr_count,
			trainer = EXCLUDED.trainer,
			commute = EXCLUDED.commute,
			manual = EXCLUDED.manual,
			private = EXCLUDED.private,
			flagged = EXCLUDED.flagged,
			has_heartrate = EXCLUDED.has_heartrate,
			is_valid = EXCLUDED.is_valid,
			synced_at = EXCLUDED.synced_at
	`,
		a.UserID, a.StravaActivityID, a.AthleteID,
		a.Name, a.SportType, a.ActivityType,
		a.Distance, a.MovingTime, a.ElapsedTime,
		a.TotalElevationGain, a.AverageSpeed, a.MaxSpeed,
		a.AverageCadence, a.AverageWatts, a.WeightedAverageWatts,
		a.Kilojoules, a.AverageHeartrate, a.MaxHeartrate, a.Calories,
		a.StartDate, a.StartDateLocal, a.EndDate, a.EndDateLocal,
		a.Timezone, a.UTCOffset,
		a.StartLat, a.StartLng, a.EndLat, a.EndLng,
		a.AchievementCount, a.KudosCount, a.CommentCount, a.AthleteCount, a.PRCount,
		a.Trainer, a.Commute, a.Manual, a.Private, a.Flagged, a.HasHeartrate,
		a.IsValid, a.SyncedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert activity %d: %w", a.StravaActivityID, err)
	}
	return nil
}

// GetActivity retrieves one activity by its natural key
func (db *DB) GetActivity(userID string, stravaActivityID int64) (*Activity, error) {
	var a Activity
	err := db.conn.QueryRow(`
		SELECT user_id, strava_activity_id, athlete_id,
		       name, sport_type, activity_type,
		       distance, moving_time, elapsed_time,
		       total_elevation_gain, average_speed, max_speed,
		       average_cadence, average_watts, weighted_average_watts,
		       kilojoules, average_heartrate, max_heartrate, calories,
		       start_date, start_date_local, end_date, end_date_local,
		       timezone, utc_offset,
		       start_lat, start_lng, end_lat, end_lng,
		       achievement_count, kudos_count, comment_count, athlete_count, pr_count,
		       trainer, commute, manual, private, flagged, has_heartrate,
		       is_valid, synced_at
		FROM strava_activities
		WHERE user_id = $1 AND strava_activity_id = $2
	`, userID, stravaActivityID).Scan(
		&a.UserID, &a.StravaActivityID, &a.AthleteID,
		&a.Name, &a.SportType, &a.ActivityType,
		&a.Distance, &a.MovingTime, &a.ElapsedTime,
		&a.TotalElevationGain, &a.AverageSpeed, &a.MaxSpeed,
		&a.AverageCadence, &a.AverageWatts, &a.WeightedAverageWatts,
		&a.Kilojoules, &a.AverageHeartrate, &a.MaxHeartrate, &a.Calories,
		&a.StartDate, &a.StartDateLocal, &a.EndDate, &a.EndDateLocal,
		&a.Timezone, &a.UTCOffset,
		&a.StartLat, &a.StartLng, &a.EndLat, &a.EndLng,
		&a.AchievementCount, &a.KudosCount, &a.CommentCount, &a.AthleteCount, &a.PRCount,
		&a.Trainer, &a.Commute, &a.Manual, &a.Private, &a.Flagged, &a.HasHeartrate,
		&a.IsValid, &a.SyncedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return &a, nil
}

// CountActivities returns the number of stored activities for a user
func (db *DB) CountActivities(userID string) (int64, error) {
	var count int64
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM strava_activities WHERE user_id = $1
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return count, nil
}
