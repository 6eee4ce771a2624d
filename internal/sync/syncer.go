package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"runclub-strava-sync/internal/activity"
	"runclub-strava-sync/internal/database"
	"runclub-strava-sync/internal/metrics"
	"runclub-strava-sync/internal/strava"
)

// maxReportedErrors caps how many per-activity failures a sync result carries
const maxReportedErrors = 5

// StoreError marks a failure that happened while persisting an activity, as
// opposed to fetching it
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string { return e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

// ActivityStore persists normalized activities
type ActivityStore interface {
	UpsertActivity(a *database.Activity) error
}

// Result summarizes one sync pass
type Result struct {
	Synced int      `json:"synced"`
	Total  int      `json:"total"`
	Errors []string `json:"errors,omitempty"`
}

// Syncer pulls a member's activities from Strava and persists them
type Syncer struct {
	client    *strava.Client
	store     ActivityStore
	refresher *Refresher
	logger    *slog.Logger
}

func New(client *strava.Client, store ActivityStore, refresher *Refresher) *Syncer {
	return &Syncer{
		client:    client,
		store:     store,
		refresher: refresher,
		logger:    slog.Default().With("component", "syncer"),
	}
}

// Sync fetches all of conn's activities within [after, before), both epoch
// seconds, and upserts each one. Listing failures abort the pass; individual
// upsert failures are recorded and skipped.
func (s *Syncer) Sync(ctx context.Context, conn *database.Connection, after, before int64, source string) (*Result, error) {
	conn = s.refresher.EnsureFreshToken(ctx, conn, time.Now())

	result := &Result{}

	for page := 1; ; page++ {
		activities, err := s.client.ListActivities(ctx, conn.AccessToken, page, after, before)
		if err != nil {
			return nil, fmt.Errorf("failed to list activities (page %d): %w", page, err)
		}

		result.Total += len(activities)
		for _, raw := range activities {
			s.ingest(raw, conn, source, result)
		}

		if len(activities) < strava.PerPage {
			break
		}
		// Defensive stop: a page whose last activity already reaches the upper
		// bound means the API has nothing further to give us.
		last := activities[len(activities)-1]
		if last.StartDate != nil && last.StartDate.Unix() >= before {
			break
		}
	}

	metrics.SyncActivitiesCount.Observe(float64(result.Total))
	s.logger.Info("sync_complete",
		"user_id", conn.UserID,
		"total", result.Total,
		"synced", result.Synced,
		"errors", len(result.Errors),
	)

	return result, nil
}

// SyncActivity fetches and persists one activity by id. Used by the webhook
// path, where the event names a single activity.
func (s *Syncer) SyncActivity(ctx context.Context, conn *database.Connection, activityID int64, source string) (*database.Activity, activity.ValidationResult, error) {
	conn = s.refresher.EnsureFreshToken(ctx, conn, time.Now())

	raw, err := s.client.GetActivity(ctx, conn.AccessToken, activityID)
	if err != nil {
		return nil, activity.ValidationResult{}, fmt.Errorf("failed to fetch activity %d: %w", activityID, err)
	}

	normalized, validation := activity.Normalize(raw, conn, time.Now())
	if err := s.store.UpsertActivity(normalized); err != nil {
		metrics.ActivitiesIngestedTotal.WithLabelValues(source, metrics.ResultFailure).Inc()
		return nil, validation, &StoreError{Err: fmt.Errorf("failed to store activity %d: %w", activityID, err)}
	}

	metrics.ActivitiesIngestedTotal.WithLabelValues(source, metrics.ResultSuccess).Inc()
	metrics.ActivitiesValidTotal.WithLabelValues(strconv.FormatBool(normalized.IsValid)).Inc()
	return normalized, validation, nil
}

func (s *Syncer) ingest(raw *strava.Activity, conn *database.Connection, source string, result *Result) {
	normalized, _ := activity.Normalize(raw, conn, time.Now())

	if err := s.store.UpsertActivity(normalized); err != nil {
		metrics.ActivitiesIngestedTotal.WithLabelValues(source, metrics.ResultFailure).Inc()
		s.logger.Error("failed to store activity",
			"user_id", conn.UserID, "activity_id", raw.ID, "error", err)
		if len(result.Errors) < maxReportedErrors {
			msg := fmt.Sprintf("activity %d: %v", raw.ID, err)
			if diag := describeOutOfBounds(raw); diag != "" {
				msg += " (" + diag + ")"
			}
			result.Errors = append(result.Errors, msg)
		}
		return
	}

	metrics.ActivitiesIngestedTotal.WithLabelValues(source, metrics.ResultSuccess).Inc()
	metrics.ActivitiesValidTotal.WithLabelValues(strconv.FormatBool(normalized.IsValid)).Inc()
	result.Synced++
}

// describeOutOfBounds names suspiciously large raw fields, which is the usual
// culprit when a write is rejected
func describeOutOfBounds(raw *strava.Activity) string {
	var fields []string
	check := func(name string, v *float64, max float64) {
		if v != nil && (*v > max || *v < 0) {
			fields = append(fields, fmt.Sprintf("%s=%g", name, *v))
		}
	}

	check("distance", raw.Distance, 999999999999999)
	check("total_elevation_gain", raw.TotalElevationGain, 999999999999)
	check("average_speed", raw.AverageSpeed, 999999999999)
	check("max_speed", raw.MaxSpeed, 999999999999)
	check("average_watts", raw.AverageWatts, 999999999999)
	check("kilojoules", raw.Kilojoules, 999999999999)
	check("calories", raw.Calories, 999999999999)
	check("average_cadence", raw.AverageCadence, 999999)
	check("average_heartrate", raw.AverageHeartrate, 999999)
	check("max_heartrate", raw.MaxHeartrate, 999999)

	if len(fields) == 0 {
		return ""
	}
	return "out of bounds: " + strings.Join(fields, ", ")
}
