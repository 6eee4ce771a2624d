package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"runclub-strava-sync/internal/activity"
	"runclub-strava-sync/internal/config"
	"runclub-strava-sync/internal/database"
	"runclub-strava-sync/internal/metrics"
	syncer "runclub-strava-sync/internal/sync"
)

// Webhook processing outcomes (metrics label values)
const (
	outcomeProcessed     = "processed"
	outcomeIgnored       = "ignored"
	outcomeNoConnection  = "no_connection"
	outcomeFetchFailed   = "fetch_failed"
	outcomeDatabaseError = "database_error"
)

// ActivitySyncer fetches and persists a single activity
type ActivitySyncer interface {
	SyncActivity(ctx context.Context, conn *database.Connection, activityID int64, source string) (*database.Activity, activity.ValidationResult, error)
}

// WebhookEvent is the push event Strava delivers
type WebhookEvent struct {
	ObjectType     string         `json:"object_type"`
	ObjectID       int64          `json:"object_id"`
	AspectType     string         `json:"aspect_type"`
	OwnerID        int64          `json:"owner_id"`
	SubscriptionID int64          `json:"subscription_id"`
	EventTime      int64          `json:"event_time"`
	Updates        map[string]any `json:"updates,omitempty"`
}

// WebhookHandler handles Strava webhook verification and event delivery
type WebhookHandler struct {
	connections   ConnectionStore
	notifications NotificationStore
	syncer        ActivitySyncer
	config        *config.Config
	logger        *slog.Logger
}

func NewWebhookHandler(connections ConnectionStore, notifications NotificationStore, s ActivitySyncer, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{
		connections:   connections,
		notifications: notifications,
		syncer:        s,
		config:        cfg,
		logger:        slog.Default().With("component", "webhook"),
	}
}

// HandleVerification answers the subscription challenge Strava sends on GET
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hubMode := q.Get("hub.mode")
	hubChallenge := q.Get("hub.challenge")
	hubVerifyToken := q.Get("hub.verify_token")

	h.logger.Info("webhook verification request", "hub.mode", hubMode)

	if hubMode != "subscribe" || hubVerifyToken != h.config.StravaVerifyToken {
		h.logger.Warn("webhook verification rejected", "hub.mode", hubMode)
		writeError(w, http.StatusForbidden, "verification failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"hub.challenge": hubChallenge})
}

// HandleEvent processes one pushed event inline. Strava retries deliveries
// that do not get a 2xx, so every processable event is acknowledged with 200
// even when our side of the work fails; only an unreadable body gets a 500.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read body")
		return
	}
	defer r.Body.Close()

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Error("invalid webhook body", "error", err)
		writeError(w, http.StatusInternalServerError, "invalid body")
		return
	}

	h.logger.Info("webhook event received",
		"object_type", event.ObjectType,
		"aspect_type", event.AspectType,
		"object_id", event.ObjectID,
		"owner_id", event.OwnerID,
	)

	outcome := h.processEvent(r.Context(), &event)
	metrics.WebhookEventsProcessedTotal.WithLabelValues(event.ObjectType, event.AspectType, outcome).Inc()

	writeJSON(w, http.StatusOK, map[string]any{"received": true, "outcome": outcome})
}

func (h *WebhookHandler) processEvent(ctx context.Context, event *WebhookEvent) string {
	// Only activity create/update events with both identifiers carry work.
	// Athlete events, activity deletions, and malformed events are
	// acknowledged and skipped.
	if event.ObjectType != "activity" || event.AspectType == "delete" || event.ObjectID == 0 || event.OwnerID == 0 {
		return outcomeIgnored
	}

	conn, err := h.connections.GetConnectionByAthleteID(event.OwnerID)
	if err != nil {
		h.logger.Error("connection lookup failed", "owner_id", event.OwnerID, "error", err)
		return outcomeDatabaseError
	}
	if conn == nil {
		h.logger.Info("no connection for athlete, skipping event", "owner_id", event.OwnerID)
		return outcomeNoConnection
	}

	stored, validation, err := h.syncer.SyncActivity(ctx, conn, event.ObjectID, metrics.SourceWebhook)
	if err != nil {
		var storeErr *syncer.StoreError
		if errors.As(err, &storeErr) {
			h.logger.Error("failed to store webhook activity", "activity_id", event.ObjectID, "error", err)
			return outcomeDatabaseError
		}
		h.logger.Error("failed to fetch webhook activity", "activity_id", event.ObjectID, "error", err)
		return outcomeFetchFailed
	}

	h.insertNotification(conn, stored, validation)
	return outcomeProcessed
}

// insertNotification records the ingestion for the member's notification
// feed. Best-effort: the activity is already stored.
func (h *WebhookHandler) insertNotification(conn *database.Connection, stored *database.Activity, validation activity.ValidationResult) {
	isValid := validation.IsValid
	n := &database.Notification{
		UserID:       conn.UserID,
		AthleteID:    &conn.AthleteID,
		ActivityID:   &stored.StravaActivityID,
		ActivityName: stored.Name,
		DistanceKm:   &validation.DistanceKm,
		PaceMinPerKm: &validation.PaceMinPerKm,
		IsValid:      &isValid,
	}

	if err := h.notifications.InsertNotification(n); err != nil {
		h.logger.Error("failed to insert notification", "user_id", conn.UserID, "error", err)
	}
}
