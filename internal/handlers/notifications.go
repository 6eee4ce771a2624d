package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"runclub-strava-sync/internal/auth"
	"runclub-strava-sync/internal/database"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// NotificationsHandler serves the member's activity notification feed
type NotificationsHandler struct {
	identity      *auth.IdentityResolver
	notifications NotificationStore
	logger        *slog.Logger
}

func NewNotificationsHandler(identity *auth.IdentityResolver, notifications NotificationStore) *NotificationsHandler {
	return &NotificationsHandler{
		identity:      identity,
		notifications: notifications,
		logger:        slog.Default().With("component", "notifications_handler"),
	}
}

// notificationItem is the JSON shape of one feed entry
type notificationItem struct {
	ID           int64      `json:"id"`
	AthleteID    *int64     `json:"athleteId,omitempty"`
	ActivityID   *int64     `json:"activityId,omitempty"`
	ActivityName *string    `json:"activityName,omitempty"`
	DistanceKm   *float64   `json:"distanceKm,omitempty"`
	PaceMinPerKm *float64   `json:"paceMinPerKm,omitempty"`
	IsValid      *bool      `json:"isValid,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	ReadAt       *time.Time `json:"readAt,omitempty"`
}

// ServeHTTP dispatches list (GET) and mark-read (POST)
func (h *NotificationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	uid, err := h.identity.ResolveUserID(bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing identity token")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r, uid)
	case http.MethodPost:
		h.handleMarkRead(w, r, uid)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *NotificationsHandler) handleList(w http.ResponseWriter, r *http.Request, uid string) {
	q := r.URL.Query()

	limit := defaultNotificationLimit
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = min(v, maxNotificationLimit)
	}
	offset := 0
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		offset = v
	}
	unreadOnly, _ := strconv.ParseBool(q.Get("unread_only"))

	notifications, total, err := h.notifications.ListNotifications(uid, unreadOnly, limit, offset)
	if err != nil {
		h.logger.Error("failed to list notifications", "user_id", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	items := make([]notificationItem, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, toNotificationItem(n))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"total":         total,
		"has_more":      int64(offset+len(items)) < total,
	})
}

func (h *NotificationsHandler) handleMarkRead(w http.ResponseWriter, r *http.Request, uid string) {
	ids, err := parseIDList(r.URL.Query().Get("ids"))
	if err != nil || len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "ids must be a comma-separated list of notification ids")
		return
	}

	updated, err := h.notifications.MarkNotificationsRead(uid, ids)
	if err != nil {
		h.logger.Error("failed to mark notifications read", "user_id", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func toNotificationItem(n *database.Notification) notificationItem {
	return notificationItem{
		ID:           n.ID,
		AthleteID:    n.AthleteID,
		ActivityID:   n.ActivityID,
		ActivityName: n.ActivityName,
		DistanceKm:   n.DistanceKm,
		PaceMinPerKm: n.PaceMinPerKm,
		IsValid:      n.IsValid,
		CreatedAt:    n.CreatedAt,
		ReadAt:       n.ReadAt,
	}
}

func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
