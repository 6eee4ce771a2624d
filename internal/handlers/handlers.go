package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"runclub-strava-sync/internal/database"
)

// ConnectionStore is the connection persistence surface the handlers need
type ConnectionStore interface {
	GetConnectionByUserID(userID string) (*database.Connection, error)
	GetConnectionByAthleteID(athleteID int64) (*database.Connection, error)
	UpsertConnection(c *database.Connection) error
	UpdateConnection(c *database.Connection) (bool, error)
	InsertConnection(c *database.Connection) error
}

// NotificationStore is the notification persistence surface the handlers need
type NotificationStore interface {
	InsertNotification(n *database.Notification) error
	ListNotifications(userID string, unreadOnly bool, limit, offset int) ([]*database.Notification, int64, error)
	MarkNotificationsRead(userID string, ids []int64) (int64, error)
}

// bearerToken extracts the caller's identity token from the Authorization
// header, falling back to the sb query parameter used by browser-initiated
// requests
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.URL.Query().Get("sb")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
