package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"runclub-strava-sync/internal/auth"
)

// StatusHandler reports whether the caller has a Strava connection
type StatusHandler struct {
	identity    *auth.IdentityResolver
	connections ConnectionStore
	logger      *slog.Logger
}

func NewStatusHandler(identity *auth.IdentityResolver, connections ConnectionStore) *StatusHandler {
	return &StatusHandler{
		identity:    identity,
		connections: connections,
		logger:      slog.Default().With("component", "status_handler"),
	}
}

// statusResponse is the connection summary shown on the member's stats page
type statusResponse struct {
	Connected   bool    `json:"connected"`
	AthleteID   *int64  `json:"athleteId,omitempty"`
	AthleteName *string `json:"athleteName,omitempty"`
	ExpiresAt   *int64  `json:"expiresAt,omitempty"`
	Expired     *bool   `json:"expired,omitempty"`
}

// HandleStatus always answers 200; any resolution or lookup failure reads as
// "not connected"
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uid, err := h.identity.ResolveUserID(bearerToken(r))
	if err != nil {
		writeJSON(w, http.StatusOK, statusResponse{Connected: false})
		return
	}

	conn, err := h.connections.GetConnectionByUserID(uid)
	if err != nil {
		h.logger.Error("connection lookup failed", "user_id", uid, "error", err)
		writeJSON(w, http.StatusOK, statusResponse{Connected: false})
		return
	}
	if conn == nil {
		writeJSON(w, http.StatusOK, statusResponse{Connected: false})
		return
	}

	expired := conn.ExpiresAt <= time.Now().Unix()
	writeJSON(w, http.StatusOK, statusResponse{
		Connected:   true,
		AthleteID:   &conn.AthleteID,
		AthleteName: conn.AthleteName,
		ExpiresAt:   &conn.ExpiresAt,
		Expired:     &expired,
	})
}
