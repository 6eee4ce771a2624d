package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"runclub-strava-sync/internal/auth"
	"runclub-strava-sync/internal/database"
	"runclub-strava-sync/internal/metrics"
	syncer "runclub-strava-sync/internal/sync"
)

// WindowSyncer runs a windowed activity sync for one connection
type WindowSyncer interface {
	Sync(ctx context.Context, conn *database.Connection, after, before int64, source string) (*syncer.Result, error)
}

// SyncHandler serves on-demand activity syncs
type SyncHandler struct {
	identity    *auth.IdentityResolver
	connections ConnectionStore
	syncer      WindowSyncer
	logger      *slog.Logger
}

func NewSyncHandler(identity *auth.IdentityResolver, connections ConnectionStore, s WindowSyncer) *SyncHandler {
	return &SyncHandler{
		identity:    identity,
		connections: connections,
		syncer:      s,
		logger:      slog.Default().With("component", "sync_handler"),
	}
}

// HandleSync pulls the caller's activities within [after, before) and
// responds with the sync summary
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uid, err := h.identity.ResolveUserID(bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or missing identity token")
		return
	}

	after, err1 := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
	before, err2 := strconv.ParseInt(r.URL.Query().Get("before"), 10, 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "after and before are required epoch-second parameters")
		return
	}

	conn, err := h.lookupConnection(uid, r.URL.Query().Get("athlete_id"))
	if err != nil {
		h.logger.Error("connection lookup failed", "user_id", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to look up connection")
		return
	}
	if conn == nil {
		writeError(w, http.StatusNotFound, "no strava connection")
		return
	}

	result, err := h.syncer.Sync(r.Context(), conn, after, before, metrics.SourceSync)
	if err != nil {
		h.logger.Error("sync failed", "user_id", uid, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch activities from strava")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// lookupConnection resolves the connection to sync. An explicit athlete_id is
// honored only when that connection belongs to the caller.
func (h *SyncHandler) lookupConnection(uid, athleteIDParam string) (*database.Connection, error) {
	if athleteIDParam == "" {
		return h.connections.GetConnectionByUserID(uid)
	}

	athleteID, err := strconv.ParseInt(athleteIDParam, 10, 64)
	if err != nil {
		return nil, nil
	}
	conn, err := h.connections.GetConnectionByAthleteID(athleteID)
	if err != nil {
		return nil, err
	}
	if conn == nil || conn.UserID != uid {
		return nil, nil
	}
	return conn, nil
}
