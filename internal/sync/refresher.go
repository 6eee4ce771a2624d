package sync

import (
	"context"
	"log/slog"
	"time"

	"runclub-strava-sync/internal/database"
	"runclub-strava-sync/internal/metrics"
	"runclub-strava-sync/internal/strava"
)

// refreshLeeway is how close to expiry a token may get before it is
// refreshed ahead of use.
const refreshLeeway = 60 * time.Second

// TokenStore persists refreshed OAuth tokens
type TokenStore interface {
	UpdateConnectionTokens(userID, accessToken, refreshToken string, expiresAt int64) error
}

// Refresher keeps connection access tokens fresh ahead of API calls
type Refresher struct {
	client *strava.Client
	store  TokenStore
	logger *slog.Logger
}

func NewRefresher(client *strava.Client, store TokenStore) *Refresher {
	return &Refresher{
		client: client,
		store:  store,
		logger: slog.Default().With("component", "refresher"),
	}
}

// EnsureFreshToken returns a connection whose access token is usable now.
// A refresh failure is not fatal: the original connection comes back and the
// caller's API call surfaces the real error if the token is truly dead.
func (r *Refresher) EnsureFreshToken(ctx context.Context, conn *database.Connection, now time.Time) *database.Connection {
	if conn.ExpiresAt > now.Add(refreshLeeway).Unix() {
		return conn
	}

	tokens, err := r.client.RefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		r.logger.Warn("token refresh failed, continuing with stored token",
			"user_id", conn.UserID, "error", err)
		metrics.TokenRefreshesTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return conn
	}
	metrics.TokenRefreshesTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	// Strava may omit the refresh token when it has not rotated. Keep the
	// stored one rather than persisting an empty value.
	refreshToken := tokens.RefreshToken
	if refreshToken == "" {
		refreshToken = conn.RefreshToken
	}

	refreshed := *conn
	refreshed.AccessToken = tokens.AccessToken
	refreshed.RefreshToken = refreshToken
	refreshed.ExpiresAt = tokens.ExpiresAt

	// Persist best-effort. The refreshed token works for this call either way.
	if err := r.store.UpdateConnectionTokens(conn.UserID, tokens.AccessToken, refreshToken, tokens.ExpiresAt); err != nil {
		r.logger.Error("failed to persist refreshed tokens", "user_id", conn.UserID, "error", err)
	}

	return &refreshed
}
