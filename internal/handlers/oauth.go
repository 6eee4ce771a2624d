package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"runclub-strava-sync/internal/auth"
	"runclub-strava-sync/internal/config"
	"runclub-strava-sync/internal/database"
	"runclub-strava-sync/internal/strava"
)

const (
	authorizeURL = "https://www.strava.com/oauth/authorize"
	oauthScope   = "read,activity:read_all,profile:read_all"
)

// Callback error codes surfaced to the frontend via the strava_error
// query parameter
const (
	errMissingCode         = "missing_code"
	errInvalidState        = "invalid_state"
	errTokenExchangeFailed = "token_exchange_failed"
	errMissingTokenFields  = "missing_token_fields"
	errMissingUID          = "missing_uid"
	errConfigMissing       = "config_missing"
	errStoreFailed         = "store_failed"
)

// OAuthHandler handles the Strava connect flow
type OAuthHandler struct {
	identity    *auth.IdentityResolver
	stateSigner *auth.StateSigner
	client      *strava.Client
	connections ConnectionStore
	config      *config.Config
	logger      *slog.Logger

	// Overridable for tests
	authorizeURL string
}

func NewOAuthHandler(identity *auth.IdentityResolver, stateSigner *auth.StateSigner, client *strava.Client, connections ConnectionStore, cfg *config.Config) *OAuthHandler {
	return &OAuthHandler{
		identity:     identity,
		stateSigner:  stateSigner,
		client:       client,
		connections:  connections,
		config:       cfg,
		logger:       slog.Default().With("component", "oauth"),
		authorizeURL: authorizeURL,
	}
}

// HandleStart resolves the caller's identity and redirects to the Strava
// authorization page with a signed state token
func (h *OAuthHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uid, err := h.identity.ResolveUserID(bearerToken(r))
	if err != nil {
		h.logger.Warn("rejecting connect start", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid or missing identity token")
		return
	}

	state, err := h.stateSigner.Sign(uid, time.Now())
	if err != nil {
		h.logger.Error("failed to sign state token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start connect flow")
		return
	}

	params := url.Values{
		"client_id":       {h.config.StravaClientID},
		"redirect_uri":    {h.config.StravaRedirectURI},
		"response_type":   {"code"},
		"approval_prompt": {"auto"},
		"scope":           {oauthScope},
		"state":           {state},
	}

	h.logger.Info("starting connect flow", "user_id", uid)
	http.Redirect(w, r, h.authorizeURL+"?"+params.Encode(), http.StatusTemporaryRedirect)
}

// HandleCallback completes the connect flow. Every path redirects back to the
// frontend stats page, carrying either strava_connected=1 or a strava_error
// code.
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	base := h.resolveBaseURL(r)
	fail := func(code string) {
		http.Redirect(w, r, base+"/stats?strava_error="+code, http.StatusTemporaryRedirect)
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Warn("authorization denied", "error", errParam)
		fail(errMissingCode)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		fail(errMissingCode)
		return
	}

	uid, err := h.stateSigner.Verify(r.URL.Query().Get("state"), time.Now())
	if err != nil {
		h.logger.Warn("state verification failed", "error", err)
		fail(errInvalidState)
		return
	}
	if uid == "" {
		fail(errMissingUID)
		return
	}

	if h.config.StravaClientID == "" || h.config.StravaClientSecret == "" {
		h.logger.Error("strava credentials not configured")
		fail(errConfigMissing)
		return
	}

	tokens, err := h.client.ExchangeCode(r.Context(), code, h.config.StravaRedirectURI)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		fail(errTokenExchangeFailed)
		return
	}

	if tokens.AccessToken == "" || tokens.RefreshToken == "" || tokens.ExpiresAt == 0 || tokens.Athlete == nil || tokens.Athlete.ID == 0 {
		h.logger.Error("token response missing required fields")
		fail(errMissingTokenFields)
		return
	}

	conn := &database.Connection{
		UserID:       uid,
		AthleteID:    tokens.Athlete.ID,
		AthleteName:  athleteName(tokens.Athlete),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	}

	if err := h.storeConnection(conn); err != nil {
		h.logger.Error("failed to store connection", "user_id", uid, "error", err)
		fail(errStoreFailed)
		return
	}

	h.logger.Info("connect flow completed", "user_id", uid, "athlete_id", conn.AthleteID)
	http.Redirect(w, r, base+"/stats?strava_connected=1", http.StatusTemporaryRedirect)
}

// storeConnection writes the connection, falling back from upsert to
// update-then-insert when the upsert path is rejected
func (h *OAuthHandler) storeConnection(conn *database.Connection) error {
	upsertErr := h.connections.UpsertConnection(conn)
	if upsertErr == nil {
		return nil
	}
	h.logger.Warn("connection upsert failed, trying update/insert", "error", upsertErr)

	updated, err := h.connections.UpdateConnection(conn)
	if err == nil && updated {
		return nil
	}
	if insertErr := h.connections.InsertConnection(conn); insertErr != nil {
		return fmt.Errorf("upsert failed (%v), insert failed: %w", upsertErr, insertErr)
	}
	return nil
}

// resolveBaseURL picks the frontend base for post-callback redirects:
// the configured public base when set, then forwarded headers, then the
// request host
func (h *OAuthHandler) resolveBaseURL(r *http.Request) string {
	if h.config.PublicBaseURL != "" {
		return strings.TrimRight(h.config.PublicBaseURL, "/")
	}

	host := r.Header.Get("X-Forwarded-Host")
	scheme := r.Header.Get("X-Forwarded-Proto")
	if host == "" {
		host = r.Host
		scheme = ""
	}
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	return scheme + "://" + host
}

func athleteName(a *strava.TokenAthlete) *string {
	name := strings.TrimSpace(strings.TrimSpace(a.Firstname) + " " + strings.TrimSpace(a.Lastname))
	if name == "" {
		return nil
	}
	return &name
}
