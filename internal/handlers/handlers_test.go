package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"runclub-strava-sync/internal/activity"
	"runclub-strava-sync/internal/auth"
	"runclub-strava-sync/internal/config"
	"runclub-strava-sync/internal/database"
	syncer "runclub-strava-sync/internal/sync"
)

const testIdentitySecret = "identity-secret"

func testConfig() *config.Config {
	return &config.Config{
		StravaClientID:     "client-id",
		StravaClientSecret: "client-secret",
		StravaVerifyToken:  "verify-token",
		StravaRedirectURI:  "https://api.example.com/api/strava/callback",
		PublicBaseURL:      "https://club.example.com",
		StateSecret:        "state-secret",
		IdentityJWTSecret:  testIdentitySecret,
	}
}

func testIdentity() *auth.IdentityResolver {
	return auth.NewIdentityResolver(testIdentitySecret, false)
}

func identityToken(t *testing.T, uid string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uid,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testIdentitySecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

// mockConnStore is an in-memory ConnectionStore that counts every call so
// tests can assert that a request touched no storage
type mockConnStore struct {
	byUser    map[string]*database.Connection
	byAthlete map[int64]*database.Connection

	upserts []*database.Connection
	inserts []*database.Connection
	updates []*database.Connection

	upsertErr error
	updateErr error
	updateOK  bool
	insertErr error
	lookupErr error

	calls int
}

func newMockConnStore() *mockConnStore {
	return &mockConnStore{
		byUser:    map[string]*database.Connection{},
		byAthlete: map[int64]*database.Connection{},
	}
}

func (m *mockConnStore) add(c *database.Connection) {
	m.byUser[c.UserID] = c
	m.byAthlete[c.AthleteID] = c
}

func (m *mockConnStore) GetConnectionByUserID(userID string) (*database.Connection, error) {
	m.calls++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.byUser[userID], nil
}

func (m *mockConnStore) GetConnectionByAthleteID(athleteID int64) (*database.Connection, error) {
	m.calls++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.byAthlete[athleteID], nil
}

func (m *mockConnStore) UpsertConnection(c *database.Connection) error {
	m.calls++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, c)
	m.add(c)
	return nil
}

func (m *mockConnStore) UpdateConnection(c *database.Connection) (bool, error) {
	m.calls++
	if m.updateErr != nil {
		return false, m.updateErr
	}
	m.updates = append(m.updates, c)
	return m.updateOK, nil
}

func (m *mockConnStore) InsertConnection(c *database.Connection) error {
	m.calls++
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserts = append(m.inserts, c)
	m.add(c)
	return nil
}

// mockNotifStore is an in-memory NotificationStore
type mockNotifStore struct {
	inserted  []*database.Notification
	insertErr error

	listed   []*database.Notification
	total    int64
	listErr  error
	markErr  error
	marked   []int64
	markUser string

	calls int
}

func (m *mockNotifStore) InsertNotification(n *database.Notification) error {
	m.calls++
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, n)
	return nil
}

func (m *mockNotifStore) ListNotifications(userID string, unreadOnly bool, limit, offset int) ([]*database.Notification, int64, error) {
	m.calls++
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listed, m.total, nil
}

func (m *mockNotifStore) MarkNotificationsRead(userID string, ids []int64) (int64, error) {
	m.calls++
	if m.markErr != nil {
		return 0, m.markErr
	}
	m.markUser = userID
	m.marked = ids
	return int64(len(ids)), nil
}

// mockSyncer satisfies both ActivitySyncer and WindowSyncer
type mockSyncer struct {
	syncActivityFn func(conn *database.Connection, activityID int64) (*database.Activity, activity.ValidationResult, error)
	syncFn         func(conn *database.Connection, after, before int64) (*syncer.Result, error)
	calls          int
}

func (m *mockSyncer) SyncActivity(ctx context.Context, conn *database.Connection, activityID int64, source string) (*database.Activity, activity.ValidationResult, error) {
	m.calls++
	return m.syncActivityFn(conn, activityID)
}

func (m *mockSyncer) Sync(ctx context.Context, conn *database.Connection, after, before int64, source string) (*syncer.Result, error) {
	m.calls++
	return m.syncFn(conn, after, before)
}
