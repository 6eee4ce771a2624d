package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"runclub-strava-sync/internal/database"
	"runclub-strava-sync/internal/strava"
)

type mockActivityStore struct {
	upserts []*database.Activity
	failAll bool
}

func (m *mockActivityStore) UpsertActivity(a *database.Activity) error {
	if m.failAll {
		return errors.New("numeric field overflow")
	}
	m.upserts = append(m.upserts, a)
	return nil
}

func fakeActivity(id int64, start time.Time) *strava.Activity {
	distance := 5000.0
	movingTime := int64(1800)
	return &strava.Activity{
		ID:         id,
		Name:       fmt.Sprintf("Run %d", id),
		Distance:   &distance,
		MovingTime: &movingTime,
		StartDate:  &start,
	}
}

// newTestSyncer wires a syncer against a fake activities endpoint. The pages
// func returns the activities for a given page number.
func newTestSyncer(t *testing.T, store ActivityStore, pages func(page int) ([]*strava.Activity, int)) (*Syncer, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/athlete/activities") {
			page := 1
			fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
			activities, status := pages(page)
			if status != http.StatusOK {
				w.WriteHeader(status)
				w.Write([]byte(`{"message":"error"}`))
				return
			}
			json.NewEncoder(w).Encode(activities)
			return
		}
		http.NotFound(w, r)
	}))

	client := strava.NewClient("id", "secret")
	client.SetBaseURL(server.URL)
	client.SetTokenURL(server.URL + "/oauth/token")
	refresher := NewRefresher(client, &mockTokenStore{})
	return New(client, store, refresher), server
}

func freshConnection() *database.Connection {
	return testConnection(time.Now().Add(time.Hour).Unix())
}

func TestSyncSinglePage(t *testing.T) {
	store := &mockActivityStore{}
	syncer, server := newTestSyncer(t, store, func(page int) ([]*strava.Activity, int) {
		if page == 1 {
			return []*strava.Activity{
				fakeActivity(1, time.Now().Add(-48*time.Hour)),
				fakeActivity(2, time.Now().Add(-24*time.Hour)),
			}, http.StatusOK
		}
		t.Errorf("unexpected request for page %d", page)
		return nil, http.StatusOK
	})
	defer server.Close()

	result, err := syncer.Sync(context.Background(), freshConnection(), 0, time.Now().Unix(), "sync")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.Total != 2 || result.Synced != 2 || len(result.Errors) != 0 {
		t.Errorf("result = %+v, want 2 synced of 2", result)
	}
	if len(store.upserts) != 2 {
		t.Errorf("expected 2 upserts, got %d", len(store.upserts))
	}
	if store.upserts[0].UserID != "user-1" {
		t.Errorf("activities should be attributed to the connection's user")
	}
}

func TestSyncPaginatesUntilShortPage(t *testing.T) {
	base := time.Now().Add(-30 * 24 * time.Hour)
	fullPage := make([]*strava.Activity, strava.PerPage)
	for i := range fullPage {
		fullPage[i] = fakeActivity(int64(i+1), base.Add(time.Duration(i)*time.Hour))
	}

	store := &mockActivityStore{}
	syncer, server := newTestSyncer(t, store, func(page int) ([]*strava.Activity, int) {
		switch page {
		case 1:
			return fullPage, http.StatusOK
		case 2:
			return []*strava.Activity{fakeActivity(1000, time.Now().Add(-time.Hour))}, http.StatusOK
		default:
			t.Errorf("unexpected request for page %d", page)
			return nil, http.StatusOK
		}
	})
	defer server.Close()

	result, err := syncer.Sync(context.Background(), freshConnection(), 0, time.Now().Unix(), "sync")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.Total != strava.PerPage+1 {
		t.Errorf("Total = %d, want %d", result.Total, strava.PerPage+1)
	}
	if result.Synced != strava.PerPage+1 {
		t.Errorf("Synced = %d, want %d", result.Synced, strava.PerPage+1)
	}
}

func TestSyncStopsWhenLastActivityReachesBound(t *testing.T) {
	before := time.Now().Unix()
	fullPage := make([]*strava.Activity, strava.PerPage)
	for i := range fullPage {
		fullPage[i] = fakeActivity(int64(i+1), time.Unix(before, 0).Add(time.Duration(i)*time.Second))
	}

	store := &mockActivityStore{}
	syncer, server := newTestSyncer(t, store, func(page int) ([]*strava.Activity, int) {
		if page != 1 {
			t.Errorf("pagination should stop after page 1, requested page %d", page)
		}
		return fullPage, http.StatusOK
	})
	defer server.Close()

	if _, err := syncer.Sync(context.Background(), freshConnection(), 0, before, "sync"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
}

func TestSyncEmptyWindow(t *testing.T) {
	store := &mockActivityStore{}
	syncer, server := newTestSyncer(t, store, func(page int) ([]*strava.Activity, int) {
		return []*strava.Activity{}, http.StatusOK
	})
	defer server.Close()

	result, err := syncer.Sync(context.Background(), freshConnection(), 0, time.Now().Unix(), "sync")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.Total != 0 || result.Synced != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestSyncListFailureIsFatal(t *testing.T) {
	store := &mockActivityStore{}
	syncer, server := newTestSyncer(t, store, func(page int) ([]*strava.Activity, int) {
		return nil, http.StatusUnauthorized
	})
	defer server.Close()

	if _, err := syncer.Sync(context.Background(), freshConnection(), 0, time.Now().Unix(), "sync"); err == nil {
		t.Fatalf("expected a listing failure to abort the sync")
	}
}

func TestSyncCapsReportedErrors(t *testing.T) {
	activities := make([]*strava.Activity, 8)
	for i := range activities {
		activities[i] = fakeActivity(int64(i+1), time.Now().Add(-time.Duration(i)*time.Hour))
	}

	store := &mockActivityStore{failAll: true}
	syncer, server := newTestSyncer(t, store, func(page int) ([]*strava.Activity, int) {
		return activities, http.StatusOK
	})
	defer server.Close()

	result, err := syncer.Sync(context.Background(), freshConnection(), 0, time.Now().Unix(), "sync")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.Total != 8 || result.Synced != 0 {
		t.Errorf("result = %+v, want 0 synced of 8", result)
	}
	if len(result.Errors) != maxReportedErrors {
		t.Errorf("len(Errors) = %d, want cap of %d", len(result.Errors), maxReportedErrors)
	}
}

func TestSyncActivityFetchAndStore(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour).UTC().Truncate(time.Second)
	store := &mockActivityStore{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activities/555" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(fakeActivity(555, start))
	}))
	defer server.Close()

	client := strava.NewClient("id", "secret")
	client.SetBaseURL(server.URL)
	refresher := NewRefresher(client, &mockTokenStore{})
	syncer := New(client, store, refresher)

	got, validation, err := syncer.SyncActivity(context.Background(), freshConnection(), 555, "webhook")
	if err != nil {
		t.Fatalf("SyncActivity failed: %v", err)
	}
	if got.StravaActivityID != 555 {
		t.Errorf("StravaActivityID = %d, want 555", got.StravaActivityID)
	}
	if !validation.IsValid {
		t.Errorf("a 5km run at 6 min/km should classify as valid")
	}
	if len(store.upserts) != 1 {
		t.Errorf("expected 1 upsert, got %d", len(store.upserts))
	}
}

func TestSyncActivityFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Record Not Found"}`))
	}))
	defer server.Close()

	client := strava.NewClient("id", "secret")
	client.SetBaseURL(server.URL)
	store := &mockActivityStore{}
	syncer := New(client, store, NewRefresher(client, &mockTokenStore{}))

	if _, _, err := syncer.SyncActivity(context.Background(), freshConnection(), 555, "webhook"); err == nil {
		t.Fatalf("expected fetch failure to surface")
	}
	if len(store.upserts) != 0 {
		t.Errorf("expected no upserts on fetch failure")
	}
}
