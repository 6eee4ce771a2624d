package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"runclub-strava-sync/internal/database"
)

func TestNotificationsList(t *testing.T) {
	name := "Morning Run"
	isValid := true
	notifs := &mockNotifStore{
		listed: []*database.Notification{
			{ID: 1, UserID: "user-1", ActivityName: &name, IsValid: &isValid, CreatedAt: time.Now()},
			{ID: 2, UserID: "user-1", CreatedAt: time.Now()},
		},
		total: 5,
	}
	h := NewNotificationsHandler(testIdentity(), notifs)

	r := httptest.NewRequest(http.MethodGet, "/api/notifications?sb="+identityToken(t, "user-1"), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Notifications []notificationItem `json:"notifications"`
		Total         int64              `json:"total"`
		HasMore       bool               `json:"has_more"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Notifications) != 2 || resp.Total != 5 || !resp.HasMore {
		t.Errorf("response = %+v", resp)
	}
	if *resp.Notifications[0].ActivityName != "Morning Run" {
		t.Errorf("first item = %+v", resp.Notifications[0])
	}
}

func TestNotificationsMarkRead(t *testing.T) {
	notifs := &mockNotifStore{}
	h := NewNotificationsHandler(testIdentity(), notifs)

	r := httptest.NewRequest(http.MethodPost,
		"/api/notifications?ids=1,2,3&sb="+identityToken(t, "user-1"), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if notifs.markUser != "user-1" {
		t.Errorf("markUser = %q, want user-1", notifs.markUser)
	}
	if len(notifs.marked) != 3 || notifs.marked[0] != 1 || notifs.marked[2] != 3 {
		t.Errorf("marked = %v, want [1 2 3]", notifs.marked)
	}

	var resp map[string]int64
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["updated"] != 3 {
		t.Errorf("updated = %d, want 3", resp["updated"])
	}
}

func TestNotificationsMarkReadBadIDs(t *testing.T) {
	notifs := &mockNotifStore{}
	h := NewNotificationsHandler(testIdentity(), notifs)

	for _, target := range []string{
		"/api/notifications?sb=",
		"/api/notifications?ids=&sb=",
		"/api/notifications?ids=1,abc&sb=",
	} {
		r := httptest.NewRequest(http.MethodPost, target+identityToken(t, "user-1"), nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
	if notifs.calls != 0 {
		t.Errorf("bad ids must not reach storage")
	}
}

func TestNotificationsRequireIdentity(t *testing.T) {
	h := NewNotificationsHandler(testIdentity(), &mockNotifStore{})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		r := httptest.NewRequest(method, "/api/notifications", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", method, w.Code)
		}
	}
}
