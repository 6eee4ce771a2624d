package strava

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/push_subscriptions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.PostForm.Get("client_id") != "client-id" || r.PostForm.Get("client_secret") != "client-secret" {
			t.Errorf("missing app credentials: %v", r.PostForm)
		}
		if r.PostForm.Get("callback_url") != "https://api.example.com/webhook/strava" {
			t.Errorf("callback_url = %q", r.PostForm.Get("callback_url"))
		}
		if r.PostForm.Get("verify_token") != "verify-token" {
			t.Errorf("verify_token = %q", r.PostForm.Get("verify_token"))
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 17, "application_id": 3, "callback_url": "https://api.example.com/webhook/strava"}`))
	}))
	defer srv.Close()

	c := NewClient("client-id", "client-secret")
	c.SetBaseURL(srv.URL)

	sub, err := c.CreateSubscription("https://api.example.com/webhook/strava", "verify-token")
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	if sub.ID != 17 || sub.ApplicationID != 3 {
		t.Errorf("subscription = %+v", sub)
	}
}

func TestListSubscriptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/push_subscriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("client_id") != "client-id" || q.Get("client_secret") != "client-secret" {
			t.Errorf("missing app credentials: %v", q)
		}
		w.Write([]byte(`[{"id": 17, "callback_url": "https://api.example.com/webhook/strava"}]`))
	}))
	defer srv.Close()

	c := NewClient("client-id", "client-secret")
	c.SetBaseURL(srv.URL)

	subs, err := c.ListSubscriptions()
	if err != nil {
		t.Fatalf("ListSubscriptions: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != 17 {
		t.Errorf("subscriptions = %+v", subs)
	}
}

func TestDeleteSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/push_subscriptions/17" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient("client-id", "client-secret")
	c.SetBaseURL(srv.URL)

	if err := c.DeleteSubscription(17); err != nil {
		t.Fatalf("DeleteSubscription: %v", err)
	}
}

func TestDeleteSubscriptionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Not Found"}`))
	}))
	defer srv.Close()

	c := NewClient("client-id", "client-secret")
	c.SetBaseURL(srv.URL)

	err := c.DeleteSubscription(99)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want *HTTPError with 404", err)
	}
}
