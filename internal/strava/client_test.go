package strava

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExchangeCode(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Failed to parse body", http.StatusBadRequest)
			return
		}

		if body["code"] != "test_code" {
			http.Error(w, "Invalid code", http.StatusBadRequest)
			return
		}
		if body["client_id"] != "test_client_id" {
			http.Error(w, "Invalid client_id", http.StatusBadRequest)
			return
		}
		if body["grant_type"] != "authorization_code" {
			http.Error(w, "Invalid grant_type", http.StatusBadRequest)
			return
		}
		if body["redirect_uri"] != "https://example.com/callback" {
			http.Error(w, "Invalid redirect_uri", http.StatusBadRequest)
			return
		}

		response := TokenResponse{
			AccessToken:  "test_access_token",
			RefreshToken: "test_refresh_token",
			ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
			ExpiresIn:    21600,
			Athlete:      &TokenAthlete{ID: 12345, Firstname: "Test", Lastname: "User"},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer tokenServer.Close()

	client := NewClient("test_client_id", "test_client_secret")
	client.SetTokenURL(tokenServer.URL)

	tokenResp, err := client.ExchangeCode(context.Background(), "test_code", "https://example.com/callback")
	if err != nil {
		t.Fatalf("Failed to exchange code: %v", err)
	}

	if tokenResp.AccessToken != "test_access_token" {
		t.Errorf("Expected access token 'test_access_token', got '%s'", tokenResp.AccessToken)
	}
	if tokenResp.RefreshToken != "test_refresh_token" {
		t.Errorf("Expected refresh token 'test_refresh_token', got '%s'", tokenResp.RefreshToken)
	}
	if tokenResp.ExpiresIn != 21600 {
		t.Errorf("Expected expires_in 21600, got %d", tokenResp.ExpiresIn)
	}
	if tokenResp.Athlete == nil || tokenResp.Athlete.ID != 12345 {
		t.Errorf("Expected athlete 12345, got %+v", tokenResp.Athlete)
	}
}

func TestRefreshToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Failed to parse body", http.StatusBadRequest)
			return
		}

		if body["grant_type"] != "refresh_token" {
			http.Error(w, "Invalid grant_type", http.StatusBadRequest)
			return
		}
		if body["refresh_token"] != "old_refresh" {
			http.Error(w, "Invalid refresh_token", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "new_access",
			RefreshToken: "new_refresh",
			ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
		})
	}))
	defer tokenServer.Close()

	client := NewClient("test_client_id", "test_client_secret")
	client.SetTokenURL(tokenServer.URL)

	tokenResp, err := client.RefreshToken(context.Background(), "old_refresh")
	if err != nil {
		t.Fatalf("Failed to refresh token: %v", err)
	}
	if tokenResp.AccessToken != "new_access" || tokenResp.RefreshToken != "new_refresh" {
		t.Errorf("Unexpected token response: %+v", tokenResp)
	}
}

func TestTokenRequestHTTPError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Bad Request"}`))
	}))
	defer tokenServer.Close()

	client := NewClient("test_client_id", "test_client_secret")
	client.SetTokenURL(tokenServer.URL)

	_, err := client.ExchangeCode(context.Background(), "bad_code", "https://example.com/callback")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", httpErr.StatusCode)
	}
}

func TestRateLimitHeaderTracking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "200,2000")
		w.Header().Set("X-RateLimit-Usage", "150,1500")
		w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	client := NewClient("test_client_id", "test_client_secret")
	client.SetBaseURL(server.URL)

	if _, err := client.GetActivity(context.Background(), "token", 1); err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}

	status := client.GetRateLimitStatus()
	if status.Usage15Min != 150 || status.Limit15Min != 200 {
		t.Errorf("15min status = %d/%d, want 150/200", status.Usage15Min, status.Limit15Min)
	}
	if status.UsageDaily != 1500 || status.LimitDaily != 2000 {
		t.Errorf("daily status = %d/%d, want 1500/2000", status.UsageDaily, status.LimitDaily)
	}
}

func TestDoRequestSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	client := NewClient("test_client_id", "test_client_secret")
	client.SetBaseURL(server.URL)

	if _, err := client.GetActivity(context.Background(), "secret-token", 1); err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}
}
