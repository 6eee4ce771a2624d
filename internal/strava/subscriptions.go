package strava

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"runclub-strava-sync/internal/metrics"
)

// Subscription represents a Strava webhook subscription
type Subscription struct {
	ID            int    `json:"id"`
	ApplicationID int    `json:"application_id"`
	CallbackURL   string `json:"callback_url"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// CreateSubscription creates a new webhook subscription
// Note: This does not require athlete authentication, only app credentials
func (c *Client) CreateSubscription(callbackURL, verifyToken string) (*Subscription, error) {
	data := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"callback_url":  {callbackURL},
		"verify_token":  {verifyToken},
	}

	start := time.Now()
	resp, err := c.httpClient.PostForm(c.baseURL+"/push_subscriptions", data)
	if err != nil {
		c.recordSubscriptionError(metrics.OpCreateSubscription, err, time.Since(start))
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	defer resp.Body.Close()
	c.recordSubscriptionRequest(metrics.OpCreateSubscription, resp.StatusCode, time.Since(start))

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var subscription Subscription
	if err := json.Unmarshal(body, &subscription); err != nil {
		return nil, fmt.Errorf("failed to decode subscription response: %w", err)
	}

	return &subscription, nil
}

// ListSubscriptions lists all active webhook subscriptions for this application
func (c *Client) ListSubscriptions() ([]*Subscription, error) {
	params := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	reqURL := c.baseURL + "/push_subscriptions?" + params.Encode()
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordSubscriptionError(metrics.OpListSubscriptions, err, time.Since(start))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer resp.Body.Close()
	c.recordSubscriptionRequest(metrics.OpListSubscriptions, resp.StatusCode, time.Since(start))

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var subscriptions []*Subscription
	if err := json.Unmarshal(body, &subscriptions); err != nil {
		return nil, fmt.Errorf("failed to decode subscriptions response: %w", err)
	}

	return subscriptions, nil
}

// DeleteSubscription deletes a webhook subscription
func (c *Client) DeleteSubscription(subscriptionID int) error {
	params := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	reqURL := fmt.Sprintf("%s/push_subscriptions/%d?%s", c.baseURL, subscriptionID, params.Encode())
	req, err := http.NewRequest(http.MethodDelete, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordSubscriptionError(metrics.OpDeleteSubscription, err, time.Since(start))
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	defer resp.Body.Close()
	c.recordSubscriptionRequest(metrics.OpDeleteSubscription, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return nil
}

func (c *Client) recordSubscriptionError(op string, err error, duration time.Duration) {
	c.logger.Error("subscription request failed", "op", op, "error", err, "duration_ms", duration.Milliseconds())
	metrics.StravaAPIRequestsTotal.WithLabelValues(op, "error").Inc()
}

func (c *Client) recordSubscriptionRequest(op string, status int, duration time.Duration) {
	c.logger.Info("strava_api_request", "op", op, "status", status, "duration_ms", duration.Milliseconds())
	metrics.StravaAPIRequestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
	metrics.StravaAPIRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}
