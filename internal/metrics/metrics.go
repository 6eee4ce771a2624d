package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value constants to prevent typos
const (
	// HTTP endpoints
	EndpointOAuthStart    = "oauth_start"
	EndpointOAuthCallback = "oauth_callback"
	EndpointWebhook       = "webhook_callback"
	EndpointSync          = "sync"
	EndpointStatus        = "status"
	EndpointNotifications = "notifications"
	EndpointHealth        = "health"

	// Strava API operations
	OpExchangeCode       = "exchange_code"
	OpRefreshToken       = "refresh_token"
	OpGetActivity        = "get_activity"
	OpListActivities     = "list_activities"
	OpCreateSubscription = "create_subscription"
	OpDeleteSubscription = "delete_subscription"
	OpListSubscriptions  = "list_subscriptions"

	// Ingestion sources
	SourceSync       = "sync"
	SourceWebhook    = "webhook"
	SourceBackground = "background"

	// Results
	ResultSuccess = "success"
	ResultFailure = "failure"

	// Rate limit windows
	RateLimit15Min = "15min"
	RateLimitDaily = "daily"

	// Rate limit buckets
	BucketLimit = "limit"
	BucketUsage = "usage"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint", "status_code"},
	)
)

// Strava API Metrics
var (
	StravaAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strava_api_requests_total",
			Help: "Total number of Strava API requests",
		},
		[]string{"operation", "status_code"},
	)

	StravaAPIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strava_api_request_duration_seconds",
			Help:    "Strava API request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	StravaRateLimit = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strava_rate_limit",
			Help: "Strava API rate limit and usage as reported by response headers",
		},
		[]string{"window", "bucket"},
	)
)

// Ingestion Metrics
var (
	ActivitiesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activities_ingested_total",
			Help: "Total number of activity upserts by source and result",
		},
		[]string{"source", "result"},
	)

	ActivitiesValidTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activities_valid_total",
			Help: "Total number of ingested activities by validity classification",
		},
		[]string{"is_valid"},
	)

	SyncActivitiesCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_activities_count",
			Help:    "Number of activities fetched per sync call",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	WebhookEventsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_processed_total",
			Help: "Total number of webhook events processed",
		},
		[]string{"object_type", "aspect_type", "outcome"},
	)

	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refreshes_total",
			Help: "Total number of OAuth token refresh attempts",
		},
		[]string{"result"},
	)
)

// Background Sync Metrics
var (
	BackgroundSyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_sync_runs_total",
			Help: "Total number of background sync passes by result",
		},
		[]string{"result"},
	)

	BackgroundSyncActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "background_sync_active",
			Help: "Whether the background sync worker is currently active (1) or not (0)",
		},
	)
)
