package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Host string
	Port int

	// Database configuration
	DatabaseURL string

	// Strava API configuration
	StravaClientID     string
	StravaClientSecret string
	StravaVerifyToken  string
	StravaRedirectURI  string

	// OAuth state signing
	StateSecret string

	// Public base URL for post-callback redirects. Optional; when empty the
	// handler falls back to forwarded-host headers and finally the request host.
	PublicBaseURL string

	// Identity provider configuration
	IdentityJWTSecret string
	// AllowUnverifiedJWT enables the degraded-trust fallback of reading the
	// subject claim from an unverifiable token. Off unless explicitly set.
	AllowUnverifiedJWT bool

	// Background sync configuration
	BackgroundSyncEnabled  bool
	BackgroundSyncInterval time.Duration
	BackgroundSyncWindow   time.Duration

	// Metrics configuration
	MetricsEnabled bool
	MetricsHost    string
	MetricsPort    int

	// Logging configuration
	LogLevel string
}

// Load reads configuration from environment variables
// It fails fast if required variables are missing
func Load() (*Config, error) {
	// Best-effort: a missing .env file is not an error
	_ = godotenv.Load()

	cfg := &Config{
		// Optional values with defaults
		Host:                   getEnv("HOST", "localhost"),
		Port:                   getEnvInt("PORT", 4201),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		PublicBaseURL:          getEnv("PUBLIC_BASE_URL", ""),
		AllowUnverifiedJWT:     getEnvBool("AUTH_ALLOW_UNVERIFIED_JWT", false),
		BackgroundSyncEnabled:  getEnvBool("BACKGROUND_SYNC_ENABLED", true),
		BackgroundSyncInterval: getEnvDuration("BACKGROUND_SYNC_INTERVAL", 6*time.Hour),
		BackgroundSyncWindow:   getEnvDuration("BACKGROUND_SYNC_WINDOW", 7*24*time.Hour),
		MetricsEnabled:         getEnvBool("METRICS_ENABLED", false),
		MetricsHost:            getEnv("METRICS_HOST", "localhost"),
		MetricsPort:            getEnvInt("METRICS_PORT", 4202),
	}

	// Required values
	var missingVars []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missingVars = append(missingVars, "DATABASE_URL")
	}

	cfg.StravaClientID = os.Getenv("STRAVA_CLIENT_ID")
	if cfg.StravaClientID == "" {
		missingVars = append(missingVars, "STRAVA_CLIENT_ID")
	}

	cfg.StravaClientSecret = os.Getenv("STRAVA_CLIENT_SECRET")
	if cfg.StravaClientSecret == "" {
		missingVars = append(missingVars, "STRAVA_CLIENT_SECRET")
	}

	cfg.StravaVerifyToken = os.Getenv("STRAVA_VERIFY_TOKEN")
	if cfg.StravaVerifyToken == "" {
		missingVars = append(missingVars, "STRAVA_VERIFY_TOKEN")
	}

	cfg.StravaRedirectURI = os.Getenv("STRAVA_REDIRECT_URI")
	if cfg.StravaRedirectURI == "" {
		missingVars = append(missingVars, "STRAVA_REDIRECT_URI")
	}

	cfg.StateSecret = os.Getenv("STRAVA_STATE_SECRET")
	if cfg.StateSecret == "" {
		missingVars = append(missingVars, "STRAVA_STATE_SECRET")
	}

	cfg.IdentityJWTSecret = os.Getenv("IDENTITY_JWT_SECRET")
	if cfg.IdentityJWTSecret == "" {
		missingVars = append(missingVars, "IDENTITY_JWT_SECRET")
	}

	if len(missingVars) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvDuration gets a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
