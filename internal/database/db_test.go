package database

import (
	"os"
	"testing"
	"time"
)

// setupTestDB opens the Postgres database named by TEST_DATABASE_URL and
// initializes the schema. Tests that need storage are skipped when the
// variable is unset.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	db, err := Open(url)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Init(); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}

	// Start from a clean slate
	for _, table := range []string{"activity_notifications", "strava_activities", "strava_connections"} {
		if _, err := db.conn.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("Failed to clean table %s: %v", table, err)
		}
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabaseHealth(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Health(); err != nil {
		t.Errorf("Expected healthy database, got: %v", err)
	}
}

func strPtr(s string) *string       { return &s }
func f64Ptr(f float64) *float64     { return &f }
func i64Ptr(i int64) *int64         { return &i }
func boolPtr(b bool) *bool          { return &b }
func timePtr(t time.Time) *time.Time { return &t }
