package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Connection represents the stored Strava credential/identity link for one member
type Connection struct {
	UserID       string
	AthleteID    int64
	AthleteName  *string
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
	ConnectedAt  time.Time
	UpdatedAt    time.Time
}

// UpsertConnection inserts or updates a connection keyed by user_id
func (db *DB) UpsertConnection(c *Connection) error {
	_, err := db.conn.Exec(`
		INSERT INTO strava_connections (
			user_id, athlete_id, athlete_name, access_token, refresh_token, expires_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id) DO UPDATE SET
			athlete_id = EXCLUDED.athlete_id,
			athlete_name = EXCLUDED.athlete_name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
	`, c.UserID, c.AthleteID, c.AthleteName, c.AccessToken, c.RefreshToken, c.ExpiresAt)

	if err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}
	return nil
}

// UpdateConnection updates an existing connection by user_id
// Returns false if no row matched
func (db *DB) UpdateConnection(c *Connection) (bool, error) {
	result, err := db.conn.Exec(`
		UPDATE strava_connections
		SET athlete_id = $1, athlete_name = $2, access_token = $3,
		    refresh_token = $4, expires_at = $5, updated_at = now()
		WHERE user_id = $6
	`, c.AthleteID, c.AthleteName, c.AccessToken, c.RefreshToken, c.ExpiresAt, c.UserID)

	if err != nil {
		return false, fmt.Errorf("failed to update connection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// InsertConnection inserts a new connection row
func (db *DB) InsertConnection(c *Connection) error {
	_, err := db.conn.Exec(`
		INSERT INTO strava_connections (
			user_id, athlete_id, athlete_name, access_token, refresh_token, expires_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, now())
	`, c.UserID, c.AthleteID, c.AthleteName, c.AccessToken, c.RefreshToken, c.ExpiresAt)

	if err != nil {
		return fmt.Errorf("failed to insert connection: %w", err)
	}
	return nil
}

// GetConnectionByUserID retrieves a connection by the owning user id
func (db *DB) GetConnectionByUserID(userID string) (*Connection, error) {
	return db.getConnection(`
		SELECT user_id, athlete_id, athlete_name, access_token, refresh_token,
		       expires_at, connected_at, updated_at
		FROM strava_connections WHERE user_id = $1
	`, userID)
}

// GetConnectionByAthleteID retrieves a connection by the external athlete id.
// Webhook deliveries identify the athlete, not the owning user.
func (db *DB) GetConnectionByAthleteID(athleteID int64) (*Connection, error) {
	return db.getConnection(`
		SELECT user_id, athlete_id, athlete_name, access_token, refresh_token,
		       expires_at, connected_at, updated_at
		FROM strava_connections WHERE athlete_id = $1
	`, athleteID)
}

func (db *DB) getConnection(query string, arg interface{}) (*Connection, error) {
	var c Connection
	err := db.conn.QueryRow(query, arg).Scan(
		&c.UserID, &c.AthleteID, &c.AthleteName, &c.AccessToken, &c.RefreshToken,
		&c.ExpiresAt, &c.ConnectedAt, &c.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return &c, nil
}

// UpdateConnectionTokens updates a connection's OAuth tokens by user_id
func (db *DB) UpdateConnectionTokens(userID, accessToken, refreshToken string, expiresAt int64) error {
	result, err := db.conn.Exec(`
		UPDATE strava_connections
		SET access_token = $1, refresh_token = $2, expires_at = $3, updated_at = now()
		WHERE user_id = $4
	`, accessToken, refreshToken, expiresAt, userID)

	if err != nil {
		return fmt.Errorf("failed to update connection tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("connection not found")
	}

	return nil
}

// ListConnections returns all connections, oldest first.
// Used by the background sync pass.
func (db *DB) ListConnections() ([]*Connection, error) {
	rows, err := db.conn.Query(`
		SELECT user_id, athlete_id, athlete_name, access_token, refresh_token,
		       expires_at, connected_at, updated_at
		FROM strava_connections
		ORDER BY connected_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var connections []*Connection
	for rows.Next() {
		var c Connection
		err := rows.Scan(
			&c.UserID, &c.AthleteID, &c.AthleteName, &c.AccessToken, &c.RefreshToken,
			&c.ExpiresAt, &c.ConnectedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return connections, nil
}
