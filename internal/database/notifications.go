package database

import (
	"fmt"
	"time"
)

// Notification represents one ingested-activity notification row
type Notification struct {
	ID           int64
	UserID       string
	AthleteID    *int64
	ActivityID   *int64
	ActivityName *string
	DistanceKm   *float64
	PaceMinPerKm *float64
	IsValid      *bool
	CreatedAt    time.Time
	ReadAt       *time.Time
}

// InsertNotification appends one notification row
func (db *DB) InsertNotification(n *Notification) error {
	_, err := db.conn.Exec(`
		INSERT INTO activity_notifications (
			user_id, athlete_id, activity_id, activity_name,
			distance_km, pace_min_per_km, is_valid
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.UserID, n.AthleteID, n.ActivityID, n.ActivityName,
		n.DistanceKm, n.PaceMinPerKm, n.IsValid)

	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a page of notifications for a user, newest first,
// plus the total count matching the filter
func (db *DB) ListNotifications(userID string, unreadOnly bool, limit, offset int) ([]*Notification, int64, error) {
	query := `
		SELECT id, user_id, athlete_id, activity_id, activity_name,
		       distance_km, pace_min_per_km, is_valid, created_at, read_at
		FROM activity_notifications
		WHERE user_id = $1
	`
	countQuery := `SELECT COUNT(*) FROM activity_notifications WHERE user_id = $1`
	if unreadOnly {
		query += " AND read_at IS NULL"
		countQuery += " AND read_at IS NULL"
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := db.conn.Query(query, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		var n Notification
		err := rows.Scan(
			&n.ID, &n.UserID, &n.AthleteID, &n.ActivityID, &n.ActivityName,
			&n.DistanceKm, &n.PaceMinPerKm, &n.IsValid, &n.CreatedAt, &n.ReadAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notifications: %w", err)
	}

	var total int64
	if err := db.conn.QueryRow(countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkNotificationsRead sets read_at on the given notification ids owned by the
// user. Rows already read keep their original read_at.
func (db *DB) MarkNotificationsRead(userID string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := db.conn.Exec(`
		UPDATE activity_notifications
		SET read_at = now()
		WHERE user_id = $1 AND id = ANY($2) AND read_at IS NULL
	`, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
