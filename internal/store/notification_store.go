package store

import (
	"fmt"
	"time"

	"github.com/vrsandeep/intake-go/internal/models"
)

// CreateNotification stores an unread notification for userID.
func (s *Store) CreateNotification(userID, message, link, notificationType string) (*models.Notification, error) {
	if userID == "" || message == "" {
		return nil, fmt.Errorf("userId and message are required")
	}
	n := &models.Notification{
		ID:        newID(),
		UserID:    userID,
		Message:   message,
		Link:      link,
		Type:      notificationType,
		CreatedAt: now(),
	}
	_, err := s.db.Exec(
		"INSERT INTO notifications (id, user_id, message, link, type, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		n.ID, n.UserID, n.Message, n.Link, n.Type, n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(userID string, unreadOnly bool) ([]models.Notification, error) {
	query := "SELECT id, user_id, message, link, type, read, created_at FROM notifications WHERE user_id = ?"
	if unreadOnly {
		query += " AND read = 0"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flags a notification as read.
func (s *Store) MarkNotificationRead(id string) error {
	res, err := s.db.Exec("UPDATE notifications SET read = 1 WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneReadNotifications deletes read notifications created before cutoff
// and returns how many were removed.
func (s *Store) PruneReadNotifications(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM notifications WHERE read = 1 AND created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
