package database

import (
	"context"
	"fmt"
	"time"

	"bank-ledger-go/internal/models"
)

// SaveNotification persists a notification once; a repeated id is ignored
// and reported as not inserted.
func (s *Service) SaveNotification(ctx context.Context, n *models.Notification) (bool, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	data, err := encodeJSONMap(n.Data)
	if err != nil {
		return false, fmt.Errorf("failed to encode notification data: %w", err)
	}

	result, err := s.conn().exec(ctx, queryInsertNotification,
		n.Id, n.UserId, n.Type, n.Subtype, n.Title, n.Message, data, n.Read, n.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return inserted > 0, nil
}

func (s *Service) ListNotifications(ctx context.Context, userId string, page models.PageRequest) ([]models.Notification, int, error) {
	page = page.Normalize()
	c := s.conn()

	total, err := countRows(ctx, c, queryCountNotifications, userId)
	if err != nil {
		return nil, 0, err
	}

	rows, err := c.query(ctx, queryListNotifications, userId, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer closeRows(rows)

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var data string
		err := rows.Scan(&n.Id, &n.UserId, &n.Type, &n.Subtype, &n.Title, &n.Message, &data, &n.Read, &n.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		if n.Data, err = decodeJSONMap(data); err != nil {
			return nil, 0, fmt.Errorf("failed to decode notification data: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, total, nil
}

// MarkNotificationsRead marks the given notifications read, or all of the
// user's unread notifications when ids is empty.
func (s *Service) MarkNotificationsRead(ctx context.Context, userId string, ids []string) (int64, error) {
	query := queryMarkAllNotificationsRead
	args := []any{true, userId, false}
	if len(ids) > 0 {
		query += ` AND id IN (` + placeholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}

	result, err := s.conn().exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}
