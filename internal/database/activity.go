package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bank-ledger-go/internal/models"

	"go.uber.org/zap"
)

func encodeJSONMap(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSONMap(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// insertActivity writes an audit entry. A nil activity is a no-op.
func insertActivity(ctx context.Context, c conn, a *models.Activity) error {
	if a == nil {
		return nil
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	metadata, err := encodeJSONMap(a.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode activity metadata: %w", err)
	}

	_, err = c.exec(ctx, queryInsertActivity,
		a.Id, a.AdminId, a.Action, a.TargetId, a.TargetModel, metadata, a.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	zap.L().Info("Activity recorded",
		zap.String("admin_id", a.AdminId),
		zap.String("action", a.Action),
		zap.String("target", a.TargetId),
		zap.String("target_model", a.TargetModel))
	return nil
}

func (s *Service) ListActivities(ctx context.Context, page models.PageRequest) ([]models.Activity, int, error) {
	page = page.Normalize()
	c := s.conn()

	total, err := countRows(ctx, c, queryCountActivities)
	if err != nil {
		return nil, 0, err
	}

	rows, err := c.query(ctx, queryListActivities, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activities: %w", err)
	}
	defer closeRows(rows)

	var activities []models.Activity
	for rows.Next() {
		var a models.Activity
		var metadata string
		if err := rows.Scan(&a.Id, &a.AdminId, &a.Action, &a.TargetId, &a.TargetModel, &metadata, &a.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("failed to scan activity: %w", err)
		}
		if a.Metadata, err = decodeJSONMap(metadata); err != nil {
			return nil, 0, fmt.Errorf("failed to decode activity metadata: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return activities, total, nil
}
