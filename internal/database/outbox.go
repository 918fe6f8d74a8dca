package database

import (
	"context"
	"fmt"
	"time"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"go.uber.org/zap"
)

func insertOutbox(ctx context.Context, c conn, messages []models.OutboxMessage) error {
	now := time.Now().UTC()
	for _, m := range messages {
		if m.Status == "" {
			m.Status = models.OutboxPending
		}
		if m.NextAttemptAt.IsZero() {
			m.NextAttemptAt = now
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		_, err := c.exec(ctx, queryInsertOutbox,
			m.Id, string(m.Kind), string(m.Payload), string(m.Status), m.Attempts,
			m.NextAttemptAt, m.LastError, m.CreatedAt, now)
		if err != nil {
			return fmt.Errorf("failed to enqueue %s message: %w", m.Kind, err)
		}
	}
	return nil
}

// EnqueueOutbox writes messages outside of any ledger mutation.
func (s *Service) EnqueueOutbox(ctx context.Context, messages []models.OutboxMessage) error {
	if len(messages) == 0 {
		return nil
	}
	return s.inTx(ctx, func(c conn) error {
		return insertOutbox(ctx, c, messages)
	})
}

// FetchDueOutbox returns pending messages whose next attempt is due, oldest first.
func (s *Service) FetchDueOutbox(ctx context.Context, now time.Time, limit int) ([]models.OutboxMessage, error) {
	rows, err := s.conn().query(ctx, queryFetchDueOutbox, string(models.OutboxPending), now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox: %w", err)
	}
	defer closeRows(rows)

	var messages []models.OutboxMessage
	for rows.Next() {
		var m models.OutboxMessage
		var kind, payload, status string
		err := rows.Scan(&m.Id, &kind, &payload, &status, &m.Attempts,
			&m.NextAttemptAt, &m.LastError, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		m.Kind = models.OutboxKind(kind)
		m.Payload = []byte(payload)
		m.Status = models.OutboxStatus(status)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox rows: %w", err)
	}
	return messages, nil
}

func (s *Service) MarkOutboxDelivered(ctx context.Context, id string) error {
	_, err := s.conn().exec(ctx, queryMarkOutboxDelivered, string(models.OutboxDelivered), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message delivered: %w", err)
	}
	return nil
}

func (s *Service) MarkOutboxAttempt(ctx context.Context, params store.OutboxAttemptParams) error {
	status := models.OutboxPending
	if params.Failed {
		status = models.OutboxFailed
	}

	_, err := s.conn().exec(ctx, queryMarkOutboxAttempt,
		string(status), params.NextAttemptAt.UTC(), params.LastError, time.Now().UTC(), params.Id)
	if err != nil {
		return fmt.Errorf("failed to record outbox attempt: %w", err)
	}

	if params.Failed {
		zap.L().Error("Outbox message abandoned",
			zap.String("id", params.Id),
			zap.String("last_error", params.LastError))
	}
	return nil
}
