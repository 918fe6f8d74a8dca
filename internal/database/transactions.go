package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"go.uber.org/zap"
)

// RecordTransaction appends one entry together with its outbox messages.
func (s *Service) RecordTransaction(ctx context.Context, params store.RecordTransactionParams) (*models.Transaction, error) {
	t := params.Transaction
	if t == nil {
		return nil, fmt.Errorf("%w: transaction is required", store.ErrValidation)
	}

	err := s.inTx(ctx, func(c conn) error {
		if err := s.subledger.appendTransaction(ctx, c, t); err != nil {
			return err
		}
		return insertOutbox(ctx, c, params.Outbox)
	})
	if err != nil {
		return nil, fmt.Errorf("error recording transaction: %w", err)
	}

	zap.L().Info("Transaction recorded",
		zap.String("id", t.Id),
		zap.String("transaction_id", t.TransactionId),
		zap.String("user_id", t.UserId),
		zap.Int("outbox_messages", len(params.Outbox)))
	return t, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	t, err := scanTransaction(s.conn().queryRow(ctx, queryGetTransaction, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query transaction: %w", err)
	}
	return t, nil
}

func (s *Service) ListTransactions(ctx context.Context, filter store.TransactionFilter, page models.PageRequest) ([]models.Transaction, int, error) {
	page = page.Normalize()
	txType := string(filter.TransactionType)

	zap.L().Debug("Getting transaction history",
		zap.String("user_id", filter.UserId),
		zap.String("type", txType),
		zap.Int("page", page.Page),
		zap.Int("limit", page.Limit))

	c := s.conn()
	total, err := countRows(ctx, c, queryCountTransactions, filter.UserId, filter.UserId, txType, txType)
	if err != nil {
		return nil, 0, err
	}

	rows, err := c.query(ctx, queryListTransactions,
		filter.UserId, filter.UserId, txType, txType, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get transaction history: %w", err)
	}

	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (s *Service) LastTransactions(ctx context.Context, userId string, n int) ([]models.Transaction, error) {
	rows, err := s.conn().query(ctx, queryLastTransactions, userId, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent transactions: %w", err)
	}
	return scanTransactions(rows)
}

// UpdateTransactionStatus settles a pending entry exactly once. A transition
// to successful moves the balance aggregate.
func (s *Service) UpdateTransactionStatus(ctx context.Context, params store.UpdateTransactionStatusParams) (*models.Transaction, error) {
	var updated *models.Transaction

	err := s.inTx(ctx, func(c conn) error {
		t, err := scanTransaction(c.queryRow(ctx, queryGetTransaction+c.forUpdate(), params.Id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %s: %w", params.Id, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("unable to query transaction: %w", err)
		}

		if err := store.CheckStatusTransition(t.Status, params.Status); err != nil {
			return err
		}

		now := time.Now().UTC()
		result, err := c.exec(ctx, queryUpdateTransactionStatus, string(params.Status), now, t.Id, string(models.StatusPending))
		if err != nil {
			return fmt.Errorf("failed to update transaction status: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("status update failed - %w", store.ErrConcurrentModification)
		}

		t.Status = params.Status
		t.UpdatedAt = now
		if t.Counts() {
			if err := s.subledger.applyBalanceDelta(ctx, c, t.UserId, t.Delta(), t.Id); err != nil {
				return err
			}
		}

		if err := insertActivity(ctx, c, params.Activity); err != nil {
			return err
		}
		if err := insertOutbox(ctx, c, params.Outbox); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transaction status updated",
		zap.String("id", updated.Id),
		zap.String("transaction_id", updated.TransactionId),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

// PurgeTransaction deletes an entry. Purging a successful entry reverses its
// effect on the balance aggregate.
func (s *Service) PurgeTransaction(ctx context.Context, id string, activity *models.Activity) (*models.Transaction, error) {
	var purged *models.Transaction

	err := s.inTx(ctx, func(c conn) error {
		t, err := scanTransaction(c.queryRow(ctx, queryGetTransaction+c.forUpdate(), id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("unable to query transaction: %w", err)
		}

		if _, err := c.exec(ctx, queryDeleteTransaction, id); err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}

		if t.Counts() {
			if err := s.subledger.applyBalanceDelta(ctx, c, t.UserId, t.Delta().Neg(), t.Id); err != nil {
				return err
			}
		}

		if activity != nil && activity.Metadata == nil {
			activity.Metadata = map[string]any{"before": t}
		}
		if err := insertActivity(ctx, c, activity); err != nil {
			return err
		}
		purged = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Warn("Transaction purged",
		zap.String("id", purged.Id),
		zap.String("transaction_id", purged.TransactionId),
		zap.String("user_id", purged.UserId),
		zap.String("status", string(purged.Status)))
	return purged, nil
}

// UpdateTransactionLevel relabels an entry owned by userId. The level is
// informational and never affects the balance.
func (s *Service) UpdateTransactionLevel(ctx context.Context, id, userId, level string) (*models.Transaction, error) {
	var updated *models.Transaction

	err := s.inTx(ctx, func(c conn) error {
		t, err := scanTransaction(c.queryRow(ctx, queryGetTransaction+c.forUpdate(), id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("unable to query transaction: %w", err)
		}
		if t.UserId != userId {
			return fmt.Errorf("%w: transaction belongs to another user", store.ErrForbidden)
		}

		now := time.Now().UTC()
		if _, err := c.exec(ctx, queryUpdateTransactionLevel, level, now, id, userId); err != nil {
			return fmt.Errorf("failed to update transaction level: %w", err)
		}
		t.Level = level
		t.UpdatedAt = now
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transaction level updated",
		zap.String("id", updated.Id),
		zap.String("user_id", updated.UserId),
		zap.String("level", level))
	return updated, nil
}
