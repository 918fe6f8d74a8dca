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

func scanDepositRequest(row rowScanner) (*models.DepositRequest, error) {
	var d models.DepositRequest
	var accepted, status string
	err := row.Scan(&d.Id, &d.UserId, &accepted, &d.Amount, &d.Hash, &status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.IsAccepted = models.AcceptanceState(accepted)
	d.Status = models.TransactionStatus(status)
	return &d, nil
}

func scanDepositRows(rows *sql.Rows) ([]models.DepositRequest, error) {
	defer closeRows(rows)

	var list []models.DepositRequest
	for rows.Next() {
		d, err := scanDepositRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit request: %w", err)
		}
		list = append(list, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit request rows: %w", err)
	}
	return list, nil
}

func (s *Service) CreateDepositRequest(ctx context.Context, d *models.DepositRequest) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.IsAccepted == "" {
		d.IsAccepted = models.AcceptancePending
	}
	if d.Status == "" {
		d.Status = models.StatusPending
	}

	_, err := s.conn().exec(ctx, queryInsertDepositRequest,
		d.Id, d.UserId, string(d.IsAccepted), d.Amount.String(), d.Hash, string(d.Status), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("unable to insert deposit request: %w", err)
	}

	zap.L().Info("Deposit request created",
		zap.String("id", d.Id),
		zap.String("user_id", d.UserId),
		zap.String("amount", d.Amount.String()))
	return nil
}

func (s *Service) GetDepositRequest(ctx context.Context, id string) (*models.DepositRequest, error) {
	d, err := scanDepositRequest(s.conn().queryRow(ctx, queryGetDepositRequest, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deposit request %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query deposit request: %w", err)
	}
	return d, nil
}

func (s *Service) ListUserDepositRequests(ctx context.Context, userId string) ([]models.DepositRequest, error) {
	rows, err := s.conn().query(ctx, queryListUserDepositRequests, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposit requests: %w", err)
	}
	return scanDepositRows(rows)
}

func (s *Service) ListDepositRequests(ctx context.Context, page models.PageRequest) ([]models.DepositRequest, int, error) {
	page = page.Normalize()
	c := s.conn()

	total, err := countRows(ctx, c, queryCountDepositRequests)
	if err != nil {
		return nil, 0, err
	}

	rows, err := c.query(ctx, queryListDepositRequests, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deposit requests: %w", err)
	}
	list, err := scanDepositRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// UpdateDepositHash is the owner's edit: only the settlement hash may change.
func (s *Service) UpdateDepositHash(ctx context.Context, id, userId, hash string) (*models.DepositRequest, error) {
	result, err := s.conn().exec(ctx, queryUpdateDepositHash, hash, time.Now().UTC(), id, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to update deposit hash: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("deposit request %s: %w", id, store.ErrNotFound)
	}
	return s.GetDepositRequest(ctx, id)
}

// ApplyDepositUpdate applies an administrative edit. The update only lands if
// the request still has PriorStatus, so a credit is issued at most once.
func (s *Service) ApplyDepositUpdate(ctx context.Context, params store.DepositApprovalParams) (*models.DepositRequest, error) {
	var updated *models.DepositRequest

	err := s.inTx(ctx, func(c conn) error {
		d, err := scanDepositRequest(c.queryRow(ctx, queryGetDepositRequest+c.forUpdate(), params.Id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("deposit request %s: %w", params.Id, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("unable to query deposit request: %w", err)
		}
		if d.Status != params.PriorStatus {
			return fmt.Errorf("deposit status is %s, expected %s - %w", d.Status, params.PriorStatus, store.ErrConcurrentModification)
		}

		if u := params.Update; u.IsAccepted != nil {
			d.IsAccepted = *u.IsAccepted
		}
		if u := params.Update; u.Status != nil {
			if err := store.CheckDepositTransition(d.Status, *u.Status); err != nil {
				return err
			}
			d.Status = *u.Status
		}
		if u := params.Update; u.Hash != nil {
			d.Hash = *u.Hash
		}

		if params.Credit != nil && (params.PriorStatus == models.StatusSuccessful || d.Status != models.StatusSuccessful) {
			return fmt.Errorf("%w: credit only accompanies a transition to successful", store.ErrValidation)
		}

		d.UpdatedAt = time.Now().UTC()
		result, err := c.exec(ctx, queryUpdateDepositRequest,
			string(d.IsAccepted), string(d.Status), d.Hash, d.UpdatedAt, d.Id, string(params.PriorStatus))
		if err != nil {
			return fmt.Errorf("failed to update deposit request: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("deposit update failed - %w", store.ErrConcurrentModification)
		}

		if params.Credit != nil {
			if err := s.subledger.appendTransaction(ctx, c, params.Credit); err != nil {
				return err
			}
		}
		if err := insertActivity(ctx, c, params.Activity); err != nil {
			return err
		}
		if err := insertOutbox(ctx, c, params.Outbox); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Deposit request updated",
		zap.String("id", updated.Id),
		zap.String("status", string(updated.Status)),
		zap.String("is_accepted", string(updated.IsAccepted)),
		zap.Bool("credited", params.Credit != nil))
	return updated, nil
}

func (s *Service) DeleteDepositRequest(ctx context.Context, id string, activity *models.Activity) error {
	return s.inTx(ctx, func(c conn) error {
		d, err := scanDepositRequest(c.queryRow(ctx, queryGetDepositRequest+c.forUpdate(), id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("deposit request %s: %w", id, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("unable to query deposit request: %w", err)
		}

		if _, err := c.exec(ctx, queryDeleteDepositRequest, id); err != nil {
			return fmt.Errorf("failed to delete deposit request: %w", err)
		}

		if activity != nil && activity.Metadata == nil {
			activity.Metadata = map[string]any{"before": d}
		}
		return insertActivity(ctx, c, activity)
	})
}
