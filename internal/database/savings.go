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

func scanSavings(row rowScanner) (*models.Savings, error) {
	var sv models.Savings
	var status string
	var endDate sql.NullTime
	err := row.Scan(&sv.Id, &sv.UserId, &sv.Title, &sv.SavedAmount, &sv.TargetAmount, &endDate,
		&status, &sv.Version, &sv.CreatedAt, &sv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sv.Status = models.SavingsStatus(status)
	if endDate.Valid {
		t := endDate.Time
		sv.EndDate = &t
	}
	return &sv, nil
}

func scanSavingsRows(rows *sql.Rows) ([]models.Savings, error) {
	defer closeRows(rows)

	var list []models.Savings
	for rows.Next() {
		sv, err := scanSavings(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan savings: %w", err)
		}
		list = append(list, *sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating savings rows: %w", err)
	}
	return list, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (s *Service) CreateSavings(ctx context.Context, sv *models.Savings) error {
	now := time.Now().UTC()
	if sv.CreatedAt.IsZero() {
		sv.CreatedAt = now
	}
	sv.UpdatedAt = now
	if sv.Status == "" {
		sv.Status = models.SavingsActive
	}
	if sv.Version == 0 {
		sv.Version = 1
	}

	var target any
	if sv.TargetAmount.Valid {
		target = sv.TargetAmount.Decimal.String()
	}

	_, err := s.conn().exec(ctx, queryInsertSavings,
		sv.Id, sv.UserId, sv.Title, sv.SavedAmount.String(), target, nullTime(sv.EndDate),
		string(sv.Status), sv.Version, sv.CreatedAt, sv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("unable to insert savings: %w", err)
	}

	zap.L().Info("Savings account created", zap.String("id", sv.Id), zap.String("user_id", sv.UserId), zap.String("title", sv.Title))
	return nil
}

// GetSavings is the ownership lookup: the account must belong to userId.
func (s *Service) GetSavings(ctx context.Context, savingsId, userId string) (*models.Savings, error) {
	sv, err := scanSavings(s.conn().queryRow(ctx, queryGetSavings, savingsId, userId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("savings %s: %w", savingsId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query savings: %w", err)
	}
	return sv, nil
}

func (s *Service) ListUserSavings(ctx context.Context, userId string) ([]models.Savings, error) {
	rows, err := s.conn().query(ctx, queryListUserSavings, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings: %w", err)
	}
	return scanSavingsRows(rows)
}

func (s *Service) ListSavings(ctx context.Context, page models.PageRequest) ([]models.Savings, int, error) {
	page = page.Normalize()
	c := s.conn()

	total, err := countRows(ctx, c, queryCountSavings)
	if err != nil {
		return nil, 0, err
	}

	rows, err := c.query(ctx, queryListSavings, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list savings: %w", err)
	}
	list, err := scanSavingsRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// lockSavings re-reads an owned savings account inside a write transaction
// and verifies the version the caller validated against.
func lockSavings(ctx context.Context, c conn, params store.SavingsMovementParams) (*models.Savings, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}

	sv, err := scanSavings(c.queryRow(ctx, queryGetSavings+c.forUpdate(), params.SavingsId, params.UserId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("savings %s: %w", params.SavingsId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query savings: %w", err)
	}
	if params.ExpectedVersion > 0 && sv.Version != params.ExpectedVersion {
		return nil, fmt.Errorf("savings version %d, expected %d - %w", sv.Version, params.ExpectedVersion, store.ErrConcurrentModification)
	}
	return sv, nil
}

func updateSavings(ctx context.Context, c conn, sv *models.Savings) error {
	now := time.Now().UTC()
	result, err := c.exec(ctx, queryUpdateSavings, sv.SavedAmount.String(), string(sv.Status), now, sv.Id, sv.Version)
	if err != nil {
		return fmt.Errorf("failed to update savings: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("savings update failed - %w", store.ErrConcurrentModification)
	}
	sv.Version++
	sv.UpdatedAt = now
	return nil
}

// TopUpSavings adds to an owned savings account. Only ownership is checked and
// no ceiling applies. The main balance is not touched.
func (s *Service) TopUpSavings(ctx context.Context, params store.SavingsMovementParams) (*models.Savings, error) {
	var result *models.Savings

	err := s.inTx(ctx, func(c conn) error {
		sv, err := lockSavings(ctx, c, params)
		if err != nil {
			return err
		}

		next := store.ApplyTopUp(*sv, params.Amount)
		if err := updateSavings(ctx, c, &next); err != nil {
			return err
		}
		if err := insertOutbox(ctx, c, params.Outbox); err != nil {
			return err
		}
		result = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Savings topped up",
		zap.String("savings_id", result.Id),
		zap.String("amount", params.Amount.String()),
		zap.String("saved_amount", result.SavedAmount.String()),
		zap.String("status", string(result.Status)))
	return result, nil
}

// WithdrawSavings moves funds from a savings account back to the main balance.
func (s *Service) WithdrawSavings(ctx context.Context, params store.SavingsMovementParams) (*models.Savings, error) {
	var result *models.Savings

	if params.Transaction == nil {
		return nil, fmt.Errorf("%w: transaction is required", store.ErrValidation)
	}

	err := s.inTx(ctx, func(c conn) error {
		sv, err := lockSavings(ctx, c, params)
		if err != nil {
			return err
		}
		if err := store.CheckSavingsWithdrawal(sv, params.Amount); err != nil {
			return err
		}

		sv.SavedAmount = sv.SavedAmount.Sub(params.Amount)
		if err := updateSavings(ctx, c, sv); err != nil {
			return err
		}
		if err := s.subledger.appendTransaction(ctx, c, params.Transaction); err != nil {
			return err
		}
		if err := insertOutbox(ctx, c, params.Outbox); err != nil {
			return err
		}
		result = sv
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Savings withdrawn",
		zap.String("savings_id", result.Id),
		zap.String("amount", params.Amount.String()),
		zap.String("saved_amount", result.SavedAmount.String()))
	return result, nil
}

// DeleteSavings removes an empty savings account.
func (s *Service) DeleteSavings(ctx context.Context, savingsId string, activity *models.Activity) error {
	return s.inTx(ctx, func(c conn) error {
		sv, err := scanSavings(c.queryRow(ctx, queryGetSavingsById+c.forUpdate(), savingsId))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("savings %s: %w", savingsId, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("unable to query savings: %w", err)
		}
		if !sv.SavedAmount.IsZero() {
			return fmt.Errorf("%w: %s still holds %s", store.ErrSavingsNotEmpty, sv.Title, sv.SavedAmount.String())
		}

		if _, err := c.exec(ctx, queryDeleteSavings, savingsId); err != nil {
			return fmt.Errorf("failed to delete savings: %w", err)
		}

		if activity != nil && activity.Metadata == nil {
			activity.Metadata = map[string]any{"before": sv}
		}
		return insertActivity(ctx, c, activity)
	})
}

// CompleteMaturedSavings marks active accounts whose target is reached or
// whose end date has passed as completed. Accounts modified concurrently are
// left for the next sweep.
func (s *Service) CompleteMaturedSavings(ctx context.Context, now time.Time) (int, error) {
	c := s.conn()
	rows, err := c.query(ctx, queryListMaturingSavings, string(models.SavingsActive))
	if err != nil {
		return 0, fmt.Errorf("failed to list maturing savings: %w", err)
	}
	candidates, err := scanSavingsRows(rows)
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range candidates {
		sv := &candidates[i]
		if !store.ShouldMature(sv, now) {
			continue
		}

		result, err := c.exec(ctx, queryCompleteSavings, string(models.SavingsCompleted), now.UTC(), sv.Id, sv.Version)
		if err != nil {
			return completed, fmt.Errorf("failed to complete savings %s: %w", sv.Id, err)
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			completed++
			zap.L().Info("Savings matured", zap.String("savings_id", sv.Id), zap.String("user_id", sv.UserId))
		}
	}
	return completed, nil
}

// ApplySavingsInterest credits one day of interest to every active savings
// account not yet credited today. Interest grows the saved amount only and
// completes an account that reaches its target. A version conflict skips the
// account until the next run.
func (s *Service) ApplySavingsInterest(ctx context.Context, params store.SavingsInterestParams) (int, error) {
	if !params.AnnualRate.IsPositive() {
		return 0, nil
	}
	day := store.InterestDay(params.Now)

	c := s.conn()
	rows, err := c.query(ctx, queryListInterestDueSavings, string(models.SavingsActive), day)
	if err != nil {
		return 0, fmt.Errorf("failed to list savings due interest: %w", err)
	}
	candidates, err := scanSavingsRows(rows)
	if err != nil {
		return 0, err
	}

	credited := 0
	for i := range candidates {
		sv := &candidates[i]
		interest := store.DailyInterest(sv.SavedAmount, params.AnnualRate)
		next := store.ApplyTopUp(*sv, interest)

		now := params.Now.UTC()
		result, err := c.exec(ctx, queryAccrueSavingsInterest,
			next.SavedAmount.String(), string(next.Status), now, now, sv.Id, sv.Version)
		if err != nil {
			return credited, fmt.Errorf("failed to accrue interest on savings %s: %w", sv.Id, err)
		}
		if n, err := result.RowsAffected(); err != nil || n == 0 {
			continue
		}
		if interest.IsPositive() {
			credited++
			zap.L().Info("Savings interest applied",
				zap.String("savings_id", sv.Id),
				zap.String("user_id", sv.UserId),
				zap.String("interest", interest.String()),
				zap.String("saved_amount", next.SavedAmount.String()))
		}
	}
	return credited, nil
}
