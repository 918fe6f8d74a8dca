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

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.Id, &a.AccountNumber, &a.FullName, &a.BankName, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func getAccount(ctx context.Context, c conn, accountNumber, lock string) (*models.Account, error) {
	a, err := scanAccount(c.queryRow(ctx, queryGetAccount+lock, accountNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", accountNumber, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query account: %w", err)
	}
	return a, nil
}

func (s *Service) GetAccount(ctx context.Context, accountNumber string) (*models.Account, error) {
	return getAccount(ctx, s.conn(), accountNumber, "")
}

// CreateAccount adds a directory entry. Account numbers are unique.
func (s *Service) CreateAccount(ctx context.Context, a *models.Account, activity *models.Activity) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = a.CreatedAt

	err := s.inTx(ctx, func(c conn) error {
		_, err := c.exec(ctx, queryInsertAccount,
			a.Id, a.AccountNumber, a.FullName, a.BankName, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: account %s already exists", store.ErrDuplicate, a.AccountNumber)
			}
			return fmt.Errorf("unable to insert account: %w", err)
		}
		return insertActivity(ctx, c, activity)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Account created",
		zap.String("id", a.Id),
		zap.String("account_number", a.AccountNumber),
		zap.String("bank_name", a.BankName))
	return nil
}

func (s *Service) UpdateAccount(ctx context.Context, params store.UpdateAccountParams) (*models.Account, error) {
	var updated *models.Account

	err := s.inTx(ctx, func(c conn) error {
		a, err := getAccount(ctx, c, params.AccountNumber, c.forUpdate())
		if err != nil {
			return err
		}

		if params.FullName != "" {
			a.FullName = params.FullName
		}
		if params.BankName != "" {
			a.BankName = params.BankName
		}
		a.UpdatedAt = time.Now().UTC()

		if _, err := c.exec(ctx, queryUpdateAccount, a.FullName, a.BankName, a.UpdatedAt, a.AccountNumber); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		if err := insertActivity(ctx, c, params.Activity); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Account updated",
		zap.String("id", updated.Id),
		zap.String("account_number", updated.AccountNumber))
	return updated, nil
}

func (s *Service) DeleteAccount(ctx context.Context, id string, activity *models.Activity) error {
	err := s.inTx(ctx, func(c conn) error {
		result, err := c.exec(ctx, queryDeleteAccount, id)
		if err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("account %s: %w", id, store.ErrNotFound)
		}
		return insertActivity(ctx, c, activity)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Account deleted", zap.String("id", id))
	return nil
}
