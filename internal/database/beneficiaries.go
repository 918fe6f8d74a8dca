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

func scanBeneficiary(row rowScanner) (*models.Beneficiary, error) {
	var b models.Beneficiary
	err := row.Scan(&b.Id, &b.UserId, &b.AccountNumber, &b.FullName, &b.BankName, &b.Note, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBeneficiary looks a beneficiary up by owner and account number.
func (s *Service) GetBeneficiary(ctx context.Context, userId, accountNumber string) (*models.Beneficiary, error) {
	b, err := scanBeneficiary(s.conn().queryRow(ctx, queryGetBeneficiary, userId, accountNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("beneficiary %s: %w", accountNumber, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query beneficiary: %w", err)
	}
	return b, nil
}

func (s *Service) CreateBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	_, err := s.conn().exec(ctx, queryInsertBeneficiary,
		b.Id, b.UserId, b.AccountNumber, b.FullName, b.BankName, b.Note, b.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: beneficiary %s already saved", store.ErrDuplicate, b.AccountNumber)
		}
		return fmt.Errorf("unable to insert beneficiary: %w", err)
	}

	zap.L().Info("Beneficiary saved",
		zap.String("user_id", b.UserId),
		zap.String("account_number", b.AccountNumber),
		zap.String("bank_name", b.BankName))
	return nil
}

func (s *Service) ListBeneficiaries(ctx context.Context, userId string) ([]models.Beneficiary, error) {
	rows, err := s.conn().query(ctx, queryListBeneficiaries, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list beneficiaries: %w", err)
	}
	defer closeRows(rows)

	var beneficiaries []models.Beneficiary
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary: %w", err)
		}
		beneficiaries = append(beneficiaries, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating beneficiary rows: %w", err)
	}
	return beneficiaries, nil
}

func (s *Service) DeleteBeneficiary(ctx context.Context, id, userId string) error {
	result, err := s.conn().exec(ctx, queryDeleteBeneficiary, id, userId)
	if err != nil {
		return fmt.Errorf("failed to delete beneficiary: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("beneficiary %s: %w", id, store.ErrNotFound)
	}
	return nil
}
