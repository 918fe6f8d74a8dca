package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetBalance returns the materialized balance for a user (O(1) lookup)
func (s *SubledgerService) GetBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	zap.L().Debug("Getting balance", zap.String("user_id", userId))

	var balance decimal.Decimal
	err := s.conn().queryRow(ctx, queryGetBalance, userId).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		// No balance record means zero balance
		return decimal.Zero, nil
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("user_id", userId), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}

// CalculateBalance derives the balance from the full record history:
// successful credits add, successful debits subtract. Read-only.
func (s *SubledgerService) CalculateBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	rows, err := s.conn().query(ctx, queryScanSuccessfulTransactions, userId, string(models.StatusSuccessful))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to scan transactions: %w", err)
	}
	defer closeRows(rows)

	balance := decimal.Zero
	for rows.Next() {
		var txType string
		var amount decimal.Decimal
		if err := rows.Scan(&txType, &amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan transaction amount: %w", err)
		}
		switch models.TransactionType(txType) {
		case models.TransactionCredit:
			balance = balance.Add(amount)
		case models.TransactionDebit:
			balance = balance.Sub(amount)
		}
	}

	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return balance, nil
}

// ReconcileBalance verifies that the aggregate matches the sum of all successful transactions
func (s *SubledgerService) ReconcileBalance(ctx context.Context, userId string) (*models.ReconciliationResult, error) {
	zap.L().Info("Reconciling balance", zap.String("user_id", userId))

	currentBalance, err := s.GetBalance(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	calculatedBalance, err := s.CalculateBalance(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate balance from transactions: %w", err)
	}

	result := &models.ReconciliationResult{
		UserId:     userId,
		Stored:     currentBalance,
		Calculated: calculatedBalance,
		Matches:    currentBalance.Equal(calculatedBalance),
		CheckedAt:  time.Now().UTC(),
	}

	// Check if balances match (exact decimal comparison)
	if !result.Matches {
		zap.L().Error("Balance reconciliation failed",
			zap.String("user_id", userId),
			zap.String("current_balance", currentBalance.String()),
			zap.String("calculated_balance", calculatedBalance.String()),
			zap.String("difference", currentBalance.Sub(calculatedBalance).String()))
		return result, fmt.Errorf("%w: current=%s, calculated=%s", store.ErrBalanceMismatch, currentBalance.String(), calculatedBalance.String())
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("user_id", userId),
		zap.String("balance", currentBalance.String()))
	return result, nil
}

// Service convenience methods

func (s *Service) GetUserBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	return s.subledger.GetBalance(ctx, userId)
}

func (s *Service) CalculateBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	return s.subledger.CalculateBalance(ctx, userId)
}

func (s *Service) ReconcileUserBalance(ctx context.Context, userId string) (*models.ReconciliationResult, error) {
	return s.subledger.ReconcileBalance(ctx, userId)
}
