/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

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

// SubledgerService owns the transaction records and the materialized
// balance aggregate derived from them.
type SubledgerService struct {
	db     *sql.DB
	driver string
}

func NewSubledgerService(db *sql.DB, driver string) *SubledgerService {
	return &SubledgerService{
		db:     db,
		driver: driver,
	}
}

func (s *SubledgerService) conn() conn {
	return conn{q: s.db, driver: s.driver}
}

func (s *SubledgerService) InitSchema(ctx context.Context) error {
	schema := `
	-- Account Balances Table (Current State - Hot Data)
	CREATE TABLE IF NOT EXISTS account_balances (
		user_id TEXT PRIMARY KEY,
		balance TEXT NOT NULL DEFAULT '0',
		last_transaction_id TEXT NOT NULL DEFAULT '',
		version BIGINT NOT NULL DEFAULT 1,
		updated_at TIMESTAMPTZ NOT NULL
	);

	-- Transactions Table (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		transaction_id TEXT NOT NULL UNIQUE,
		transaction_type TEXT NOT NULL,
		sub_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	-- Performance Indexes for Transactions
	CREATE INDEX IF NOT EXISTS idx_transactions_user_status ON transactions(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);
	`

	return execSchema(ctx, s.db, s.driver, schema)
}

// appendTransaction inserts a ledger entry and, when it counts towards the
// balance, moves the aggregate in the same database transaction.
func (s *SubledgerService) appendTransaction(ctx context.Context, c conn, t *models.Transaction) error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must be a non-negative magnitude", store.ErrValidation)
	}

	zap.L().Info("Processing transaction",
		zap.String("user_id", t.UserId),
		zap.String("transaction_id", t.TransactionId),
		zap.String("type", string(t.TransactionType)),
		zap.String("sub_type", string(t.SubType)),
		zap.String("amount", t.Amount.String()),
		zap.String("status", string(t.Status)))

	_, err := c.exec(ctx, queryInsertTransaction,
		t.Id, t.UserId, t.TransactionId, string(t.TransactionType), string(t.SubType),
		t.Amount.String(), t.Description, t.Level, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: transaction_id %s already exists", store.ErrDuplicate, t.TransactionId)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if !t.Counts() {
		return nil
	}
	return s.applyBalanceDelta(ctx, c, t.UserId, t.Delta(), t.Id)
}

// applyBalanceDelta moves the aggregate by delta under a version check.
func (s *SubledgerService) applyBalanceDelta(ctx context.Context, c conn, userId string, delta decimal.Decimal, transactionId string) error {
	now := time.Now().UTC()

	var currentBalance decimal.Decimal
	var version int64
	err := c.queryRow(ctx, queryGetAccountBalance+c.forUpdate(), userId).Scan(&currentBalance, &version)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = c.exec(ctx, queryInsertAccountBalance, userId, delta.String(), transactionId, now)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("balance create failed - %w", store.ErrConcurrentModification)
			}
			return fmt.Errorf("failed to create account balance: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	newBalance := currentBalance.Add(delta)

	// Update account balance (with optimistic locking)
	result, err := c.exec(ctx, queryUpdateAccountBalance, newBalance.String(), transactionId, now, userId, version)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	zap.L().Debug("Balance aggregate updated",
		zap.String("user_id", userId),
		zap.String("old_balance", currentBalance.String()),
		zap.String("new_balance", newBalance.String()),
		zap.Int64("version", version+1))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var txType, subType, status string
	err := row.Scan(&t.Id, &t.UserId, &t.TransactionId, &txType, &subType,
		&t.Amount, &t.Description, &t.Level, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.TransactionType = models.TransactionType(txType)
	t.SubType = models.SubType(subType)
	t.Status = models.TransactionStatus(status)
	return &t, nil
}

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	defer closeRows(rows)

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}
