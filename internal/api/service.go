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

package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-ledger-go/internal/common"
	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxAttempts bounds retries after a lost optimistic-concurrency race.
const maxAttempts = 3

// LedgerService runs every ledger operation: precondition checks, the
// transactional write, and the outbox messages that follow it.
type LedgerService struct {
	store store.LedgerStore
	bank  *models.BankProfile
	now   func() time.Time
}

func NewLedgerService(st store.LedgerStore, bank *models.BankProfile) *LedgerService {
	if bank == nil {
		bank = common.DefaultBankProfile()
	}
	return &LedgerService{
		store: st,
		bank:  bank,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	_, err := s.store.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// retry re-runs fn while it reports a concurrent modification. fn must
// re-read whatever state it validates against.
func (s *LedgerService) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil || !store.IsRetryable(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(err, ctxErr)
		}
		zap.L().Warn("Retrying after concurrent modification",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return err
}

func (s *LedgerService) activeUser(ctx context.Context, userId string) (*models.User, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: missing user", store.ErrUnauthorized)
	}
	user, err := s.store.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user.Suspended {
		return nil, fmt.Errorf("user %s: %w", userId, store.ErrUserSuspended)
	}
	return user, nil
}

func (s *LedgerService) requireAdmin(ctx context.Context, adminId string) (*models.Admin, error) {
	if adminId == "" {
		return nil, fmt.Errorf("%w: missing admin", store.ErrUnauthorized)
	}
	admin, err := s.store.GetAdminById(ctx, adminId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown admin %s", store.ErrUnauthorized, adminId)
	}
	if err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *LedgerService) requireSuperAdmin(ctx context.Context, adminId string) (*models.Admin, error) {
	admin, err := s.requireAdmin(ctx, adminId)
	if err != nil {
		return nil, err
	}
	if !admin.IsSuperAdmin() {
		return nil, fmt.Errorf("%w: %s requires %s", store.ErrForbidden, admin.Email, models.RoleSuperAdmin)
	}
	return admin, nil
}

// newTransaction builds a ledger entry with a fresh external identifier.
func (s *LedgerService) newTransaction(userId string, txType models.TransactionType, subType models.SubType,
	amount decimal.Decimal, description string, status models.TransactionStatus) (*models.Transaction, error) {
	transactionId, err := common.GenerateTransactionId(s.bank.TransactionPrefix)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &models.Transaction{
		Id:              uuid.New().String(),
		UserId:          userId,
		TransactionId:   transactionId,
		TransactionType: txType,
		SubType:         subType,
		Amount:          amount,
		Description:     description,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (s *LedgerService) newActivity(admin *models.Admin, action, targetId, targetModel string, metadata map[string]any) *models.Activity {
	return &models.Activity{
		Id:          uuid.New().String(),
		AdminId:     admin.Id,
		Action:      action,
		TargetId:    targetId,
		TargetModel: targetModel,
		Metadata:    metadata,
		Timestamp:   s.now(),
	}
}

func validatePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", store.ErrValidation)
	}
	return nil
}
