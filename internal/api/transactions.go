package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	recentTransactionCount = 5
	maxLevelLength         = 32
)

func validateTransactionKind(req *models.CreateTransactionRequest) error {
	if err := validatePositive(req.Amount); err != nil {
		return err
	}
	if !req.TransactionType.Valid() {
		return fmt.Errorf("%w: transaction type %q", store.ErrValidation, req.TransactionType)
	}
	if req.SubType == "" {
		req.SubType = models.SubTypeTransfer
	}
	if !req.SubType.Valid() {
		return fmt.Errorf("%w: sub type %q", store.ErrValidation, req.SubType)
	}
	return nil
}

// projectedBalance is the balance the owner will see once t is applied.
func (s *LedgerService) projectedBalance(ctx context.Context, t *models.Transaction) (decimal.Decimal, error) {
	balance, err := s.store.GetUserBalance(ctx, t.UserId)
	if err != nil {
		return decimal.Zero, err
	}
	if t.Counts() {
		balance = balance.Add(t.Delta())
	}
	return balance, nil
}

// CreateTransaction records a user-initiated transfer. The entry starts
// pending and only affects the balance once an administrator settles it.
func (s *LedgerService) CreateTransaction(ctx context.Context, userId string, req models.CreateTransactionRequest) (*models.TransactionResult, error) {
	user, err := s.activeUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if err := validateTransactionKind(&req); err != nil {
		return nil, err
	}

	t, err := s.newTransaction(user.Id, req.TransactionType, req.SubType, req.Amount, req.Description, models.StatusPending)
	if err != nil {
		return nil, err
	}

	balance, messages, err := s.sideEffects(ctx, user, t, true)
	if err != nil {
		return nil, err
	}

	// The entry is committed alone so a failed beneficiary step leaves it
	// in place without notifying the user.
	result, err := s.commit(ctx, user, t, balance, nil)
	if err != nil {
		return nil, err
	}

	if req.Beneficiary && req.Details != nil && req.Details.AccountNumber != "" {
		if err := s.saveBeneficiary(ctx, user.Id, req.Details, req.Note); err != nil {
			zap.L().Error("Beneficiary creation failed after transaction was recorded",
				zap.String("user_id", user.Id),
				zap.String("transaction_id", t.TransactionId),
				zap.Error(err))
			return nil, fmt.Errorf("failed to add %s as a beneficiary: %w", req.Details.FullName, err)
		}
	}

	if err := s.store.EnqueueOutbox(ctx, messages); err != nil {
		zap.L().Error("Failed to enqueue transaction side effects",
			zap.String("user_id", user.Id),
			zap.String("transaction_id", t.TransactionId),
			zap.Error(err))
	}
	return result, nil
}

// CreateUserTransaction lets a super admin post an entry for any user with an
// explicit status. Side effects are only emitted when requested.
func (s *LedgerService) CreateUserTransaction(ctx context.Context, adminId string, req models.CreateTransactionRequest) (*models.TransactionResult, error) {
	admin, err := s.requireSuperAdmin(ctx, adminId)
	if err != nil {
		return nil, err
	}
	if err := validateTransactionKind(&req); err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", store.ErrValidation, req.Status)
	}

	user, err := s.store.GetUserById(ctx, req.UserId)
	if err != nil {
		return nil, err
	}

	t, err := s.newTransaction(user.Id, req.TransactionType, req.SubType, req.Amount, req.Description, req.Status)
	if err != nil {
		return nil, err
	}

	result, err := s.record(ctx, user, t, req.Notification)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Admin transaction recorded",
		zap.String("admin_id", admin.Id),
		zap.String("user_id", user.Id),
		zap.String("transaction_id", t.TransactionId),
		zap.String("status", string(t.Status)))
	return result, nil
}

func (s *LedgerService) record(ctx context.Context, user *models.User, t *models.Transaction, notify bool) (*models.TransactionResult, error) {
	balance, messages, err := s.sideEffects(ctx, user, t, notify)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, user, t, balance, messages)
}

// sideEffects builds the notification and alert email for t, quoting the
// balance the owner will see once it is applied.
func (s *LedgerService) sideEffects(ctx context.Context, user *models.User, t *models.Transaction, notify bool) (decimal.Decimal, []models.OutboxMessage, error) {
	balance, err := s.projectedBalance(ctx, t)
	if err != nil {
		return decimal.Zero, nil, err
	}

	var ob outbox
	if notify {
		ob.notify(s.transactionNotice(t, balance))
		ob.email(s.transactionAlert(user, t, balance))
	}
	messages, err := ob.build()
	if err != nil {
		return decimal.Zero, nil, err
	}
	return balance, messages, nil
}

func (s *LedgerService) commit(ctx context.Context, user *models.User, t *models.Transaction, balance decimal.Decimal, messages []models.OutboxMessage) (*models.TransactionResult, error) {
	recorded, err := s.store.RecordTransaction(ctx, store.RecordTransactionParams{Transaction: t, Outbox: messages})
	if err != nil {
		zap.L().Error("Transaction recording failed",
			zap.String("user_id", user.Id),
			zap.String("amount", t.Amount.String()),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("Transaction recorded",
		zap.String("user_id", user.Id),
		zap.String("transaction_id", recorded.TransactionId),
		zap.String("type", string(recorded.TransactionType)),
		zap.String("amount", recorded.Amount.String()),
		zap.String("balance", balance.String()))

	return &models.TransactionResult{Transaction: recorded, Balance: balance}, nil
}

func (s *LedgerService) saveBeneficiary(ctx context.Context, userId string, details *models.TransactionDetails, note string) error {
	_, err := s.store.GetBeneficiary(ctx, userId, details.AccountNumber)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	err = s.store.CreateBeneficiary(ctx, &models.Beneficiary{
		Id:            uuid.New().String(),
		UserId:        userId,
		AccountNumber: details.AccountNumber,
		FullName:      details.FullName,
		BankName:      details.BankName,
		Note:          note,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil
	}
	return err
}

// GetTransaction returns one of the caller's own entries.
func (s *LedgerService) GetTransaction(ctx context.Context, userId, id string) (*models.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserId != userId {
		return nil, fmt.Errorf("%w: transaction belongs to another user", store.ErrForbidden)
	}
	return t, nil
}

// EditTransactionLevel relabels one of the caller's own entries.
func (s *LedgerService) EditTransactionLevel(ctx context.Context, userId string, req models.TransactionLevelRequest) (*models.Transaction, error) {
	user, err := s.activeUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	level := strings.TrimSpace(req.Level)
	if req.TransactionId == "" || level == "" {
		return nil, fmt.Errorf("%w: transaction id and level are required", store.ErrValidation)
	}
	if utf8.RuneCountInString(level) > maxLevelLength || strings.ContainsAny(level, "\r\n") {
		return nil, fmt.Errorf("%w: level must be a single line of at most %d characters", store.ErrValidation, maxLevelLength)
	}
	return s.store.UpdateTransactionLevel(ctx, req.TransactionId, user.Id, level)
}

func (s *LedgerService) ListUserTransactions(ctx context.Context, userId string, txType models.TransactionType, page models.PageRequest) (*models.Paginated[models.Transaction], error) {
	if txType != "" && !txType.Valid() {
		return nil, fmt.Errorf("%w: transaction type %q", store.ErrValidation, txType)
	}
	return s.listTransactions(ctx, store.TransactionFilter{UserId: userId, TransactionType: txType}, page)
}

func (s *LedgerService) LastTransactions(ctx context.Context, userId string) ([]models.Transaction, error) {
	return s.store.LastTransactions(ctx, userId, recentTransactionCount)
}

// ListTransactions is the administrative listing across all users, or one
// user when filter.UserId is set.
func (s *LedgerService) ListTransactions(ctx context.Context, adminId string, filter store.TransactionFilter, page models.PageRequest) (*models.Paginated[models.Transaction], error) {
	if _, err := s.requireAdmin(ctx, adminId); err != nil {
		return nil, err
	}
	return s.listTransactions(ctx, filter, page)
}

func (s *LedgerService) listTransactions(ctx context.Context, filter store.TransactionFilter, page models.PageRequest) (*models.Paginated[models.Transaction], error) {
	page = page.Normalize()
	list, total, err := s.store.ListTransactions(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return &models.Paginated[models.Transaction]{Data: nonNil(list), Pagination: models.NewPagination(total, page)}, nil
}

// UpdateTransactionStatus settles a pending entry. A successful settlement
// applies the entry to the balance aggregate.
func (s *LedgerService) UpdateTransactionStatus(ctx context.Context, adminId, id string, status models.TransactionStatus) (*models.Transaction, error) {
	admin, err := s.requireSuperAdmin(ctx, adminId)
	if err != nil {
		return nil, err
	}
	if err := store.CheckStatusTransition(models.StatusPending, status); err != nil {
		return nil, err
	}

	var updated *models.Transaction
	err = s.retry(ctx, "update_transaction_status", func() error {
		before, err := s.store.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		user, err := s.store.GetUserById(ctx, before.UserId)
		if err != nil {
			return err
		}

		after := *before
		after.Status = status
		balance, err := s.projectedBalance(ctx, &after)
		if err != nil {
			return err
		}

		var ob outbox
		ob.notify(s.transactionNotice(&after, balance))
		ob.email(s.transactionAlert(user, &after, balance))
		messages, err := ob.build()
		if err != nil {
			return err
		}

		updated, err = s.store.UpdateTransactionStatus(ctx, store.UpdateTransactionStatusParams{
			Id:     id,
			Status: status,
			Activity: s.newActivity(admin, "update_transaction_status", id, "Transaction", map[string]any{
				"user":   before.UserId,
				"before": before.Status,
				"after":  status,
			}),
			Outbox: messages,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *LedgerService) PurgeTransaction(ctx context.Context, adminId, id string) error {
	admin, err := s.requireSuperAdmin(ctx, adminId)
	if err != nil {
		return err
	}

	return s.retry(ctx, "purge_transaction", func() error {
		_, err := s.store.PurgeTransaction(ctx, id, s.newActivity(admin, "delete_transaction", id, "Transaction", nil))
		return err
	})
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
