package api

import (
	"context"
	"fmt"
	"strings"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/google/uuid"
)

// GetAccount resolves an account number through the directory.
func (s *LedgerService) GetAccount(ctx context.Context, userId, accountNumber string) (*models.Account, error) {
	if _, err := s.activeUser(ctx, userId); err != nil {
		return nil, err
	}
	return s.store.GetAccount(ctx, strings.TrimSpace(accountNumber))
}

func (s *LedgerService) CreateAccount(ctx context.Context, adminId string, req models.AccountRequest) (*models.Account, error) {
	admin, err := s.requireAdmin(ctx, adminId)
	if err != nil {
		return nil, err
	}

	a := &models.Account{
		Id:            uuid.New().String(),
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		FullName:      strings.TrimSpace(req.FullName),
		BankName:      strings.TrimSpace(req.BankName),
		CreatedAt:     s.now(),
	}
	if a.AccountNumber == "" || a.FullName == "" || a.BankName == "" {
		return nil, fmt.Errorf("%w: account number, full name and bank name are required", store.ErrValidation)
	}

	activity := s.newActivity(admin, "create_account", a.Id, "Account", map[string]any{"accountNumber": a.AccountNumber})
	if err := s.store.CreateAccount(ctx, a, activity); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *LedgerService) EditAccount(ctx context.Context, adminId string, req models.AccountRequest) (*models.Account, error) {
	admin, err := s.requireAdmin(ctx, adminId)
	if err != nil {
		return nil, err
	}

	accountNumber := strings.TrimSpace(req.AccountNumber)
	if accountNumber == "" {
		return nil, fmt.Errorf("%w: account number is required", store.ErrValidation)
	}
	fullName, bankName := strings.TrimSpace(req.FullName), strings.TrimSpace(req.BankName)
	if fullName == "" && bankName == "" {
		return nil, fmt.Errorf("%w: nothing to update", store.ErrValidation)
	}

	return s.store.UpdateAccount(ctx, store.UpdateAccountParams{
		AccountNumber: accountNumber,
		FullName:      fullName,
		BankName:      bankName,
		Activity: s.newActivity(admin, "edit_account", accountNumber, "Account", map[string]any{
			"fullName": fullName,
			"bankName": bankName,
		}),
	})
}

func (s *LedgerService) DeleteAccount(ctx context.Context, adminId, id string) error {
	admin, err := s.requireAdmin(ctx, adminId)
	if err != nil {
		return err
	}
	return s.store.DeleteAccount(ctx, id, s.newActivity(admin, "delete_account", id, "Account", nil))
}
