package api

import (
	"context"
	"fmt"
	"strings"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/google/uuid"
)

func (s *LedgerService) ListBeneficiaries(ctx context.Context, userId string) ([]models.Beneficiary, error) {
	list, err := s.store.ListBeneficiaries(ctx, userId)
	if err != nil {
		return nil, err
	}
	return nonNil(list), nil
}

func (s *LedgerService) CreateBeneficiary(ctx context.Context, userId string, req models.BeneficiaryRequest) (*models.Beneficiary, error) {
	user, err := s.activeUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.AccountNumber) == "" || strings.TrimSpace(req.FullName) == "" {
		return nil, fmt.Errorf("%w: account number and full name are required", store.ErrValidation)
	}

	b := &models.Beneficiary{
		Id:            uuid.New().String(),
		UserId:        user.Id,
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		FullName:      strings.TrimSpace(req.FullName),
		BankName:      strings.TrimSpace(req.BankName),
		Note:          req.Note,
	}
	if err := s.store.CreateBeneficiary(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *LedgerService) DeleteBeneficiary(ctx context.Context, userId, id string) error {
	return s.store.DeleteBeneficiary(ctx, id, userId)
}
