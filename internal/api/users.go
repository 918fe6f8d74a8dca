package api

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"bank-ledger-go/internal/common"
	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *LedgerService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: full name is required", store.ErrValidation)
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: email %q", store.ErrValidation, req.Email)
	}
	email := strings.ToLower(addr.Address)

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email %s is already registered", store.ErrDuplicate, email)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	accountNumber, err := common.GenerateAccountNumber()
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, store.CreateUserParams{
		Id:            uuid.New().String(),
		Name:          name,
		Email:         email,
		AccountNumber: accountNumber,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("User registered", zap.String("user_id", user.Id), zap.String("email", user.Email))
	return user, nil
}

func (s *LedgerService) GetUser(ctx context.Context, userId string) (*models.User, error) {
	return s.store.GetUserById(ctx, userId)
}

// GetBalance reads the materialized aggregate.
func (s *LedgerService) GetBalance(ctx context.Context, userId string) (*models.UserBalance, error) {
	if _, err := s.store.GetUserById(ctx, userId); err != nil {
		return nil, err
	}
	balance, err := s.store.GetUserBalance(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &models.UserBalance{UserId: userId, Balance: balance}, nil
}

// ReconcileBalance recomputes a user's balance from the full record set and
// compares it with the aggregate.
func (s *LedgerService) ReconcileBalance(ctx context.Context, adminId, userId string) (*models.ReconciliationResult, error) {
	if _, err := s.requireAdmin(ctx, adminId); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserById(ctx, userId); err != nil {
		return nil, err
	}
	return s.store.ReconcileUserBalance(ctx, userId)
}

func (s *LedgerService) SetUserSuspended(ctx context.Context, adminId, userId string, suspended bool) (*models.User, error) {
	admin, err := s.requireAdmin(ctx, adminId)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}

	action, subject := "unsuspend_user", "Your account has been reactivated"
	if suspended {
		action, subject = "suspend_user", "Your account has been suspended"
	}

	var ob outbox
	ob.email(models.EmailPayload{
		To:       user.Email,
		Subject:  subject,
		Template: TemplateSuspension,
		Data: map[string]any{
			"name":      user.Name,
			"suspended": suspended,
			"date":      formatDate(s.now()),
		},
	})
	messages, err := ob.build()
	if err != nil {
		return nil, err
	}

	activity := s.newActivity(admin, action, user.Id, "User", map[string]any{
		"before": user.Suspended,
		"after":  suspended,
	})
	return s.store.SetUserSuspended(ctx, user.Id, suspended, activity, messages)
}
