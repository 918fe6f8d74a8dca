package api

import (
	"context"
	"fmt"
	"strings"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *LedgerService) CreateSavings(ctx context.Context, userId string, req models.CreateSavingsRequest) (*models.Savings, error) {
	user, err := s.activeUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", store.ErrValidation)
	}
	if strings.ContainsAny(title, "\r\n") {
		return nil, fmt.Errorf("%w: title must be a single line", store.ErrValidation)
	}
	if req.TargetAmount.Valid && !req.TargetAmount.Decimal.IsPositive() {
		return nil, fmt.Errorf("%w: target amount must be greater than zero", store.ErrValidation)
	}
	if req.EndDate != nil && !req.EndDate.After(s.now()) {
		return nil, fmt.Errorf("%w: end date must be in the future", store.ErrValidation)
	}

	sv := &models.Savings{
		Id:           uuid.New().String(),
		UserId:       user.Id,
		Title:        title,
		TargetAmount: req.TargetAmount,
		EndDate:      req.EndDate,
		Status:       models.SavingsActive,
	}
	if err := s.store.CreateSavings(ctx, sv); err != nil {
		return nil, err
	}
	return sv, nil
}

func (s *LedgerService) ListUserSavings(ctx context.Context, userId string) ([]models.Savings, error) {
	list, err := s.store.ListUserSavings(ctx, userId)
	if err != nil {
		return nil, err
	}
	return nonNil(list), nil
}

func (s *LedgerService) ListSavings(ctx context.Context, adminId string, page models.PageRequest) (*models.Paginated[models.Savings], error) {
	if _, err := s.requireAdmin(ctx, adminId); err != nil {
		return nil, err
	}
	page = page.Normalize()
	list, total, err := s.store.ListSavings(ctx, page)
	if err != nil {
		return nil, err
	}
	return &models.Paginated[models.Savings]{Data: nonNil(list), Pagination: models.NewPagination(total, page)}, nil
}

// TopUpSavings adds to one of the user's savings accounts. Only ownership is
// checked and the main balance is left untouched.
func (s *LedgerService) TopUpSavings(ctx context.Context, userId string, req models.SavingsMovementRequest) (*models.Savings, error) {
	user, err := s.activeUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if err := validatePositive(req.Amount); err != nil {
		return nil, err
	}

	var updated *models.Savings
	err = s.retry(ctx, "topup_savings", func() error {
		sv, err := s.store.GetSavings(ctx, req.SavingsId, user.Id)
		if err != nil {
			return err
		}

		var ob outbox
		ob.notify(models.NotificationPayload{
			UserId:  user.Id,
			Type:    "savings",
			Subtype: "top-up",
			Title:   "Savings Topped Up",
			Message: fmt.Sprintf("%s was added to your %s savings.", s.money(req.Amount), sv.Title),
			Data: map[string]any{
				"savingsId":   sv.Id,
				"amount":      req.Amount,
				"savedAmount": sv.SavedAmount.Add(req.Amount),
			},
		})
		ob.email(s.savingsAlert(user, sv, req.Amount, "", "added to"))
		messages, err := ob.build()
		if err != nil {
			return err
		}

		updated, err = s.store.TopUpSavings(ctx, store.SavingsMovementParams{
			SavingsId:       sv.Id,
			UserId:          user.Id,
			Amount:          req.Amount,
			ExpectedVersion: sv.Version,
			Outbox:          messages,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// WithdrawSavings moves funds from a savings account back to the main balance.
// Funds are checked before maturity, and a failed check never changes the account.
func (s *LedgerService) WithdrawSavings(ctx context.Context, userId string, req models.SavingsMovementRequest) (*models.Savings, error) {
	user, err := s.activeUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if err := validatePositive(req.Amount); err != nil {
		return nil, err
	}

	var updated *models.Savings
	err = s.retry(ctx, "withdraw_savings", func() error {
		sv, err := s.store.GetSavings(ctx, req.SavingsId, user.Id)
		if err != nil {
			return err
		}
		if err := store.CheckSavingsWithdrawal(sv, req.Amount); err != nil {
			return err
		}

		t, err := s.newTransaction(user.Id, models.TransactionCredit, models.SubTypeSavings, req.Amount,
			fmt.Sprintf("Withdrawal: %s", sv.Title), models.StatusSuccessful)
		if err != nil {
			return err
		}

		var ob outbox
		ob.notify(models.NotificationPayload{
			UserId:  user.Id,
			Type:    "savings",
			Subtype: "withdrawal",
			Title:   "Savings Withdrawal",
			Message: fmt.Sprintf("%s was withdrawn from your %s savings.", s.money(req.Amount), sv.Title),
			Data: map[string]any{
				"savingsId":     sv.Id,
				"transactionId": t.TransactionId,
				"amount":        req.Amount,
				"savedAmount":   sv.SavedAmount.Sub(req.Amount),
			},
		})
		ob.email(s.savingsAlert(user, sv, t.Amount, t.TransactionId, "withdrawn from"))
		messages, err := ob.build()
		if err != nil {
			return err
		}

		updated, err = s.store.WithdrawSavings(ctx, store.SavingsMovementParams{
			SavingsId:       sv.Id,
			UserId:          user.Id,
			Amount:          req.Amount,
			ExpectedVersion: sv.Version,
			Transaction:     t,
			Outbox:          messages,
		})
		return err
	})
	if err != nil {
		zap.L().Info("Savings withdrawal rejected",
			zap.String("user_id", user.Id),
			zap.String("savings_id", req.SavingsId),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return nil, err
	}
	return updated, nil
}

func (s *LedgerService) DeleteSavings(ctx context.Context, adminId, savingsId string) error {
	admin, err := s.requireSuperAdmin(ctx, adminId)
	if err != nil {
		return err
	}
	return s.store.DeleteSavings(ctx, savingsId, s.newActivity(admin, "delete_savings", savingsId, "Savings", nil))
}

func (s *LedgerService) savingsAlert(user *models.User, sv *models.Savings, amount decimal.Decimal, reference, action string) models.EmailPayload {
	return models.EmailPayload{
		To:       user.Email,
		Subject:  fmt.Sprintf("Savings Alert: %s", sv.Title),
		Template: TemplateSavings,
		Data: map[string]any{
			"name":          user.Name,
			"title":         sv.Title,
			"action":        action,
			"amount":        s.money(amount),
			"transactionId": reference,
			"date":          formatDate(s.now()),
		},
	}
}
