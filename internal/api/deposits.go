package api

import (
	"context"
	"fmt"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *LedgerService) CreateDepositRequest(ctx context.Context, userId string, req models.DepositRequestInput) (*models.DepositRequest, error) {
	user, err := s.activeUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if err := validatePositive(req.Amount); err != nil {
		return nil, err
	}

	d := &models.DepositRequest{
		Id:         uuid.New().String(),
		UserId:     user.Id,
		IsAccepted: models.AcceptancePending,
		Amount:     req.Amount,
		Hash:       req.Hash,
		Status:     models.StatusPending,
	}
	if err := s.store.CreateDepositRequest(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *LedgerService) ListUserDepositRequests(ctx context.Context, userId string) ([]models.DepositRequest, error) {
	list, err := s.store.ListUserDepositRequests(ctx, userId)
	if err != nil {
		return nil, err
	}
	return nonNil(list), nil
}

// EditDepositRequest lets the owner attach or correct the settlement hash.
func (s *LedgerService) EditDepositRequest(ctx context.Context, userId string, req models.EditDepositRequest) (*models.DepositRequest, error) {
	if req.Id == "" {
		return nil, fmt.Errorf("%w: deposit request id is required", store.ErrValidation)
	}
	return s.store.UpdateDepositHash(ctx, req.Id, userId, req.Hash)
}

func (s *LedgerService) ListDepositRequests(ctx context.Context, adminId string, page models.PageRequest) (*models.Paginated[models.DepositRequest], error) {
	if _, err := s.requireAdmin(ctx, adminId); err != nil {
		return nil, err
	}
	page = page.Normalize()
	list, total, err := s.store.ListDepositRequests(ctx, page)
	if err != nil {
		return nil, err
	}
	return &models.Paginated[models.DepositRequest]{Data: nonNil(list), Pagination: models.NewPagination(total, page)}, nil
}

// ApproveDepositRequest applies an administrative update. The request is
// credited exactly once, on the transition into successful.
func (s *LedgerService) ApproveDepositRequest(ctx context.Context, adminId string, req models.DepositUpdateRequest) (*models.DepositRequest, error) {
	admin, err := s.requireAdmin(ctx, adminId)
	if err != nil {
		return nil, err
	}
	if req.Id == "" {
		return nil, fmt.Errorf("%w: deposit request id is required", store.ErrValidation)
	}
	if req.IsAccepted != nil && !req.IsAccepted.Valid() {
		return nil, fmt.Errorf("%w: acceptance %q", store.ErrValidation, *req.IsAccepted)
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", store.ErrValidation, *req.Status)
	}

	var updated *models.DepositRequest
	err = s.retry(ctx, "approve_deposit", func() error {
		before, err := s.store.GetDepositRequest(ctx, req.Id)
		if err != nil {
			return err
		}
		user, err := s.store.GetUserById(ctx, before.UserId)
		if err != nil {
			return err
		}

		after := *before
		if req.IsAccepted != nil {
			after.IsAccepted = *req.IsAccepted
		}
		if req.Status != nil {
			if err := store.CheckDepositTransition(before.Status, *req.Status); err != nil {
				return err
			}
			after.Status = *req.Status
		}
		if req.Hash != nil {
			after.Hash = *req.Hash
		}

		params := store.DepositApprovalParams{
			Id:          before.Id,
			PriorStatus: before.Status,
			Update: store.DepositRequestUpdate{
				IsAccepted: req.IsAccepted,
				Status:     req.Status,
				Hash:       req.Hash,
			},
			Activity: s.newActivity(admin, "update_deposit_request", before.Id, "DepositRequest", map[string]any{
				"user":   before.UserId,
				"before": before,
				"after":  after,
			}),
		}

		var ob outbox
		settled := after.Status != before.Status
		switch {
		case settled && after.Status == models.StatusSuccessful:
			credit, err := s.newTransaction(user.Id, models.TransactionCredit, models.SubTypeDeposit, before.Amount,
				"Deposit", models.StatusSuccessful)
			if err != nil {
				return err
			}
			params.Credit = credit

			balance, err := s.projectedBalance(ctx, credit)
			if err != nil {
				return err
			}
			ob.notify(models.NotificationPayload{
				UserId:  user.Id,
				Type:    "deposit",
				Subtype: string(models.StatusSuccessful),
				Title:   "Deposit Approved",
				Message: fmt.Sprintf("Your deposit of %s has been approved and credited.", s.money(before.Amount)),
				Data: map[string]any{
					"depositId":     before.Id,
					"transactionId": credit.TransactionId,
					"amount":        before.Amount,
					"balance":       balance,
				},
			})
			ob.email(s.depositAlert(user, &after, credit.TransactionId, balance))
		case settled && after.Status == models.StatusFailed:
			ob.notify(models.NotificationPayload{
				UserId:  user.Id,
				Type:    "deposit",
				Subtype: string(models.StatusFailed),
				Title:   "Deposit Declined",
				Message: fmt.Sprintf("Your deposit of %s could not be confirmed.", s.money(before.Amount)),
				Data:    map[string]any{"depositId": before.Id, "amount": before.Amount},
			})
		}
		if params.Outbox, err = ob.build(); err != nil {
			return err
		}

		updated, err = s.store.ApplyDepositUpdate(ctx, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Deposit request updated by admin",
		zap.String("admin_id", admin.Id),
		zap.String("deposit_id", updated.Id),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

func (s *LedgerService) DeleteDepositRequest(ctx context.Context, adminId, id string) error {
	admin, err := s.requireSuperAdmin(ctx, adminId)
	if err != nil {
		return err
	}
	return s.store.DeleteDepositRequest(ctx, id, s.newActivity(admin, "delete_deposit_request", id, "DepositRequest", nil))
}

func (s *LedgerService) depositAlert(user *models.User, d *models.DepositRequest, transactionId string, balance decimal.Decimal) models.EmailPayload {
	return models.EmailPayload{
		To:       user.Email,
		Subject:  "Deposit Approved",
		Template: TemplateDeposit,
		Data: map[string]any{
			"name":          user.Name,
			"amount":        s.money(d.Amount),
			"hash":          d.Hash,
			"transactionId": transactionId,
			"balance":       s.money(balance),
			"date":          formatDate(s.now()),
		},
	}
}
