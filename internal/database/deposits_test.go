package database

import (
	"context"
	"errors"
	"testing"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func createTestDeposit(t *testing.T, service *Service, userId, amount string) *models.DepositRequest {
	t.Helper()

	d := &models.DepositRequest{
		Id:     uuid.New().String(),
		UserId: userId,
		Amount: decimal.RequireFromString(amount),
	}
	if err := service.CreateDepositRequest(context.Background(), d); err != nil {
		t.Fatalf("CreateDepositRequest failed: %v", err)
	}
	return d
}

func approval(d *models.DepositRequest, prior models.TransactionStatus) store.DepositApprovalParams {
	accepted := models.AcceptanceAccepted
	successful := models.StatusSuccessful
	return store.DepositApprovalParams{
		Id:          d.Id,
		PriorStatus: prior,
		Update: store.DepositRequestUpdate{
			IsAccepted: &accepted,
			Status:     &successful,
		},
		Credit: newTestTransaction(d.UserId, models.TransactionCredit, models.SubTypeDeposit, d.Amount.String(), models.StatusSuccessful),
	}
}

func TestCreateDepositRequest_Defaults(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, "user1")
	d := createTestDeposit(t, service, "user1", "75")

	got, err := service.GetDepositRequest(context.Background(), d.Id)
	if err != nil {
		t.Fatalf("GetDepositRequest failed: %v", err)
	}
	if got.Status != models.StatusPending || got.IsAccepted != models.AcceptancePending {
		t.Errorf("Expected pending/pending, got %s/%s", got.Status, got.IsAccepted)
	}
	if !got.Amount.Equal(decimal.NewFromInt(75)) {
		t.Errorf("Expected amount 75, got %s", got.Amount.String())
	}
}

func TestApplyDepositUpdate_CreditsOnce(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")
	d := createTestDeposit(t, service, "user1", "200")

	params := approval(d, models.StatusPending)
	params.Activity = &models.Activity{Id: uuid.New().String(), AdminId: "root", Action: "update_deposit", TargetId: d.Id, TargetModel: "DepositRequest"}

	updated, err := service.ApplyDepositUpdate(ctx, params)
	if err != nil {
		t.Fatalf("ApplyDepositUpdate failed: %v", err)
	}
	if updated.Status != models.StatusSuccessful || updated.IsAccepted != models.AcceptanceAccepted {
		t.Errorf("Expected successful/accepted, got %s/%s", updated.Status, updated.IsAccepted)
	}

	// A second approver read the request while it was still pending.
	if _, err := service.ApplyDepositUpdate(ctx, approval(d, models.StatusPending)); !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification on stale approval, got %v", err)
	}

	// Re-submitting with the current status must not credit again.
	if _, err := service.ApplyDepositUpdate(ctx, approval(d, models.StatusSuccessful)); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation on repeated credit, got %v", err)
	}

	balance, _ := service.CalculateBalance(ctx, "user1")
	if !balance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected exactly one credit of 200, got %s", balance.String())
	}

	activities, total, err := service.ListActivities(ctx, models.PageRequest{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if total != 1 || len(activities) != 1 || activities[0].TargetId != d.Id {
		t.Errorf("Expected one activity for %s, got %d", d.Id, total)
	}
}

func TestApplyDepositUpdate_FailedCanBeConfirmed(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")
	d := createTestDeposit(t, service, "user1", "20")

	failed := models.StatusFailed
	declined := models.AcceptanceDeclined
	_, err := service.ApplyDepositUpdate(ctx, store.DepositApprovalParams{
		Id:          d.Id,
		PriorStatus: models.StatusPending,
		Update:      store.DepositRequestUpdate{Status: &failed, IsAccepted: &declined},
	})
	if err != nil {
		t.Fatalf("ApplyDepositUpdate failed: %v", err)
	}

	confirmed, err := service.ApplyDepositUpdate(ctx, approval(d, models.StatusFailed))
	if err != nil {
		t.Fatalf("Confirming a failed deposit failed: %v", err)
	}
	if confirmed.Status != models.StatusSuccessful || confirmed.IsAccepted != models.AcceptanceAccepted {
		t.Errorf("Expected successful/accepted, got %s/%s", confirmed.Status, confirmed.IsAccepted)
	}

	// Once credited the request cannot move again.
	_, err = service.ApplyDepositUpdate(ctx, store.DepositApprovalParams{
		Id:          d.Id,
		PriorStatus: models.StatusSuccessful,
		Update:      store.DepositRequestUpdate{Status: &failed},
	})
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition, got %v", err)
	}

	balance, _ := service.CalculateBalance(ctx, "user1")
	if !balance.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected exactly one credit of 20, got %s", balance.String())
	}

	// Non-status edits on a credited request are still allowed.
	hash := "0xabc"
	updated, err := service.ApplyDepositUpdate(ctx, store.DepositApprovalParams{
		Id:          d.Id,
		PriorStatus: models.StatusSuccessful,
		Update:      store.DepositRequestUpdate{Hash: &hash},
	})
	if err != nil {
		t.Fatalf("Hash edit failed: %v", err)
	}
	if updated.Hash != hash {
		t.Errorf("Expected hash %s, got %s", hash, updated.Hash)
	}
}

func TestApplyDepositUpdate_CreditRequiresSuccess(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, "user1")
	d := createTestDeposit(t, service, "user1", "20")

	params := approval(d, models.StatusPending)
	params.Update.Status = nil

	if _, err := service.ApplyDepositUpdate(context.Background(), params); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation, got %v", err)
	}

	got, _ := service.GetDepositRequest(context.Background(), d.Id)
	if got.IsAccepted != models.AcceptancePending {
		t.Errorf("Rejected update leaked acceptance state %s", got.IsAccepted)
	}
}

func TestUpdateDepositHash_Ownership(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")
	d := createTestDeposit(t, service, "user1", "20")

	if _, err := service.UpdateDepositHash(ctx, d.Id, "user2", "0xdead"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for foreign request, got %v", err)
	}

	updated, err := service.UpdateDepositHash(ctx, d.Id, "user1", "0xbeef")
	if err != nil {
		t.Fatalf("UpdateDepositHash failed: %v", err)
	}
	if updated.Hash != "0xbeef" {
		t.Errorf("Expected hash 0xbeef, got %s", updated.Hash)
	}
}

func TestDeleteDepositRequest(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")
	d := createTestDeposit(t, service, "user1", "20")

	if err := service.DeleteDepositRequest(ctx, d.Id, nil); err != nil {
		t.Fatalf("DeleteDepositRequest failed: %v", err)
	}
	if _, err := service.GetDepositRequest(ctx, d.Id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := service.DeleteDepositRequest(ctx, d.Id, nil); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}
