package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func createTestSavings(t *testing.T, service *Service, userId string, saved string, mutate func(*models.Savings)) *models.Savings {
	t.Helper()

	sv := &models.Savings{
		Id:          uuid.New().String(),
		UserId:      userId,
		Title:       "Holiday",
		SavedAmount: decimal.RequireFromString(saved),
		Status:      models.SavingsActive,
	}
	if mutate != nil {
		mutate(sv)
	}
	if err := service.CreateSavings(context.Background(), sv); err != nil {
		t.Fatalf("CreateSavings failed: %v", err)
	}
	return sv
}

func withdrawalParams(sv *models.Savings, amount string) store.SavingsMovementParams {
	return store.SavingsMovementParams{
		SavingsId:       sv.Id,
		UserId:          sv.UserId,
		Amount:          decimal.RequireFromString(amount),
		ExpectedVersion: sv.Version,
		Transaction:     newTestTransaction(sv.UserId, models.TransactionCredit, models.SubTypeSavings, amount, models.StatusSuccessful),
	}
}

func TestWithdrawSavings_NoMaturityCondition(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")
	sv := createTestSavings(t, service, "user1", "150", nil)

	updated, err := service.WithdrawSavings(ctx, withdrawalParams(sv, "100"))
	if err != nil {
		t.Fatalf("WithdrawSavings failed: %v", err)
	}
	if !updated.SavedAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected 50 saved, got %s", updated.SavedAmount.String())
	}

	balance, _ := service.GetUserBalance(ctx, "user1")
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected the withdrawal to credit 100, got %s", balance.String())
	}
}

func TestWithdrawSavings_Rejections(t *testing.T) {
	future := time.Now().Add(48 * time.Hour)

	tests := []struct {
		name    string
		saved   string
		mutate  func(*models.Savings)
		amount  string
		wantErr error
	}{
		{"insufficient", "50", nil, "100", store.ErrInsufficientFunds},
		{"insufficient beats maturity", "50", func(s *models.Savings) { s.EndDate = &future }, "100", store.ErrInsufficientFunds},
		{"target not reached", "500", func(s *models.Savings) {
			s.TargetAmount = decimal.NewNullDecimal(decimal.NewFromInt(1000))
		}, "100", store.ErrNotYetAccessible},
		{"end date not reached", "500", func(s *models.Savings) { s.EndDate = &future }, "100", store.ErrNotYetAccessible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, cleanup := setupTestDb(t)
			defer cleanup()

			ctx := context.Background()
			createTestUser(t, service, "user1")
			sv := createTestSavings(t, service, "user1", tt.saved, tt.mutate)

			_, err := service.WithdrawSavings(ctx, withdrawalParams(sv, tt.amount))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}

			after, err := service.GetSavings(ctx, sv.Id, "user1")
			if err != nil {
				t.Fatalf("GetSavings failed: %v", err)
			}
			if !after.SavedAmount.Equal(sv.SavedAmount) {
				t.Errorf("Saved amount changed on failure: %s -> %s", sv.SavedAmount, after.SavedAmount)
			}
			if count, _ := service.CalculateBalance(ctx, "user1"); !count.IsZero() {
				t.Errorf("Expected no ledger effect, got balance %s", count)
			}
		})
	}
}

func TestWithdrawSavings_StaleVersion(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")
	sv := createTestSavings(t, service, "user1", "150", nil)

	if _, err := service.WithdrawSavings(ctx, withdrawalParams(sv, "100")); err != nil {
		t.Fatalf("First withdrawal failed: %v", err)
	}

	// The second caller validated against the original version.
	_, err := service.WithdrawSavings(ctx, withdrawalParams(sv, "100"))
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification, got %v", err)
	}
}

func TestWithdrawSavings_WrongOwner(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, "user1")
	sv := createTestSavings(t, service, "user1", "150", nil)

	params := withdrawalParams(sv, "10")
	params.UserId = "user2"
	if _, err := service.WithdrawSavings(context.Background(), params); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for foreign savings, got %v", err)
	}
}

func TestTopUpSavings(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")

	sv := createTestSavings(t, service, "user1", "0", func(s *models.Savings) {
		s.TargetAmount = decimal.NewNullDecimal(decimal.NewFromInt(250))
	})

	topUp := func(amount string, version int64) (*models.Savings, error) {
		return service.TopUpSavings(ctx, store.SavingsMovementParams{
			SavingsId:       sv.Id,
			UserId:          "user1",
			Amount:          decimal.RequireFromString(amount),
			ExpectedVersion: version,
		})
	}

	// The main balance is zero and is not consulted.
	first, err := topUp("200", sv.Version)
	if err != nil {
		t.Fatalf("TopUpSavings failed: %v", err)
	}
	if first.Status != models.SavingsActive {
		t.Errorf("Expected active below target, got %s", first.Status)
	}

	if _, err := topUp("10", sv.Version); !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification on stale version, got %v", err)
	}

	second, err := topUp("150", first.Version)
	if err != nil {
		t.Fatalf("TopUpSavings failed: %v", err)
	}
	if second.Status != models.SavingsCompleted {
		t.Errorf("Expected completed at target, got %s", second.Status)
	}
	if !second.SavedAmount.Equal(decimal.NewFromInt(350)) {
		t.Errorf("Expected 350 saved past the target, got %s", second.SavedAmount.String())
	}

	balance, _ := service.CalculateBalance(ctx, "user1")
	if !balance.IsZero() {
		t.Errorf("Expected top-up to leave the main balance at 0, got %s", balance.String())
	}

	// Completed accounts with a target can be withdrawn from.
	if _, err := service.WithdrawSavings(ctx, withdrawalParams(second, "250")); err != nil {
		t.Errorf("Expected withdrawal from completed savings to succeed: %v", err)
	}
}

func TestWithdrawSavings_RequiresTransaction(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, "user1")
	sv := createTestSavings(t, service, "user1", "10", nil)

	params := withdrawalParams(sv, "5")
	params.Transaction = nil
	if _, err := service.WithdrawSavings(context.Background(), params); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("Expected ErrValidation, got %v", err)
	}
}

func TestDeleteSavings(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")
	full := createTestSavings(t, service, "user1", "10", nil)
	empty := createTestSavings(t, service, "user1", "0", nil)

	if err := service.DeleteSavings(ctx, full.Id, nil); !errors.Is(err, store.ErrSavingsNotEmpty) {
		t.Fatalf("Expected ErrSavingsNotEmpty, got %v", err)
	}

	activity := &models.Activity{Id: uuid.New().String(), AdminId: "root", Action: "delete_savings", TargetId: empty.Id, TargetModel: "Savings"}
	if err := service.DeleteSavings(ctx, empty.Id, activity); err != nil {
		t.Fatalf("DeleteSavings failed: %v", err)
	}

	list, err := service.ListUserSavings(ctx, "user1")
	if err != nil {
		t.Fatalf("ListUserSavings failed: %v", err)
	}
	if len(list) != 1 || list[0].Id != full.Id {
		t.Errorf("Expected only the non-empty account to remain, got %+v", list)
	}

	if err := service.DeleteSavings(ctx, empty.Id, nil); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCompleteMaturedSavings(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	ended := createTestSavings(t, service, "user1", "5", func(s *models.Savings) { s.EndDate = &past })
	running := createTestSavings(t, service, "user1", "5", func(s *models.Savings) { s.EndDate = &future })
	reached := createTestSavings(t, service, "user1", "100", func(s *models.Savings) {
		s.TargetAmount = decimal.NewNullDecimal(decimal.NewFromInt(100))
	})
	createTestSavings(t, service, "user1", "5", nil)

	n, err := service.CompleteMaturedSavings(ctx, time.Now())
	if err != nil {
		t.Fatalf("CompleteMaturedSavings failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 matured accounts, got %d", n)
	}

	for _, tc := range []struct {
		sv   *models.Savings
		want models.SavingsStatus
	}{
		{ended, models.SavingsCompleted},
		{reached, models.SavingsCompleted},
		{running, models.SavingsActive},
	} {
		got, err := service.GetSavings(ctx, tc.sv.Id, "user1")
		if err != nil {
			t.Fatalf("GetSavings failed: %v", err)
		}
		if got.Status != tc.want {
			t.Errorf("Savings %s: expected %s, got %s", tc.sv.Id, tc.want, got.Status)
		}
	}
}

func TestApplySavingsInterest(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")

	plain := createTestSavings(t, service, "user1", "10000", nil)
	nearTarget := createTestSavings(t, service, "user1", "10000", func(s *models.Savings) {
		s.TargetAmount = decimal.NewNullDecimal(decimal.RequireFromString("10000.50"))
	})
	empty := createTestSavings(t, service, "user1", "0", nil)
	done := createTestSavings(t, service, "user1", "10000", func(s *models.Savings) { s.Status = models.SavingsCompleted })

	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	params := store.SavingsInterestParams{Now: day, AnnualRate: decimal.RequireFromString("0.0365")}

	n, err := service.ApplySavingsInterest(ctx, params)
	if err != nil {
		t.Fatalf("ApplySavingsInterest failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 credited accounts, got %d", n)
	}

	for _, tc := range []struct {
		sv     *models.Savings
		saved  string
		status models.SavingsStatus
	}{
		{plain, "10001", models.SavingsActive},
		{nearTarget, "10001", models.SavingsCompleted},
		{empty, "0", models.SavingsActive},
		{done, "10000", models.SavingsCompleted},
	} {
		got, err := service.GetSavings(ctx, tc.sv.Id, "user1")
		if err != nil {
			t.Fatalf("GetSavings failed: %v", err)
		}
		if !got.SavedAmount.Equal(decimal.RequireFromString(tc.saved)) {
			t.Errorf("Savings %s: expected %s saved, got %s", tc.sv.Id, tc.saved, got.SavedAmount.String())
		}
		if got.Status != tc.status {
			t.Errorf("Savings %s: expected %s, got %s", tc.sv.Id, tc.status, got.Status)
		}
	}

	// A later run on the same UTC day credits nothing.
	params.Now = day.Add(10 * time.Hour)
	if n, err := service.ApplySavingsInterest(ctx, params); err != nil || n != 0 {
		t.Errorf("Expected no credit on the same day, got %d (%v)", n, err)
	}

	params.Now = day.Add(24 * time.Hour)
	if n, err := service.ApplySavingsInterest(ctx, params); err != nil || n != 1 {
		t.Errorf("Expected one credit the next day, got %d (%v)", n, err)
	}

	balance, _ := service.GetUserBalance(ctx, "user1")
	if !balance.IsZero() {
		t.Errorf("Interest must not touch the main balance, got %s", balance.String())
	}
}

func TestApplySavingsInterest_ZeroRate(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	createTestUser(t, service, "user1")
	createTestSavings(t, service, "user1", "10000", nil)

	n, err := service.ApplySavingsInterest(context.Background(), store.SavingsInterestParams{Now: time.Now()})
	if err != nil || n != 0 {
		t.Errorf("Expected a zero rate to be a no-op, got %d (%v)", n, err)
	}
}
