package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"bank-ledger-go/internal/database"
	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	superAdminId = "root"
	adminId      = "ops"
)

func newTestLedger(t *testing.T) (*LedgerService, *database.Service) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Driver:       models.DriverSQLite,
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx := context.Background()
	require.NoError(t, db.CreateAdmin(ctx, &models.Admin{Id: superAdminId, Name: "Root", Email: "root@example.com", Role: models.RoleSuperAdmin}))
	require.NoError(t, db.CreateAdmin(ctx, &models.Admin{Id: adminId, Name: "Ops", Email: "ops@example.com", Role: models.RoleAdmin}))

	return NewLedgerService(db, nil), db
}

func newTestUser(t *testing.T, ledger *LedgerService, name string) *models.User {
	t.Helper()
	user, err := ledger.CreateUser(context.Background(), models.CreateUserRequest{Name: name, Email: strings.ToLower(name) + "@example.com"})
	require.NoError(t, err)
	return user
}

func postEntry(t *testing.T, ledger *LedgerService, userId string, txType models.TransactionType, subType models.SubType, amount string) *models.Transaction {
	t.Helper()
	result, err := ledger.CreateUserTransaction(context.Background(), superAdminId, models.CreateTransactionRequest{
		UserId:          userId,
		Amount:          decimal.RequireFromString(amount),
		TransactionType: txType,
		SubType:         subType,
		Status:          models.StatusSuccessful,
	})
	require.NoError(t, err)
	return result.Transaction
}

func dueMessages(t *testing.T, db *database.Service, kind models.OutboxKind) []models.OutboxMessage {
	t.Helper()
	all, err := db.FetchDueOutbox(context.Background(), time.Now().Add(time.Hour), 100)
	require.NoError(t, err)

	var out []models.OutboxMessage
	for _, m := range all {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func TestExampleScenario(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Alice")

	postEntry(t, ledger, user.Id, models.TransactionCredit, models.SubTypeDeposit, "500")
	postEntry(t, ledger, user.Id, models.TransactionDebit, models.SubTypeTransfer, "120")

	balance, err := ledger.GetBalance(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(380)), "balance %s", balance.Balance)

	sv, err := ledger.CreateSavings(ctx, user.Id, models.CreateSavingsRequest{Title: "Holiday"})
	require.NoError(t, err)
	_, err = ledger.TopUpSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(150)})
	require.NoError(t, err)

	updated, err := ledger.WithdrawSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.True(t, updated.SavedAmount.Equal(decimal.NewFromInt(50)))

	recent, err := ledger.LastTransactions(ctx, user.Id)
	require.NoError(t, err)
	require.NotEmpty(t, recent)
	latest := recent[0]
	assert.Equal(t, models.TransactionCredit, latest.TransactionType)
	assert.Equal(t, models.SubTypeSavings, latest.SubType)
	assert.Equal(t, models.StatusSuccessful, latest.Status)
	assert.True(t, latest.Amount.Equal(decimal.NewFromInt(100)))

	var found bool
	for _, m := range dueMessages(t, db, models.OutboxNotification) {
		var p models.NotificationPayload
		require.NoError(t, json.Unmarshal(m.Payload, &p))
		if p.Title == "Savings Withdrawal" {
			found = true
			assert.Contains(t, p.Message, "Holiday")
			assert.Contains(t, p.Message, "$100.00")
		}
	}
	assert.True(t, found, "withdrawal notification not enqueued")

	reconciled, err := ledger.ReconcileBalance(ctx, adminId, user.Id)
	require.NoError(t, err)
	assert.True(t, reconciled.Matches)
	assert.True(t, reconciled.Calculated.Equal(decimal.NewFromInt(480)), "calculated %s", reconciled.Calculated)
}

func TestCreateTransaction(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Bola")

	req := models.CreateTransactionRequest{
		Amount:          decimal.NewFromInt(40),
		TransactionType: models.TransactionDebit,
		Status:          models.StatusSuccessful,
		Beneficiary:     true,
		Details:         &models.TransactionDetails{AccountNumber: "0123456789", FullName: "Chidi Eze", BankName: "Example Bank"},
	}

	result, err := ledger.CreateTransaction(ctx, user.Id, req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Transaction.Status, "user transfers always start pending")
	assert.Equal(t, models.SubTypeTransfer, result.Transaction.SubType)
	assert.True(t, strings.HasPrefix(result.Transaction.TransactionId, "CBUSA"))
	assert.True(t, result.Balance.IsZero())

	_, err = ledger.CreateTransaction(ctx, user.Id, req)
	require.NoError(t, err)

	beneficiaries, err := ledger.ListBeneficiaries(ctx, user.Id)
	require.NoError(t, err)
	assert.Len(t, beneficiaries, 1)

	assert.Len(t, dueMessages(t, db, models.OutboxNotification), 2)
	assert.Len(t, dueMessages(t, db, models.OutboxEmail), 2)

	balance, _ := ledger.GetBalance(ctx, user.Id)
	assert.True(t, balance.Balance.IsZero(), "pending transfers must not move the balance")
}

// brokenBeneficiaries fails every beneficiary insert.
type brokenBeneficiaries struct {
	store.LedgerStore
}

func (b brokenBeneficiaries) CreateBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) error {
	return errors.New("beneficiaries unavailable")
}

func TestCreateTransaction_BeneficiaryFailure(t *testing.T) {
	_, db := newTestLedger(t)
	ledger := NewLedgerService(brokenBeneficiaries{LedgerStore: db}, nil)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Chika")

	_, err := ledger.CreateTransaction(ctx, user.Id, models.CreateTransactionRequest{
		Amount:          decimal.NewFromInt(15),
		TransactionType: models.TransactionDebit,
		Beneficiary:     true,
		Details:         &models.TransactionDetails{AccountNumber: "9876543210", FullName: "Ngozi Ade", BankName: "Example Bank"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ngozi Ade")

	recent, err := ledger.LastTransactions(ctx, user.Id)
	require.NoError(t, err)
	assert.Len(t, recent, 1, "the entry stays committed")

	assert.Empty(t, dueMessages(t, db, models.OutboxNotification), "no notification for a failed request")
	assert.Empty(t, dueMessages(t, db, models.OutboxEmail), "no email for a failed request")
}

func TestCreateTransaction_Rejections(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Dayo")

	_, err := ledger.CreateTransaction(ctx, user.Id, models.CreateTransactionRequest{Amount: decimal.Zero, TransactionType: models.TransactionDebit})
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = ledger.CreateTransaction(ctx, user.Id, models.CreateTransactionRequest{Amount: decimal.NewFromInt(1), TransactionType: "refund"})
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = ledger.CreateTransaction(ctx, "ghost", models.CreateTransactionRequest{Amount: decimal.NewFromInt(1), TransactionType: models.TransactionDebit})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = ledger.SetUserSuspended(ctx, adminId, user.Id, true)
	require.NoError(t, err)

	_, err = ledger.CreateTransaction(ctx, user.Id, models.CreateTransactionRequest{Amount: decimal.NewFromInt(1), TransactionType: models.TransactionDebit})
	assert.ErrorIs(t, err, store.ErrUserSuspended)
	assert.Equal(t, 403, store.StatusCode(err))
}

func TestAdminRoles(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Emeka")

	req := models.CreateTransactionRequest{UserId: user.Id, Amount: decimal.NewFromInt(5), TransactionType: models.TransactionCredit}

	_, err := ledger.CreateUserTransaction(ctx, adminId, req)
	assert.ErrorIs(t, err, store.ErrForbidden)

	_, err = ledger.CreateUserTransaction(ctx, "", req)
	assert.ErrorIs(t, err, store.ErrUnauthorized)

	_, err = ledger.CreateUserTransaction(ctx, "intruder", req)
	assert.ErrorIs(t, err, store.ErrUnauthorized)

	_, err = ledger.ListActivities(ctx, adminId, models.PageRequest{})
	assert.NoError(t, err)
}

func TestUpdateTransactionStatus(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Funmi")

	result, err := ledger.CreateTransaction(ctx, user.Id, models.CreateTransactionRequest{
		Amount:          decimal.NewFromInt(25),
		TransactionType: models.TransactionCredit,
	})
	require.NoError(t, err)
	id := result.Transaction.Id

	_, err = ledger.UpdateTransactionStatus(ctx, adminId, id, models.StatusSuccessful)
	assert.ErrorIs(t, err, store.ErrForbidden)

	_, err = ledger.UpdateTransactionStatus(ctx, superAdminId, id, models.StatusPending)
	assert.ErrorIs(t, err, store.ErrValidation)

	updated, err := ledger.UpdateTransactionStatus(ctx, superAdminId, id, models.StatusSuccessful)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccessful, updated.Status)

	_, err = ledger.UpdateTransactionStatus(ctx, superAdminId, id, models.StatusFailed)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	balance, _ := ledger.GetBalance(ctx, user.Id)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(25)))

	activities, err := ledger.ListActivities(ctx, adminId, models.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, activities.Pagination.Total)

	require.NoError(t, ledger.PurgeTransaction(ctx, superAdminId, id))
	balance, _ = ledger.GetBalance(ctx, user.Id)
	assert.True(t, balance.Balance.IsZero())
}

func TestGetTransaction_Ownership(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	owner := newTestUser(t, ledger, "Gbenga")
	other := newTestUser(t, ledger, "Hauwa")

	tx := postEntry(t, ledger, owner.Id, models.TransactionCredit, models.SubTypeDeposit, "10")

	got, err := ledger.GetTransaction(ctx, owner.Id, tx.Id)
	require.NoError(t, err)
	assert.Equal(t, tx.TransactionId, got.TransactionId)

	_, err = ledger.GetTransaction(ctx, other.Id, tx.Id)
	assert.ErrorIs(t, err, store.ErrForbidden)

	page, err := ledger.ListUserTransactions(ctx, other.Id, "", models.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
}

func TestEditTransactionLevel(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	owner := newTestUser(t, ledger, "Ifeoma")
	other := newTestUser(t, ledger, "Jide")

	tx := postEntry(t, ledger, owner.Id, models.TransactionCredit, models.SubTypeDeposit, "10")

	tests := []struct {
		name    string
		userId  string
		req     models.TransactionLevelRequest
		wantErr error
	}{
		{"missing level", owner.Id, models.TransactionLevelRequest{TransactionId: tx.Id}, store.ErrValidation},
		{"multiline level", owner.Id, models.TransactionLevelRequest{TransactionId: tx.Id, Level: "a\nb"}, store.ErrValidation},
		{"too long", owner.Id, models.TransactionLevelRequest{TransactionId: tx.Id, Level: strings.Repeat("x", maxLevelLength+1)}, store.ErrValidation},
		{"unknown entry", owner.Id, models.TransactionLevelRequest{TransactionId: "missing", Level: "gold"}, store.ErrNotFound},
		{"foreign entry", other.Id, models.TransactionLevelRequest{TransactionId: tx.Id, Level: "gold"}, store.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.EditTransactionLevel(ctx, tt.userId, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	updated, err := ledger.EditTransactionLevel(ctx, owner.Id, models.TransactionLevelRequest{TransactionId: tx.Id, Level: " gold "})
	require.NoError(t, err)
	assert.Equal(t, "gold", updated.Level)

	balance, err := ledger.GetBalance(ctx, owner.Id)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(10)))
}

func TestAccountDirectory(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Kemi")

	_, err := ledger.CreateAccount(ctx, "nobody", models.AccountRequest{AccountNumber: "0123456789", FullName: "Ada Obi", BankName: "First Bank"})
	assert.ErrorIs(t, err, store.ErrUnauthorized)

	_, err = ledger.CreateAccount(ctx, adminId, models.AccountRequest{AccountNumber: "0123456789"})
	assert.ErrorIs(t, err, store.ErrValidation)

	account, err := ledger.CreateAccount(ctx, adminId, models.AccountRequest{AccountNumber: " 0123456789 ", FullName: "Ada Obi", BankName: "First Bank"})
	require.NoError(t, err)
	assert.Equal(t, "0123456789", account.AccountNumber)

	_, err = ledger.CreateAccount(ctx, adminId, models.AccountRequest{AccountNumber: "0123456789", FullName: "Someone Else", BankName: "First Bank"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Equal(t, 409, store.StatusCode(err))

	got, err := ledger.GetAccount(ctx, user.Id, "0123456789")
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", got.FullName)

	_, err = ledger.GetAccount(ctx, user.Id, "999")
	assert.ErrorIs(t, err, store.ErrNotFound)

	edited, err := ledger.EditAccount(ctx, adminId, models.AccountRequest{AccountNumber: "0123456789", FullName: "Ada Obi-Eze"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi-Eze", edited.FullName)
	assert.Equal(t, "First Bank", edited.BankName)

	_, err = ledger.EditAccount(ctx, adminId, models.AccountRequest{AccountNumber: "0123456789"})
	assert.ErrorIs(t, err, store.ErrValidation)

	require.NoError(t, ledger.DeleteAccount(ctx, adminId, account.Id))
	_, err = ledger.GetAccount(ctx, user.Id, "0123456789")
	assert.ErrorIs(t, err, store.ErrNotFound)

	activities, err := ledger.ListActivities(ctx, superAdminId, models.PageRequest{})
	require.NoError(t, err)
	var actions []string
	for _, a := range activities.Data {
		actions = append(actions, a.Action)
	}
	assert.Subset(t, actions, []string{"create_account", "edit_account", "delete_account"})
}

func TestApproveDepositRequest_ExactlyOnce(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Ifeoma")

	d, err := ledger.CreateDepositRequest(ctx, user.Id, models.DepositRequestInput{Amount: decimal.RequireFromString("250.50")})
	require.NoError(t, err)

	successful := models.StatusSuccessful
	accepted := models.AcceptanceAccepted
	update := models.DepositUpdateRequest{Id: d.Id, IsAccepted: &accepted, Status: &successful}

	for i := 0; i < 3; i++ {
		updated, err := ledger.ApproveDepositRequest(ctx, adminId, update)
		require.NoError(t, err, "approval %d", i)
		assert.Equal(t, models.StatusSuccessful, updated.Status)
	}

	page, err := ledger.ListUserTransactions(ctx, user.Id, models.TransactionCredit, models.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, models.SubTypeDeposit, page.Data[0].SubType)
	assert.True(t, page.Data[0].Amount.Equal(d.Amount))

	balance, _ := ledger.GetBalance(ctx, user.Id)
	assert.True(t, balance.Balance.Equal(d.Amount))

	var approvals int
	for _, m := range dueMessages(t, db, models.OutboxNotification) {
		var p models.NotificationPayload
		require.NoError(t, json.Unmarshal(m.Payload, &p))
		if p.Title == "Deposit Approved" {
			approvals++
		}
	}
	assert.Equal(t, 1, approvals)

	activities, _ := ledger.ListActivities(ctx, adminId, models.PageRequest{})
	assert.Equal(t, 3, activities.Pagination.Total, "every admin edit is audited")

	failed := models.StatusFailed
	_, err = ledger.ApproveDepositRequest(ctx, adminId, models.DepositUpdateRequest{Id: d.Id, Status: &failed})
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestApproveDepositRequest_AfterFailure(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Ikenna")

	d, err := ledger.CreateDepositRequest(ctx, user.Id, models.DepositRequestInput{Amount: decimal.NewFromInt(75)})
	require.NoError(t, err)

	failed := models.StatusFailed
	_, err = ledger.ApproveDepositRequest(ctx, adminId, models.DepositUpdateRequest{Id: d.Id, Status: &failed})
	require.NoError(t, err)

	balance, _ := ledger.GetBalance(ctx, user.Id)
	assert.True(t, balance.Balance.IsZero())

	successful := models.StatusSuccessful
	for i := 0; i < 2; i++ {
		updated, err := ledger.ApproveDepositRequest(ctx, adminId, models.DepositUpdateRequest{Id: d.Id, Status: &successful})
		require.NoError(t, err, "approval %d", i)
		assert.Equal(t, models.StatusSuccessful, updated.Status)
	}

	balance, _ = ledger.GetBalance(ctx, user.Id)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(75)), "balance %s", balance.Balance)
}

func TestCreateSavings_RejectsMultilineTitle(t *testing.T) {
	ledger, _ := newTestLedger(t)
	user := newTestUser(t, ledger, "Nneka")

	_, err := ledger.CreateSavings(context.Background(), user.Id, models.CreateSavingsRequest{Title: "Car\r\nBcc: attacker@evil.test"})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestSavingsRules(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Jide")
	postEntry(t, ledger, user.Id, models.TransactionCredit, models.SubTypeDeposit, "1000")

	target := decimal.NewNullDecimal(decimal.NewFromInt(500))
	sv, err := ledger.CreateSavings(ctx, user.Id, models.CreateSavingsRequest{Title: "Car", TargetAmount: target})
	require.NoError(t, err)

	_, err = ledger.TopUpSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(200)})
	require.NoError(t, err)

	_, err = ledger.WithdrawSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(300)})
	assert.ErrorIs(t, err, store.ErrInsufficientFunds)

	_, err = ledger.WithdrawSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, store.ErrNotYetAccessible)

	completed, err := ledger.TopUpSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(300)})
	require.NoError(t, err)
	assert.Equal(t, models.SavingsCompleted, completed.Status)

	_, err = ledger.WithdrawSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)

	_, err = ledger.TopUpSavings(ctx, "someone-else", models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)

	assert.ErrorIs(t, ledger.DeleteSavings(ctx, adminId, sv.Id), store.ErrForbidden)
	require.NoError(t, ledger.DeleteSavings(ctx, superAdminId, sv.Id))

	list, err := ledger.ListUserSavings(ctx, user.Id)
	require.NoError(t, err)
	assert.Empty(t, list)

	balance, _ := ledger.GetBalance(ctx, user.Id)
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(1500)), "balance %s", balance.Balance)
}

func TestTopUpSavings_WithoutMainBalance(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Musa")

	sv, err := ledger.CreateSavings(ctx, user.Id, models.CreateSavingsRequest{Title: "Car"})
	require.NoError(t, err)

	updated, err := ledger.TopUpSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.True(t, updated.SavedAmount.Equal(decimal.NewFromInt(50)), "saved %s", updated.SavedAmount)

	// No ceiling applies.
	updated, err = ledger.TopUpSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(1000000)})
	require.NoError(t, err)
	assert.True(t, updated.SavedAmount.Equal(decimal.NewFromInt(1000050)), "saved %s", updated.SavedAmount)

	recent, err := ledger.LastTransactions(ctx, user.Id)
	require.NoError(t, err)
	assert.Empty(t, recent, "top-up leaves the ledger untouched")

	balance, err := ledger.GetBalance(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, balance.Balance.IsZero(), "balance %s", balance.Balance)

	var notified bool
	for _, m := range dueMessages(t, db, models.OutboxNotification) {
		var p models.NotificationPayload
		require.NoError(t, json.Unmarshal(m.Payload, &p))
		notified = notified || p.Title == "Savings Topped Up"
	}
	assert.True(t, notified, "top-up notification not enqueued")
}

func TestWithdrawSavings_ConcurrentNeverOverdraws(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()
	user := newTestUser(t, ledger, "Kemi")
	postEntry(t, ledger, user.Id, models.TransactionCredit, models.SubTypeDeposit, "150")

	sv, err := ledger.CreateSavings(ctx, user.Id, models.CreateSavingsRequest{Title: "Rainy day"})
	require.NoError(t, err)
	_, err = ledger.TopUpSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(150)})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.WithdrawSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(50)})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.True(t, store.IsRetryable(err) || store.StatusCode(err) == 422, "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, successes, 3)

	after, err := db.GetSavings(ctx, sv.Id, user.Id)
	require.NoError(t, err)
	expected := decimal.NewFromInt(150 - 50*int64(successes))
	assert.True(t, after.SavedAmount.Equal(expected), "saved %s, expected %s", after.SavedAmount, expected)
	assert.False(t, after.SavedAmount.IsNegative())

	reconciled, err := db.ReconcileUserBalance(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, reconciled.Matches)
}

// flakyStore loses the first n optimistic races on savings withdrawal.
type flakyStore struct {
	store.LedgerStore
	failures int
	calls    int
}

func (f *flakyStore) WithdrawSavings(ctx context.Context, params store.SavingsMovementParams) (*models.Savings, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, store.ErrConcurrentModification
	}
	return f.LedgerStore.WithdrawSavings(ctx, params)
}

func TestRetry(t *testing.T) {
	_, db := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		failures  int
		wantErr   error
		wantCalls int
	}{
		{"recovers", 2, nil, 3},
		{"gives up", 3, store.ErrConcurrentModification, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flaky := &flakyStore{LedgerStore: db, failures: tt.failures}
			ledger := NewLedgerService(flaky, nil)

			user := newTestUser(t, ledger, "Lola"+strings.ReplaceAll(tt.name, " ", ""))
			postEntry(t, ledger, user.Id, models.TransactionCredit, models.SubTypeDeposit, "10")
			sv, err := ledger.CreateSavings(ctx, user.Id, models.CreateSavingsRequest{Title: "Buffer"})
			require.NoError(t, err)
			_, err = ledger.TopUpSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(10)})
			require.NoError(t, err)

			_, err = ledger.WithdrawSavings(ctx, user.Id, models.SavingsMovementRequest{SavingsId: sv.Id, Amount: decimal.NewFromInt(5)})
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantCalls, flaky.calls)
		})
	}
}
