package store

import (
	"context"
	"time"

	"bank-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// CreateUserParams contains the parameters for registering a customer.
type CreateUserParams struct {
	Id            string
	Name          string
	Email         string
	AccountNumber string
}

// TransactionFilter narrows transaction listings. Empty fields match everything.
type TransactionFilter struct {
	UserId          string
	TransactionType models.TransactionType
}

// RecordTransactionParams appends one ledger entry. Outbox messages are
// committed in the same database transaction.
type RecordTransactionParams struct {
	Transaction *models.Transaction
	Outbox      []models.OutboxMessage
}

// UpdateTransactionStatusParams settles a pending entry.
type UpdateTransactionStatusParams struct {
	Id       string
	Status   models.TransactionStatus
	Activity *models.Activity
	Outbox   []models.OutboxMessage
}

// SavingsMovementParams changes a savings account's saved amount.
// ExpectedVersion is the savings version the caller validated against.
// Transaction is the ledger entry a withdrawal credits and is ignored on top-up.
type SavingsMovementParams struct {
	SavingsId       string
	UserId          string
	Amount          decimal.Decimal
	ExpectedVersion int64
	Transaction     *models.Transaction
	Outbox          []models.OutboxMessage
}

// SavingsInterestParams accrues interest on active savings. AnnualRate is a
// fraction (0.05 is 5%); the daily share is AnnualRate/365. An account earns
// at most once per UTC day.
type SavingsInterestParams struct {
	Now        time.Time
	AnnualRate decimal.Decimal
}

// UpdateAccountParams edits a directory entry by account number. Empty fields
// are left untouched.
type UpdateAccountParams struct {
	AccountNumber string
	FullName      string
	BankName      string
	Activity      *models.Activity
}

// DepositRequestUpdate is a partial administrative edit; nil fields are left untouched.
type DepositRequestUpdate struct {
	IsAccepted *models.AcceptanceState
	Status     *models.TransactionStatus
	Hash       *string
}

// DepositApprovalParams applies a DepositRequestUpdate. PriorStatus guards the
// transition; Credit is set only when the update settles the request as successful.
type DepositApprovalParams struct {
	Id          string
	PriorStatus models.TransactionStatus
	Update      DepositRequestUpdate
	Credit      *models.Transaction
	Activity    *models.Activity
	Outbox      []models.OutboxMessage
}

// OutboxAttemptParams records the outcome of one failed delivery attempt.
type OutboxAttemptParams struct {
	Id            string
	Failed        bool
	NextAttemptAt time.Time
	LastError     string
}

// LedgerStore defines the contract that every backend (SQLite, PostgreSQL) must satisfy.
type LedgerStore interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
	SetUserSuspended(ctx context.Context, userId string, suspended bool, activity *models.Activity, outbox []models.OutboxMessage) (*models.User, error)

	// --- Admins ---
	GetAdminById(ctx context.Context, adminId string) (*models.Admin, error)
	CreateAdmin(ctx context.Context, admin *models.Admin) error

	// --- Balances ---
	GetUserBalance(ctx context.Context, userId string) (decimal.Decimal, error)
	CalculateBalance(ctx context.Context, userId string) (decimal.Decimal, error)
	ReconcileUserBalance(ctx context.Context, userId string) (*models.ReconciliationResult, error)

	// --- Transactions ---
	RecordTransaction(ctx context.Context, params RecordTransactionParams) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter, page models.PageRequest) ([]models.Transaction, int, error)
	LastTransactions(ctx context.Context, userId string, n int) ([]models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, params UpdateTransactionStatusParams) (*models.Transaction, error)
	PurgeTransaction(ctx context.Context, id string, activity *models.Activity) (*models.Transaction, error)
	UpdateTransactionLevel(ctx context.Context, id, userId, level string) (*models.Transaction, error)

	// --- Savings ---
	CreateSavings(ctx context.Context, savings *models.Savings) error
	GetSavings(ctx context.Context, savingsId, userId string) (*models.Savings, error)
	ListUserSavings(ctx context.Context, userId string) ([]models.Savings, error)
	ListSavings(ctx context.Context, page models.PageRequest) ([]models.Savings, int, error)
	TopUpSavings(ctx context.Context, params SavingsMovementParams) (*models.Savings, error)
	WithdrawSavings(ctx context.Context, params SavingsMovementParams) (*models.Savings, error)
	DeleteSavings(ctx context.Context, savingsId string, activity *models.Activity) error
	CompleteMaturedSavings(ctx context.Context, now time.Time) (int, error)
	ApplySavingsInterest(ctx context.Context, params SavingsInterestParams) (int, error)

	// --- Deposit requests ---
	CreateDepositRequest(ctx context.Context, req *models.DepositRequest) error
	GetDepositRequest(ctx context.Context, id string) (*models.DepositRequest, error)
	ListUserDepositRequests(ctx context.Context, userId string) ([]models.DepositRequest, error)
	ListDepositRequests(ctx context.Context, page models.PageRequest) ([]models.DepositRequest, int, error)
	UpdateDepositHash(ctx context.Context, id, userId, hash string) (*models.DepositRequest, error)
	ApplyDepositUpdate(ctx context.Context, params DepositApprovalParams) (*models.DepositRequest, error)
	DeleteDepositRequest(ctx context.Context, id string, activity *models.Activity) error

	// --- Account directory ---
	GetAccount(ctx context.Context, accountNumber string) (*models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account, activity *models.Activity) error
	UpdateAccount(ctx context.Context, params UpdateAccountParams) (*models.Account, error)
	DeleteAccount(ctx context.Context, id string, activity *models.Activity) error

	// --- Beneficiaries ---
	GetBeneficiary(ctx context.Context, userId, accountNumber string) (*models.Beneficiary, error)
	CreateBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) error
	ListBeneficiaries(ctx context.Context, userId string) ([]models.Beneficiary, error)
	DeleteBeneficiary(ctx context.Context, id, userId string) error

	// --- Notifications & audit ---
	SaveNotification(ctx context.Context, notification *models.Notification) (bool, error)
	ListNotifications(ctx context.Context, userId string, page models.PageRequest) ([]models.Notification, int, error)
	MarkNotificationsRead(ctx context.Context, userId string, ids []string) (int64, error)
	ListActivities(ctx context.Context, page models.PageRequest) ([]models.Activity, int, error)

	// --- Outbox ---
	EnqueueOutbox(ctx context.Context, messages []models.OutboxMessage) error
	FetchDueOutbox(ctx context.Context, now time.Time, limit int) ([]models.OutboxMessage, error)
	MarkOutboxDelivered(ctx context.Context, id string) error
	MarkOutboxAttempt(ctx context.Context, params OutboxAttemptParams) error

	// --- Lifecycle ---
	Close()
}
