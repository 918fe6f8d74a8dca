package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

func (t TransactionType) Valid() bool {
	return t == TransactionCredit || t == TransactionDebit
}

type SubType string

const (
	SubTypeDeposit    SubType = "deposit"
	SubTypeWithdrawal SubType = "withdrawal"
	SubTypeSavings    SubType = "savings"
	SubTypeTransfer   SubType = "transfer"
	SubTypeOther      SubType = "other"
)

func (s SubType) Valid() bool {
	switch s {
	case SubTypeDeposit, SubTypeWithdrawal, SubTypeSavings, SubTypeTransfer, SubTypeOther:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusSuccessful TransactionStatus = "successful"
	StatusFailed     TransactionStatus = "failed"
)

func (s TransactionStatus) Valid() bool {
	return s == StatusPending || s == StatusSuccessful || s == StatusFailed
}

// User represents a bank customer
type User struct {
	Id            string    `json:"id" db:"id"`
	Name          string    `json:"fullName" db:"name"`
	Email         string    `json:"email" db:"email"`
	AccountNumber string    `json:"accountNumber" db:"account_number"`
	Suspended     bool      `json:"isSuspended" db:"suspended"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Admin represents a back-office operator
type Admin struct {
	Id        string    `json:"id" db:"id"`
	Name      string    `json:"fullName" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (a *Admin) IsSuperAdmin() bool {
	return a != nil && a.Role == RoleSuperAdmin
}

// Transaction is one immutable ledger entry. Amount is always a magnitude;
// the direction comes from TransactionType.
type Transaction struct {
	Id              string            `json:"id" db:"id"`
	UserId          string            `json:"user" db:"user_id"`
	TransactionId   string            `json:"transactionId" db:"transaction_id"`
	TransactionType TransactionType   `json:"transactionType" db:"transaction_type"`
	SubType         SubType           `json:"subType" db:"sub_type"`
	Amount          decimal.Decimal   `json:"amount" db:"amount"`
	Description     string            `json:"description,omitempty" db:"description"`
	Level           string            `json:"level,omitempty" db:"level"`
	Status          TransactionStatus `json:"status" db:"status"`
	CreatedAt       time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time         `json:"updatedAt" db:"updated_at"`
}

// Delta returns the signed effect of the entry on the owner's balance.
func (t Transaction) Delta() decimal.Decimal {
	if t.TransactionType == TransactionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Counts reports whether the entry contributes to the balance.
func (t Transaction) Counts() bool {
	return t.Status == StatusSuccessful
}

// AccountBalance is the materialized balance aggregate (hot data)
type AccountBalance struct {
	UserId            string          `json:"user" db:"user_id"`
	Balance           decimal.Decimal `json:"balance" db:"balance"`
	LastTransactionId string          `json:"lastTransactionId" db:"last_transaction_id"`
	Version           int64           `json:"version" db:"version"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}

type SavingsStatus string

const (
	SavingsActive    SavingsStatus = "active"
	SavingsCompleted SavingsStatus = "completed"
)

type Savings struct {
	Id           string              `json:"id" db:"id"`
	UserId       string              `json:"user" db:"user_id"`
	Title        string              `json:"title" db:"title"`
	SavedAmount  decimal.Decimal     `json:"savedAmount" db:"saved_amount"`
	TargetAmount decimal.NullDecimal `json:"targetAmount,omitempty" db:"target_amount"`
	EndDate      *time.Time          `json:"endDate,omitempty" db:"end_date"`
	Status       SavingsStatus       `json:"status" db:"status"`
	Version      int64               `json:"-" db:"version"`
	CreatedAt    time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time           `json:"updatedAt" db:"updated_at"`
}

// HasMaturityCondition reports whether early withdrawal is gated.
func (s *Savings) HasMaturityCondition() bool {
	return s.TargetAmount.Valid || s.EndDate != nil
}

// Matured reports whether a maturity condition has been met at the given time.
func (s *Savings) Matured(now time.Time) bool {
	if s.TargetAmount.Valid && s.SavedAmount.GreaterThanOrEqual(s.TargetAmount.Decimal) {
		return true
	}
	return s.EndDate != nil && !now.Before(*s.EndDate)
}

type AcceptanceState string

const (
	AcceptancePending  AcceptanceState = "pending"
	AcceptanceAccepted AcceptanceState = "accepted"
	AcceptanceDeclined AcceptanceState = "declined"
)

func (a AcceptanceState) Valid() bool {
	return a == AcceptancePending || a == AcceptanceAccepted || a == AcceptanceDeclined
}

type DepositRequest struct {
	Id         string            `json:"id" db:"id"`
	UserId     string            `json:"user" db:"user_id"`
	IsAccepted AcceptanceState   `json:"isAccepted" db:"is_accepted"`
	Amount     decimal.Decimal   `json:"amount" db:"amount"`
	Hash       string            `json:"hash,omitempty" db:"hash"`
	Status     TransactionStatus `json:"status" db:"status"`
	CreatedAt  time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time         `json:"updatedAt" db:"updated_at"`
}

// Account is a directory entry used to resolve an account number to its
// holder before a transfer.
type Account struct {
	Id            string    `json:"id" db:"id"`
	AccountNumber string    `json:"accountNumber" db:"account_number"`
	FullName      string    `json:"fullName" db:"full_name"`
	BankName      string    `json:"bankName" db:"bank_name"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

type Beneficiary struct {
	Id            string    `json:"id" db:"id"`
	UserId        string    `json:"user" db:"user_id"`
	AccountNumber string    `json:"accountNumber" db:"account_number"`
	FullName      string    `json:"fullName" db:"full_name"`
	BankName      string    `json:"bankName" db:"bank_name"`
	Note          string    `json:"note,omitempty" db:"note"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

type Notification struct {
	Id        string         `json:"id" db:"id"`
	UserId    string         `json:"user" db:"user_id"`
	Type      string         `json:"type" db:"type"`
	Subtype   string         `json:"subtype" db:"subtype"`
	Title     string         `json:"title" db:"title"`
	Message   string         `json:"message" db:"message"`
	Data      map[string]any `json:"data,omitempty" db:"data"`
	Read      bool           `json:"read" db:"read"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
}

// Activity is an administrative audit entry
type Activity struct {
	Id          string         `json:"id" db:"id"`
	AdminId     string         `json:"admin" db:"admin_id"`
	Action      string         `json:"action" db:"action"`
	TargetId    string         `json:"target,omitempty" db:"target_id"`
	TargetModel string         `json:"targetModel,omitempty" db:"target_model"`
	Metadata    map[string]any `json:"metadata,omitempty" db:"metadata"`
	Timestamp   time.Time      `json:"timestamp" db:"timestamp"`
}

type OutboxKind string

const (
	OutboxNotification OutboxKind = "notification"
	OutboxEmail        OutboxKind = "email"
)

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxDelivered OutboxStatus = "delivered"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxMessage is a side effect committed together with a ledger write
type OutboxMessage struct {
	Id            string          `db:"id"`
	Kind          OutboxKind      `db:"kind"`
	Payload       json.RawMessage `db:"payload"`
	Status        OutboxStatus    `db:"status"`
	Attempts      int             `db:"attempts"`
	NextAttemptAt time.Time       `db:"next_attempt_at"`
	LastError     string          `db:"last_error"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// NotificationPayload is the outbox body for OutboxNotification
type NotificationPayload struct {
	UserId  string         `json:"user"`
	Type    string         `json:"type"`
	Subtype string         `json:"subtype"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// EmailPayload is the outbox body for OutboxEmail. Template names a file
// under the mailer's embedded templates.
type EmailPayload struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}
