/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are numbers on the wire, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Response is the envelope returned by every endpoint
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PageRequest carries 1-based pagination input
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit to sane values.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

func NewPagination(total int, p PageRequest) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{Total: total, Page: p.Page, Pages: pages}
}

type Paginated[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// UserBalance is the balance view returned to a user
type UserBalance struct {
	UserId  string          `json:"user"`
	Balance decimal.Decimal `json:"balance"`
}

// TransactionDetails is the beneficiary block attached to a transfer
type TransactionDetails struct {
	AccountNumber string `json:"accountNumber"`
	FullName      string `json:"fullName"`
	BankName      string `json:"bankName"`
}

// ReconciliationResult reports aggregate vs. full-scan balance
type ReconciliationResult struct {
	UserId     string          `json:"user"`
	Stored     decimal.Decimal `json:"stored"`
	Calculated decimal.Decimal `json:"calculated"`
	Matches    bool            `json:"matches"`
	CheckedAt  time.Time       `json:"checkedAt"`
}

// CreateTransactionRequest is the input for user transfers and admin entries.
// UserId, Status and Notification are honored only on the admin route.
type CreateTransactionRequest struct {
	UserId          string              `json:"user,omitempty"`
	Amount          decimal.Decimal     `json:"amount"`
	TransactionType TransactionType     `json:"transactionType"`
	SubType         SubType             `json:"subType"`
	Description     string              `json:"description,omitempty"`
	Status          TransactionStatus   `json:"status,omitempty"`
	Beneficiary     bool                `json:"beneficiary,omitempty"`
	Details         *TransactionDetails `json:"details,omitempty"`
	Note            string              `json:"note,omitempty"`
	Notification    bool                `json:"notification,omitempty"`
}

// TransactionResult is returned after a ledger write together with the
// balance observed right after it.
type TransactionResult struct {
	Transaction *Transaction    `json:"transaction"`
	Balance     decimal.Decimal `json:"balance"`
}

type CreateUserRequest struct {
	Name  string `json:"fullName"`
	Email string `json:"email"`
}

type CreateSavingsRequest struct {
	Title        string              `json:"title"`
	TargetAmount decimal.NullDecimal `json:"targetAmount"`
	EndDate      *time.Time          `json:"endDate,omitempty"`
}

type SavingsMovementRequest struct {
	SavingsId string          `json:"savingsId"`
	Amount    decimal.Decimal `json:"amount"`
}

type DepositRequestInput struct {
	Amount decimal.Decimal `json:"amount"`
	Hash   string          `json:"hash,omitempty"`
}

// EditDepositRequest is the owner's edit; only the hash may change.
type EditDepositRequest struct {
	Id   string `json:"id"`
	Hash string `json:"hash"`
}

// DepositUpdateRequest is the administrative partial update. Absent fields
// are left unchanged.
type DepositUpdateRequest struct {
	Id         string             `json:"id"`
	IsAccepted *AcceptanceState   `json:"isAccepted,omitempty"`
	Status     *TransactionStatus `json:"status,omitempty"`
	Hash       *string            `json:"hash,omitempty"`
}

type BeneficiaryRequest struct {
	AccountNumber string `json:"accountNumber"`
	FullName      string `json:"fullName"`
	BankName      string `json:"bankName"`
	Note          string `json:"note,omitempty"`
}

type MarkReadRequest struct {
	Ids []string `json:"ids,omitempty"`
}

type StatusUpdateRequest struct {
	Status TransactionStatus `json:"status"`
}

type SuspensionRequest struct {
	Suspended bool `json:"isSuspended"`
}

// AccountRequest creates or edits a directory entry. On edit the account
// number selects the entry and empty fields are left unchanged.
type AccountRequest struct {
	AccountNumber string `json:"accountNumber"`
	FullName      string `json:"fullName"`
	BankName      string `json:"bankName"`
}

type TransactionLevelRequest struct {
	TransactionId string `json:"transactionId"`
	Level         string `json:"level"`
}
