package store

import (
	"fmt"
	"time"

	"bank-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// CheckSavingsWithdrawal applies the withdrawal preconditions in order:
// sufficient saved funds, then maturity.
func CheckSavingsWithdrawal(s *models.Savings, amount decimal.Decimal) error {
	if amount.GreaterThan(s.SavedAmount) {
		return fmt.Errorf("%w: requested %s, saved %s", ErrInsufficientFunds, amount.String(), s.SavedAmount.String())
	}
	if s.HasMaturityCondition() && s.Status != models.SavingsCompleted {
		return fmt.Errorf("%w: %q has not matured", ErrNotYetAccessible, s.Title)
	}
	return nil
}

// ApplyTopUp returns the savings state after adding amount, completing the
// account once a target is reached.
func ApplyTopUp(s models.Savings, amount decimal.Decimal) models.Savings {
	s.SavedAmount = s.SavedAmount.Add(amount)
	if s.TargetAmount.Valid && s.SavedAmount.GreaterThanOrEqual(s.TargetAmount.Decimal) {
		s.Status = models.SavingsCompleted
	}
	return s
}

// DailyInterest is one day's share of an annual rate on the saved amount,
// truncated to minor units.
func DailyInterest(saved, annualRate decimal.Decimal) decimal.Decimal {
	if !saved.IsPositive() || !annualRate.IsPositive() {
		return decimal.Zero
	}
	return saved.Mul(annualRate).Div(decimal.NewFromInt(365)).Truncate(2)
}

// InterestDay returns the UTC midnight that starts the accrual day of t.
func InterestDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ShouldMature reports whether the sweep should complete an active account.
func ShouldMature(s *models.Savings, now time.Time) bool {
	return s.Status == models.SavingsActive && s.HasMaturityCondition() && s.Matured(now)
}

// CheckStatusTransition enforces pending -> successful|failed for ledger entries.
func CheckStatusTransition(from, to models.TransactionStatus) error {
	if !to.Valid() || to == models.StatusPending {
		return fmt.Errorf("%w: target status %q", ErrValidation, to)
	}
	if from != models.StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CheckDepositTransition locks a deposit once it has been credited. A failed
// deposit may still be confirmed later. Setting the same status again is
// allowed and has no effect.
func CheckDepositTransition(from, to models.TransactionStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: status %q", ErrValidation, to)
	}
	if from == models.StatusSuccessful && to != models.StatusSuccessful {
		return fmt.Errorf("%w: deposit already %s", ErrInvalidTransition, from)
	}
	return nil
}
