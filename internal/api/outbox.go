package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bank-ledger-go/internal/common"
	"bank-ledger-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Email template names understood by the mailer.
const (
	TemplateTransaction = "transaction"
	TemplateDeposit     = "deposit"
	TemplateSavings     = "savings"
	TemplateSuspension  = "suspension"
)

const emailDateLayout = "January 2, 2006 3:04 PM"

func newOutboxMessage(kind models.OutboxKind, payload any) (models.OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return models.OutboxMessage{}, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	return models.OutboxMessage{
		Id:      uuid.New().String(),
		Kind:    kind,
		Payload: body,
	}, nil
}

// outbox collects the side effects of one ledger write.
type outbox struct {
	messages []models.OutboxMessage
	err      error
}

func (o *outbox) add(kind models.OutboxKind, payload any) {
	if o.err != nil {
		return
	}
	msg, err := newOutboxMessage(kind, payload)
	if err != nil {
		o.err = err
		return
	}
	o.messages = append(o.messages, msg)
}

func (o *outbox) notify(p models.NotificationPayload) {
	o.add(models.OutboxNotification, p)
}

func (o *outbox) email(p models.EmailPayload) {
	if p.To == "" {
		return
	}
	o.add(models.OutboxEmail, p)
}

func (o *outbox) build() ([]models.OutboxMessage, error) {
	return o.messages, o.err
}

func (s *LedgerService) money(amount decimal.Decimal) string {
	return common.FormatAmount(s.bank.CurrencySymbol, amount)
}

func formatDate(t time.Time) string {
	return t.Format(emailDateLayout)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// transactionNotice is the notification sent for a balance-affecting entry.
func (s *LedgerService) transactionNotice(t *models.Transaction, balance decimal.Decimal) models.NotificationPayload {
	verb, title := "credited to", "Account Credited"
	if t.TransactionType == models.TransactionDebit {
		verb, title = "debited from", "Account Debited"
	}
	message := fmt.Sprintf("%s was %s your account.", s.money(t.Amount), verb)
	if t.Status == models.StatusFailed {
		title = "Transaction Failed"
		message = fmt.Sprintf("Your %s of %s failed and was not applied.", t.SubType, s.money(t.Amount))
	}
	return models.NotificationPayload{
		UserId:  t.UserId,
		Type:    "transaction",
		Subtype: string(t.TransactionType),
		Title:   title,
		Message: message,
		Data: map[string]any{
			"transactionId": t.TransactionId,
			"amount":        t.Amount,
			"balance":       balance,
			"date":          t.CreatedAt,
		},
	}
}

// transactionAlert is the email counterpart of transactionNotice.
func (s *LedgerService) transactionAlert(user *models.User, t *models.Transaction, balance decimal.Decimal) models.EmailPayload {
	kind := capitalize(string(t.TransactionType))
	return models.EmailPayload{
		To:       user.Email,
		Subject:  fmt.Sprintf("Transaction Alert: Account %sed", kind),
		Template: TemplateTransaction,
		Data: map[string]any{
			"name":          user.Name,
			"amount":        s.money(t.Amount),
			"date":          formatDate(t.CreatedAt),
			"transactionId": t.TransactionId,
			"description":   t.Description,
			"balance":       s.money(balance),
			"type":          kind,
			"subType":       capitalize(string(t.SubType)),
			"status":        capitalize(string(t.Status)),
		},
	}
}
