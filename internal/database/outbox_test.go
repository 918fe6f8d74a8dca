package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/google/uuid"
)

func TestOutbox_DueAndBackoff(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	due := models.OutboxMessage{Id: "due", Kind: models.OutboxEmail, Payload: []byte(`{"to":"a@example.com"}`), NextAttemptAt: now.Add(-time.Minute)}
	later := models.OutboxMessage{Id: "later", Kind: models.OutboxNotification, Payload: []byte(`{}`), NextAttemptAt: now.Add(time.Hour)}
	if err := service.EnqueueOutbox(ctx, []models.OutboxMessage{due, later}); err != nil {
		t.Fatalf("EnqueueOutbox failed: %v", err)
	}

	messages, err := service.FetchDueOutbox(ctx, now, 10)
	if err != nil {
		t.Fatalf("FetchDueOutbox failed: %v", err)
	}
	if len(messages) != 1 || messages[0].Id != "due" {
		t.Fatalf("Expected only the due message, got %+v", messages)
	}
	if string(messages[0].Payload) != `{"to":"a@example.com"}` {
		t.Errorf("Payload not preserved: %s", messages[0].Payload)
	}

	err = service.MarkOutboxAttempt(ctx, store.OutboxAttemptParams{
		Id:            "due",
		NextAttemptAt: now.Add(30 * time.Minute),
		LastError:     "smtp: connection refused",
	})
	if err != nil {
		t.Fatalf("MarkOutboxAttempt failed: %v", err)
	}

	messages, _ = service.FetchDueOutbox(ctx, now, 10)
	if len(messages) != 0 {
		t.Fatalf("Expected backed-off message to be skipped, got %d", len(messages))
	}

	messages, _ = service.FetchDueOutbox(ctx, now.Add(2*time.Hour), 10)
	if len(messages) != 2 {
		t.Fatalf("Expected both messages once due, got %d", len(messages))
	}
	if messages[0].Id != "due" || messages[0].Attempts != 1 || messages[0].LastError == "" {
		t.Errorf("Expected attempt to be recorded, got %+v", messages[0])
	}

	if err := service.MarkOutboxDelivered(ctx, "due"); err != nil {
		t.Fatalf("MarkOutboxDelivered failed: %v", err)
	}
	if err := service.MarkOutboxAttempt(ctx, store.OutboxAttemptParams{Id: "later", Failed: true, LastError: "gave up"}); err != nil {
		t.Fatalf("MarkOutboxAttempt failed: %v", err)
	}

	messages, _ = service.FetchDueOutbox(ctx, now.Add(24*time.Hour), 10)
	if len(messages) != 0 {
		t.Errorf("Expected delivered and failed messages to leave the queue, got %d", len(messages))
	}
}

func TestOutbox_RolledBackWithLedgerWrite(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")

	tx := newTestTransaction("user1", models.TransactionCredit, models.SubTypeDeposit, "10", models.StatusSuccessful)
	recordTestTransaction(t, service, tx)

	// Reusing the external id fails the insert, so the message must not survive.
	_, err := service.RecordTransaction(ctx, store.RecordTransactionParams{
		Transaction: &models.Transaction{
			Id:              uuid.New().String(),
			UserId:          "user1",
			TransactionId:   tx.TransactionId,
			TransactionType: models.TransactionCredit,
			SubType:         models.SubTypeDeposit,
			Amount:          tx.Amount,
			Status:          models.StatusSuccessful,
		},
		Outbox: []models.OutboxMessage{{Id: "orphan", Kind: models.OutboxEmail, Payload: []byte(`{}`)}},
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}

	messages, _ := service.FetchDueOutbox(ctx, time.Now().Add(time.Minute), 10)
	if len(messages) != 0 {
		t.Errorf("Expected no outbox rows after rollback, got %d", len(messages))
	}
}

func TestNotifications_InsertOnceAndMarkRead(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")

	for i, id := range []string{"n1", "n2", "n3"} {
		n := &models.Notification{
			Id:        id,
			UserId:    "user1",
			Type:      "transaction",
			Subtype:   "deposit",
			Title:     "Deposit received",
			Message:   "Your account was credited",
			Data:      map[string]any{"amount": "10"},
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		inserted, err := service.SaveNotification(ctx, n)
		if err != nil {
			t.Fatalf("SaveNotification failed: %v", err)
		}
		if !inserted {
			t.Errorf("Expected %s to be inserted", id)
		}
	}

	inserted, err := service.SaveNotification(ctx, &models.Notification{Id: "n1", UserId: "user1", Title: "again"})
	if err != nil {
		t.Fatalf("SaveNotification failed: %v", err)
	}
	if inserted {
		t.Error("Expected redelivered notification to be ignored")
	}

	list, total, err := service.ListNotifications(ctx, "user1", models.PageRequest{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if total != 3 || len(list) != 2 {
		t.Fatalf("Expected 2 of 3 notifications, got %d of %d", len(list), total)
	}
	if list[0].Id != "n3" {
		t.Errorf("Expected newest first, got %s", list[0].Id)
	}
	if list[0].Data["amount"] != "10" {
		t.Errorf("Expected data to round-trip, got %v", list[0].Data)
	}

	n, err := service.MarkNotificationsRead(ctx, "user1", []string{"n1"})
	if err != nil {
		t.Fatalf("MarkNotificationsRead failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 marked, got %d", n)
	}

	n, _ = service.MarkNotificationsRead(ctx, "user1", nil)
	if n != 2 {
		t.Errorf("Expected remaining 2 marked, got %d", n)
	}

	n, _ = service.MarkNotificationsRead(ctx, "user2", nil)
	if n != 0 {
		t.Errorf("Expected nothing marked for another user, got %d", n)
	}
}

func TestBeneficiaries(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, service, "user1")

	b := &models.Beneficiary{Id: uuid.New().String(), UserId: "user1", AccountNumber: "0123456789", FullName: "Ada Obi", BankName: "First Bank"}
	if err := service.CreateBeneficiary(ctx, b); err != nil {
		t.Fatalf("CreateBeneficiary failed: %v", err)
	}

	dup := *b
	dup.Id = uuid.New().String()
	if err := service.CreateBeneficiary(ctx, &dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}

	got, err := service.GetBeneficiary(ctx, "user1", "0123456789")
	if err != nil {
		t.Fatalf("GetBeneficiary failed: %v", err)
	}
	if got.FullName != "Ada Obi" {
		t.Errorf("Expected Ada Obi, got %s", got.FullName)
	}

	if err := service.DeleteBeneficiary(ctx, b.Id, "user2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for foreign delete, got %v", err)
	}
	if err := service.DeleteBeneficiary(ctx, b.Id, "user1"); err != nil {
		t.Fatalf("DeleteBeneficiary failed: %v", err)
	}

	list, _ := service.ListBeneficiaries(ctx, "user1")
	if len(list) != 0 {
		t.Errorf("Expected no beneficiaries, got %d", len(list))
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver string
		query  string
		want   string
	}{
		{models.DriverSQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{models.DriverPostgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{models.DriverPostgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		if got := rebind(tt.driver, tt.query); got != tt.want {
			t.Errorf("rebind(%s, %q) = %q, want %q", tt.driver, tt.query, got, tt.want)
		}
	}

	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("placeholders(3) = %q", got)
	}
}
