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

package listener

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

// OutboxStore is the part of the ledger store the listener drains and sweeps.
type OutboxStore interface {
	FetchDueOutbox(ctx context.Context, now time.Time, limit int) ([]models.OutboxMessage, error)
	MarkOutboxDelivered(ctx context.Context, id string) error
	MarkOutboxAttempt(ctx context.Context, params store.OutboxAttemptParams) error
	SaveNotification(ctx context.Context, notification *models.Notification) (bool, error)
	CompleteMaturedSavings(ctx context.Context, now time.Time) (int, error)
	ApplySavingsInterest(ctx context.Context, params store.SavingsInterestParams) (int, error)
}

var _ OutboxStore = (store.LedgerStore)(nil)

// Publisher pushes live events to connected clients
type Publisher interface {
	Publish(userId, event string, data any) (int, error)
}

// EmailDeliverer renders and sends one queued email
type EmailDeliverer interface {
	Deliver(ctx context.Context, payload models.EmailPayload) error
}

// OutboxListenerConfig contains configuration for OutboxListener
type OutboxListenerConfig struct {
	Store      OutboxStore
	Publisher  Publisher
	Mailer     EmailDeliverer
	Dispatcher models.DispatcherConfig
	Now        func() time.Time
}

// OutboxListener polls the outbox for due side effects and delivers them.
// It also completes matured savings accounts and accrues savings interest on
// slower schedules.
type OutboxListener struct {
	store     OutboxStore
	publisher Publisher
	mailer    EmailDeliverer
	now       func() time.Time

	pollingInterval  time.Duration
	maturityInterval time.Duration
	interestInterval time.Duration
	interestRate     decimal.Decimal
	batchSize        int
	maxAttempts      int
	baseBackoff      time.Duration
	maxBackoff       time.Duration

	// Control channels
	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewOutboxListener creates a new outbox listener
func NewOutboxListener(cfg OutboxListenerConfig) *OutboxListener {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	batchSize := cfg.Dispatcher.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	maxAttempts := cfg.Dispatcher.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	return &OutboxListener{
		store:            cfg.Store,
		publisher:        cfg.Publisher,
		mailer:           cfg.Mailer,
		now:              now,
		pollingInterval:  cfg.Dispatcher.PollingInterval,
		maturityInterval: cfg.Dispatcher.MaturityInterval,
		interestInterval: cfg.Dispatcher.InterestInterval,
		interestRate:     cfg.Dispatcher.InterestRate,
		batchSize:        batchSize,
		maxAttempts:      maxAttempts,
		baseBackoff:      cfg.Dispatcher.BaseBackoff,
		maxBackoff:       cfg.Dispatcher.MaxBackoff,
		stopChan:         make(chan struct{}),
		doneChan:         make(chan struct{}),
	}
}

// backoff returns the delay before retry number attempt (1-based):
// baseBackoff doubled per previous attempt, capped at maxBackoff.
func (d *OutboxListener) backoff(attempt int) time.Duration {
	delay := d.baseBackoff
	for i := 1; i < attempt; i++ {
		if d.maxBackoff > 0 && delay >= d.maxBackoff {
			break
		}
		delay *= 2
	}
	if d.maxBackoff > 0 && delay > d.maxBackoff {
		delay = d.maxBackoff
	}
	return delay
}
