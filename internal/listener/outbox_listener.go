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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/notify"
	"bank-ledger-go/internal/store"

	"go.uber.org/zap"
)

// errPermanent marks messages that can never be delivered, so retrying is pointless.
var errPermanent = errors.New("permanent delivery failure")

// Start begins the outbox polling process
func (d *OutboxListener) Start(ctx context.Context) error {
	if d.store == nil {
		return fmt.Errorf("outbox listener requires a store")
	}
	if d.pollingInterval <= 0 {
		return fmt.Errorf("invalid polling interval: %s", d.pollingInterval)
	}
	if !d.started.CompareAndSwap(false, true) {
		return fmt.Errorf("outbox listener already started")
	}

	zap.L().Info("Starting outbox listener")

	go d.pollLoop(ctx)

	zap.L().Info("Outbox listener started successfully",
		zap.Duration("polling_interval", d.pollingInterval),
		zap.Duration("maturity_interval", d.maturityInterval),
		zap.Duration("interest_interval", d.interestInterval),
		zap.String("interest_rate", d.interestRate.String()),
		zap.Int("batch_size", d.batchSize),
		zap.Int("max_attempts", d.maxAttempts))

	return nil
}

// Stop gracefully stops the outbox listener. It is safe to call more than
// once, and before Start.
func (d *OutboxListener) Stop() {
	d.stopOnce.Do(func() {
		zap.L().Info("Stopping outbox listener")
		close(d.stopChan)
	})
	if d.started.Load() {
		<-d.doneChan
	}
	zap.L().Info("Outbox listener stopped")
}

// pollLoop runs the main polling loop
func (d *OutboxListener) pollLoop(ctx context.Context) {
	defer close(d.doneChan)

	ticker := time.NewTicker(d.pollingInterval)
	defer ticker.Stop()

	// A nil channel never fires, which disables the sweep.
	var maturity <-chan time.Time
	if d.maturityInterval > 0 {
		maturityTicker := time.NewTicker(d.maturityInterval)
		defer maturityTicker.Stop()
		maturity = maturityTicker.C
		d.sweepMaturedSavings(ctx)
	}

	var interest <-chan time.Time
	if d.interestInterval > 0 && d.interestRate.IsPositive() {
		interestTicker := time.NewTicker(d.interestInterval)
		defer interestTicker.Stop()
		interest = interestTicker.C
		d.applySavingsInterest(ctx)
	}

	d.pollOutbox(ctx)

	for {
		select {
		case <-ticker.C:
			d.pollOutbox(ctx)
		case <-maturity:
			d.sweepMaturedSavings(ctx)
		case <-interest:
			d.applySavingsInterest(ctx)
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// PollResult summarizes one pass over the due messages
type PollResult struct {
	Delivered int
	Retried   int
	Failed    int
}

// pollOutbox delivers one batch of due messages
func (d *OutboxListener) pollOutbox(ctx context.Context) PollResult {
	var result PollResult

	messages, err := d.store.FetchDueOutbox(ctx, d.now(), d.batchSize)
	if err != nil {
		zap.L().Error("Failed to fetch due outbox messages", zap.Error(err))
		return result
	}
	if len(messages) == 0 {
		return result
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			break
		}

		err := d.dispatch(ctx, msg)
		if err == nil {
			if err := d.store.MarkOutboxDelivered(ctx, msg.Id); err != nil {
				zap.L().Error("Failed to mark outbox message delivered",
					zap.String("outbox_id", msg.Id),
					zap.Error(err))
				continue
			}
			outboxDispatched.WithLabelValues(string(msg.Kind), "delivered").Inc()
			result.Delivered++
			continue
		}

		if d.recordFailure(ctx, msg, err) {
			result.Failed++
		} else {
			result.Retried++
		}
	}

	zap.L().Debug("Outbox poll complete",
		zap.Int("fetched", len(messages)),
		zap.Int("delivered", result.Delivered),
		zap.Int("retried", result.Retried),
		zap.Int("failed", result.Failed))

	return result
}

// recordFailure schedules a retry or gives up. It reports whether the
// message was marked failed.
func (d *OutboxListener) recordFailure(ctx context.Context, msg models.OutboxMessage, cause error) bool {
	attempt := msg.Attempts + 1
	params := store.OutboxAttemptParams{
		Id:        msg.Id,
		LastError: cause.Error(),
	}

	if errors.Is(cause, errPermanent) || attempt >= d.maxAttempts {
		params.Failed = true
	} else {
		params.NextAttemptAt = d.now().Add(d.backoff(attempt))
	}

	if err := d.store.MarkOutboxAttempt(ctx, params); err != nil {
		zap.L().Error("Failed to record outbox attempt",
			zap.String("outbox_id", msg.Id),
			zap.Error(err))
	}

	if params.Failed {
		outboxDispatched.WithLabelValues(string(msg.Kind), "failed").Inc()
		zap.L().Error("Giving up on outbox message",
			zap.String("outbox_id", msg.Id),
			zap.String("kind", string(msg.Kind)),
			zap.Int("attempts", attempt),
			zap.Error(cause))
		return true
	}

	outboxDispatched.WithLabelValues(string(msg.Kind), "retried").Inc()
	zap.L().Warn("Outbox delivery failed, will retry",
		zap.String("outbox_id", msg.Id),
		zap.String("kind", string(msg.Kind)),
		zap.Int("attempts", attempt),
		zap.Time("next_attempt_at", params.NextAttemptAt),
		zap.Error(cause))
	return false
}

func (d *OutboxListener) dispatch(ctx context.Context, msg models.OutboxMessage) error {
	switch msg.Kind {
	case models.OutboxNotification:
		return d.deliverNotification(ctx, msg)
	case models.OutboxEmail:
		return d.deliverEmail(ctx, msg)
	default:
		return fmt.Errorf("%w: unknown outbox kind %q", errPermanent, msg.Kind)
	}
}

// deliverNotification persists the notification under the outbox id, so a
// redelivered message never creates a second row, then pushes it live.
func (d *OutboxListener) deliverNotification(ctx context.Context, msg models.OutboxMessage) error {
	var payload models.NotificationPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("%w: failed to decode notification: %v", errPermanent, err)
	}
	if payload.UserId == "" {
		return fmt.Errorf("%w: notification has no user", errPermanent)
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = d.now()
	}

	notification := &models.Notification{
		Id:        msg.Id,
		UserId:    payload.UserId,
		Type:      payload.Type,
		Subtype:   payload.Subtype,
		Title:     payload.Title,
		Message:   payload.Message,
		Data:      payload.Data,
		CreatedAt: createdAt,
	}

	inserted, err := d.store.SaveNotification(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	if !inserted || d.publisher == nil {
		return nil
	}

	// Live push is best effort; the stored notification is the record.
	if _, err := d.publisher.Publish(payload.UserId, notify.EventNotification, notification); err != nil {
		zap.L().Warn("Failed to publish notification",
			zap.String("user_id", payload.UserId),
			zap.String("notification_id", notification.Id),
			zap.Error(err))
	}
	return nil
}

func (d *OutboxListener) deliverEmail(ctx context.Context, msg models.OutboxMessage) error {
	var payload models.EmailPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("%w: failed to decode email: %v", errPermanent, err)
	}
	if d.mailer == nil {
		return fmt.Errorf("no mailer configured")
	}
	if err := d.mailer.Deliver(ctx, payload); err != nil {
		return fmt.Errorf("failed to deliver email to %s: %w", payload.To, err)
	}
	return nil
}

// sweepMaturedSavings completes savings accounts whose end date or target was reached
func (d *OutboxListener) sweepMaturedSavings(ctx context.Context) int {
	n, err := d.store.CompleteMaturedSavings(ctx, d.now())
	if err != nil {
		zap.L().Error("Failed to complete matured savings", zap.Error(err))
		return 0
	}
	if n > 0 {
		savingsMatured.Add(float64(n))
		zap.L().Info("Completed matured savings", zap.Int("count", n))
	}
	return n
}

// applySavingsInterest accrues the day's interest. It runs more often than
// daily; the store credits each account at most once per UTC day.
func (d *OutboxListener) applySavingsInterest(ctx context.Context) int {
	n, err := d.store.ApplySavingsInterest(ctx, store.SavingsInterestParams{
		Now:        d.now(),
		AnnualRate: d.interestRate,
	})
	if err != nil {
		zap.L().Error("Savings interest job failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		savingsInterestApplied.Add(float64(n))
		zap.L().Info("Applied savings interest", zap.Int("count", n))
	}
	return n
}
