package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DavidDevlo/FINTide/src/events"
	"github.com/DavidDevlo/FINTide/src/logger"
	"github.com/DavidDevlo/FINTide/src/model"
	"github.com/DavidDevlo/FINTide/src/recurrence"
)

// ErrAmountRequired is returned by MarkPaid when a variable-amount
// subscription has no stored amount and the caller supplied none.
var ErrAmountRequired = errors.New("payment amount required")

// ErrNegativeAmount is returned by MarkPaid when the resolved payment
// amount is below zero, whether supplied by the caller or stored.
var ErrNegativeAmount = errors.New("payment amount must not be negative")

// SubscriptionService owns the lifecycle of recurring obligations: creation,
// edits, cancellation and payment. Paying a subscription advances its due
// date past the payment instant and emits an expense movement into the
// ledger so the payment shows up in history and totals.
type SubscriptionService struct {
	db  *sql.DB
	bus *events.Bus
}

func NewSubscriptionService(db *sql.DB, bus *events.Bus) *SubscriptionService {
	return &SubscriptionService{db: db, bus: bus}
}

func (s *SubscriptionService) rule(sub *model.Subscription) recurrence.Rule {
	return recurrence.Rule{
		NextDueAt:    sub.NextDueAt,
		Frequency:    sub.Frequency,
		IntervalDays: sub.IntervalDays,
	}
}

// Create validates and persists a new subscription. The due date is
// normalized to the start of its local day before persisting.
func (s *SubscriptionService) Create(sub *model.Subscription) error {
	if sub.Title == "" {
		return fmt.Errorf("title is required")
	}
	if sub.AmountCents == nil && !sub.VariableAmount {
		return fmt.Errorf("amount is required for fixed-amount subscriptions")
	}
	sub.NextDueAt = recurrence.StartOfDay(sub.NextDueAt)
	sub.IsActive = true
	if err := model.InsertSubscription(s.db, sub); err != nil {
		return fmt.Errorf("creating subscription: %w", err)
	}
	s.bus.Publish(events.TableSubscriptions, events.OpInsert, sub.ID)
	return nil
}

// Get returns one subscription, or model.ErrNotFound.
func (s *SubscriptionService) Get(id int64) (*model.Subscription, error) {
	return model.GetSubscriptionByID(s.db, id)
}

// List returns every subscription, active and cancelled, newest first.
func (s *SubscriptionService) List() ([]model.Subscription, error) {
	return model.ListSubscriptions(s.db)
}

// Search returns subscriptions whose title matches the query.
func (s *SubscriptionService) Search(q string) ([]model.Subscription, error) {
	return model.SearchSubscriptions(s.db, q)
}

// Update rewrites the editable fields of an existing subscription.
func (s *SubscriptionService) Update(id int64, title string, amountCents *int64, variableAmount bool,
	frequency string, intervalDays *int, nextDueAt int64, autoPay bool, colorHex string) error {
	if title == "" {
		return fmt.Errorf("title is required")
	}
	nextDueAt = recurrence.StartOfDay(nextDueAt)
	err := model.SetSubscriptionCoreFields(s.db, id, title, amountCents, variableAmount,
		frequency, intervalDays, nextDueAt, autoPay, colorHex)
	if err != nil {
		return err
	}
	s.bus.Publish(events.TableSubscriptions, events.OpUpdate, id)
	return nil
}

// MarkPaid records a payment against a subscription at paidAt.
//
// The effective amount is the supplied one when present, otherwise the
// subscription's stored amount; if neither exists the call fails with
// ErrAmountRequired and nothing changes. On success the subscription's
// last-paid fields and next due date are updated in a single statement, and
// an expense movement referencing the subscription is emitted into the
// ledger. Ledger emission is best-effort: a failure there is logged but does
// not undo the payment.
func (s *SubscriptionService) MarkPaid(id int64, amountCents *int64, paidAt int64) (*model.Subscription, error) {
	sub, err := model.GetSubscriptionByID(s.db, id)
	if err != nil {
		return nil, err
	}

	var effective int64
	switch {
	case amountCents != nil:
		effective = *amountCents
	case sub.AmountCents != nil:
		effective = *sub.AmountCents
	default:
		return nil, ErrAmountRequired
	}
	if effective < 0 {
		return nil, ErrNegativeAmount
	}

	next := recurrence.NextDueAfterDay(s.rule(sub), paidAt)
	if err := model.MarkSubscriptionPaid(s.db, id, effective, paidAt, next); err != nil {
		return nil, err
	}
	s.bus.Publish(events.TableSubscriptions, events.OpUpdate, id)

	stripe := sub.ColorHex
	if stripe == "" {
		stripe = model.DefaultStripeFor(model.MovementExpense)
	}
	mov := &model.Movement{
		Title:          sub.Title,
		Type:           model.MovementExpense,
		AmountCents:    effective,
		Date:           paidAt,
		StripeColorHex: stripe,
		SubscriptionID: &id,
		IsActive:       true,
	}
	if err := model.InsertMovement(s.db, mov); err != nil {
		if logger.L != nil {
			logger.L.Warn("Payment recorded but ledger movement failed",
				"subscriptionId", id, "error", err)
		}
	} else {
		s.bus.Publish(events.TableMovements, events.OpInsert, mov.ID)
	}

	return model.GetSubscriptionByID(s.db, id)
}

// Cancel deactivates a subscription. Cancelling an unknown or already
// cancelled id is a no-op.
func (s *SubscriptionService) Cancel(id int64) error {
	if err := model.SetSubscriptionActive(s.db, id, false, time.Now().UnixMilli()); err != nil {
		return err
	}
	s.bus.Publish(events.TableSubscriptions, events.OpUpdate, id)
	return nil
}

// Reactivate turns a cancelled subscription back on.
func (s *SubscriptionService) Reactivate(id int64) error {
	if err := model.SetSubscriptionActive(s.db, id, true, time.Now().UnixMilli()); err != nil {
		return err
	}
	s.bus.Publish(events.TableSubscriptions, events.OpUpdate, id)
	return nil
}

// Delete removes a subscription outright. Deleting an unknown id is a no-op.
func (s *SubscriptionService) Delete(id int64) error {
	if err := model.DeleteSubscription(s.db, id); err != nil {
		return err
	}
	s.bus.Publish(events.TableSubscriptions, events.OpDelete, id)
	return nil
}

// DueSoon returns the active subscriptions whose next due date falls within
// the next windowDays days, soonest first.
func (s *SubscriptionService) DueSoon(windowDays int) ([]model.Subscription, error) {
	now := time.Now().UnixMilli()
	end := time.UnixMilli(now).Local().AddDate(0, 0, windowDays).UnixMilli()
	return model.ListSubscriptionsDueBetween(s.db, now, end)
}
