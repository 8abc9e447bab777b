package services

import (
	"errors"
	"testing"
	"time"

	"github.com/DavidDevlo/FINTide/src/database"
	"github.com/DavidDevlo/FINTide/src/events"
	"github.com/DavidDevlo/FINTide/src/model"
	"github.com/DavidDevlo/FINTide/src/recurrence"
)

func newTestService(t *testing.T) (*SubscriptionService, *events.Bus) {
	t.Helper()
	db, err := database.InitDB(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.EnsureSchema(db); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	bus := events.NewBus()
	t.Cleanup(bus.Close)
	return NewSubscriptionService(db, bus), bus
}

func fixedSub(amountCents int64, nextDueAt int64) *model.Subscription {
	return &model.Subscription{
		Title:       "Netflix",
		AmountCents: &amountCents,
		Frequency:   recurrence.FreqMonthly,
		NextDueAt:   nextDueAt,
		ColorHex:    "#E50914",
	}
}

func TestCreateNormalizesDueDate(t *testing.T) {
	svc, _ := newTestService(t)

	due := time.Date(2026, 3, 10, 17, 42, 9, 0, time.Local).UnixMilli()
	sub := fixedSub(1599, due)
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sub.ID == 0 {
		t.Fatal("Create did not assign an id")
	}

	got, err := svc.Get(sub.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local).UnixMilli()
	if got.NextDueAt != want {
		t.Errorf("NextDueAt = %d, want start of day %d", got.NextDueAt, want)
	}
	if !got.IsActive {
		t.Error("new subscription should be active")
	}
}

func TestCreateFixedWithoutAmountFails(t *testing.T) {
	svc, _ := newTestService(t)

	sub := &model.Subscription{
		Title:     "Rent",
		Frequency: recurrence.FreqMonthly,
		NextDueAt: time.Now().UnixMilli(),
	}
	if err := svc.Create(sub); err == nil {
		t.Fatal("expected error for fixed-amount subscription without amount")
	}
}

func TestMarkPaidAdvancesDueDateAndEmitsMovement(t *testing.T) {
	svc, _ := newTestService(t)

	due := time.Date(2026, 1, 15, 0, 0, 0, 0, time.Local).UnixMilli()
	sub := fixedSub(1599, due)
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create: %v", err)
	}

	paidAt := time.Date(2026, 1, 20, 14, 30, 0, 0, time.Local).UnixMilli()
	updated, err := svc.MarkPaid(sub.ID, nil, paidAt)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}

	wantNext := time.Date(2026, 2, 20, 0, 0, 0, 0, time.Local).UnixMilli()
	if updated.NextDueAt != wantNext {
		t.Errorf("NextDueAt = %d, want %d", updated.NextDueAt, wantNext)
	}
	if updated.LastPaidAt == nil || *updated.LastPaidAt != paidAt {
		t.Errorf("LastPaidAt = %v, want %d", updated.LastPaidAt, paidAt)
	}
	if updated.LastPaidAmountCents == nil || *updated.LastPaidAmountCents != 1599 {
		t.Errorf("LastPaidAmountCents = %v, want 1599", updated.LastPaidAmountCents)
	}

	movs, err := model.ListMovements(svc.db)
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	if len(movs) != 1 {
		t.Fatalf("got %d movements, want 1", len(movs))
	}
	mov := movs[0]
	if mov.Type != model.MovementExpense {
		t.Errorf("movement type = %q, want expense", mov.Type)
	}
	if mov.AmountCents != 1599 {
		t.Errorf("movement amount = %d, want 1599", mov.AmountCents)
	}
	if mov.SubscriptionID == nil || *mov.SubscriptionID != sub.ID {
		t.Errorf("movement subscriptionId = %v, want %d", mov.SubscriptionID, sub.ID)
	}
	if mov.StripeColorHex != sub.ColorHex {
		t.Errorf("movement color = %q, want subscription color %q", mov.StripeColorHex, sub.ColorHex)
	}
}

func TestMarkPaidFallsBackToTypeColor(t *testing.T) {
	svc, _ := newTestService(t)

	amount := int64(3500)
	sub := &model.Subscription{
		Title:       "Gym",
		AmountCents: &amount,
		Frequency:   recurrence.FreqMonthly,
		NextDueAt:   time.Now().UnixMilli(),
	}
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.MarkPaid(sub.ID, nil, time.Now().UnixMilli()); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	movs, _ := model.ListMovements(svc.db)
	if len(movs) != 1 {
		t.Fatalf("got %d movements, want 1", len(movs))
	}
	if want := model.DefaultStripeFor(model.MovementExpense); movs[0].StripeColorHex != want {
		t.Errorf("movement color = %q, want default %q", movs[0].StripeColorHex, want)
	}
}

func TestMarkPaidTwiceSamePaidAtIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)

	due := time.Date(2026, 1, 15, 0, 0, 0, 0, time.Local).UnixMilli()
	sub := fixedSub(5000, due)
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create: %v", err)
	}

	paidAt := time.Date(2026, 1, 20, 10, 0, 0, 0, time.Local).UnixMilli()
	first, err := svc.MarkPaid(sub.ID, nil, paidAt)
	if err != nil {
		t.Fatalf("first MarkPaid: %v", err)
	}
	second, err := svc.MarkPaid(sub.ID, nil, paidAt)
	if err != nil {
		t.Fatalf("second MarkPaid: %v", err)
	}

	if *second.LastPaidAt != *first.LastPaidAt || *second.LastPaidAmountCents != *first.LastPaidAmountCents {
		t.Error("repeating a payment with the same timestamp changed the last-paid fields")
	}
	// The advanced due date is already past paidAt, so it stays put.
	if second.NextDueAt != first.NextDueAt {
		t.Errorf("NextDueAt moved from %d to %d on repeat payment", first.NextDueAt, second.NextDueAt)
	}
}

func TestMarkPaidSuppliedAmountOverridesStored(t *testing.T) {
	svc, _ := newTestService(t)

	sub := fixedSub(1599, time.Now().UnixMilli())
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create: %v", err)
	}

	supplied := int64(2099)
	updated, err := svc.MarkPaid(sub.ID, &supplied, time.Now().UnixMilli())
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if updated.LastPaidAmountCents == nil || *updated.LastPaidAmountCents != 2099 {
		t.Errorf("LastPaidAmountCents = %v, want 2099", updated.LastPaidAmountCents)
	}
}

func TestMarkPaidVariableWithoutAmount(t *testing.T) {
	svc, _ := newTestService(t)

	sub := &model.Subscription{
		Title:          "Electricity",
		VariableAmount: true,
		Frequency:      recurrence.FreqMonthly,
		NextDueAt:      time.Now().UnixMilli(),
	}
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create: %v", err)
	}

	before, _ := svc.Get(sub.ID)
	_, err := svc.MarkPaid(sub.ID, nil, time.Now().UnixMilli())
	if !errors.Is(err, ErrAmountRequired) {
		t.Fatalf("err = %v, want ErrAmountRequired", err)
	}
	after, _ := svc.Get(sub.ID)
	if after.NextDueAt != before.NextDueAt || after.LastPaidAt != nil {
		t.Error("failed payment must not modify the subscription")
	}
	movs, _ := model.ListMovements(svc.db)
	if len(movs) != 0 {
		t.Errorf("failed payment emitted %d movements", len(movs))
	}
}

func TestMarkPaidRejectsNegativeAmount(t *testing.T) {
	svc, _ := newTestService(t)

	sub := fixedSub(1599, time.Now().UnixMilli())
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create: %v", err)
	}

	before, _ := svc.Get(sub.ID)
	supplied := int64(-500)
	_, err := svc.MarkPaid(sub.ID, &supplied, time.Now().UnixMilli())
	if !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("err = %v, want ErrNegativeAmount", err)
	}
	after, _ := svc.Get(sub.ID)
	if after.NextDueAt != before.NextDueAt || after.LastPaidAt != nil || after.LastPaidAmountCents != nil {
		t.Error("rejected payment must not modify the subscription")
	}
	movs, _ := model.ListMovements(svc.db)
	if len(movs) != 0 {
		t.Errorf("rejected payment emitted %d movements", len(movs))
	}
}

func TestMarkPaidUnknownID(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.MarkPaid(999, nil, time.Now().UnixMilli()); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCancelIsPermissive(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.Cancel(42); err != nil {
		t.Fatalf("cancelling an unknown id should be a no-op, got %v", err)
	}

	sub := fixedSub(500, time.Now().UnixMilli())
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Cancel(sub.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	got, _ := svc.Get(sub.ID)
	if got.IsActive {
		t.Error("subscription still active after Cancel")
	}
	if err := svc.Cancel(sub.ID); err != nil {
		t.Fatalf("cancelling twice should be a no-op, got %v", err)
	}
}

func TestMarkPaidPublishesChange(t *testing.T) {
	svc, bus := newTestService(t)

	sub := fixedSub(500, time.Now().UnixMilli())
	if err := svc.Create(sub); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ch, cancel := bus.Subscribe(events.TableSubscriptions)
	defer cancel()

	if _, err := svc.MarkPaid(sub.ID, nil, time.Now().UnixMilli()); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}

	select {
	case change := <-ch:
		if change.ID != sub.ID || change.Op != events.OpUpdate {
			t.Errorf("unexpected change %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("no change published for payment")
	}
}
