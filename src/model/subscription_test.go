package model

import (
	"errors"
	"testing"
	"time"
)

func TestMarkSubscriptionPaidUpdatesAllFields(t *testing.T) {
	db := testDB(t)

	amount := int64(1599)
	sub := Subscription{
		Title:       "Netflix",
		AmountCents: &amount,
		Frequency:   "MONTHLY",
		NextDueAt:   time.Now().UnixMilli(),
		IsActive:    true,
	}
	if err := InsertSubscription(db, &sub); err != nil {
		t.Fatalf("InsertSubscription: %v", err)
	}

	paidAt := time.Now().UnixMilli()
	nextDue := paidAt + 30*24*int64(time.Hour/time.Millisecond)
	if err := MarkSubscriptionPaid(db, sub.ID, 1650, paidAt, nextDue); err != nil {
		t.Fatalf("MarkSubscriptionPaid: %v", err)
	}

	got, err := GetSubscriptionByID(db, sub.ID)
	if err != nil {
		t.Fatalf("GetSubscriptionByID: %v", err)
	}
	if got.LastPaidAt == nil || *got.LastPaidAt != paidAt {
		t.Errorf("LastPaidAt = %v, want %d", got.LastPaidAt, paidAt)
	}
	if got.LastPaidAmountCents == nil || *got.LastPaidAmountCents != 1650 {
		t.Errorf("LastPaidAmountCents = %v, want 1650", got.LastPaidAmountCents)
	}
	if got.NextDueAt != nextDue {
		t.Errorf("NextDueAt = %d, want %d", got.NextDueAt, nextDue)
	}
}

func TestMarkSubscriptionPaidUnknownID(t *testing.T) {
	db := testDB(t)
	err := MarkSubscriptionPaid(db, 77, 100, time.Now().UnixMilli(), time.Now().UnixMilli())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListSubscriptionsDueBetween(t *testing.T) {
	db := testDB(t)

	now := time.Now().UnixMilli()
	day := int64(24 * time.Hour / time.Millisecond)
	amount := int64(100)

	mk := func(title string, dueAt int64, active bool) {
		s := Subscription{Title: title, AmountCents: &amount, Frequency: "MONTHLY",
			NextDueAt: dueAt, IsActive: active}
		if err := InsertSubscription(db, &s); err != nil {
			t.Fatalf("InsertSubscription(%s): %v", title, err)
		}
	}
	mk("due tomorrow", now+day, true)
	mk("due next week", now+6*day, true)
	mk("due next month", now+30*day, true)
	mk("cancelled", now+day, false)

	got, err := ListSubscriptionsDueBetween(db, now, now+7*day)
	if err != nil {
		t.Fatalf("ListSubscriptionsDueBetween: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d subscriptions, want 2", len(got))
	}
	if got[0].Title != "due tomorrow" || got[1].Title != "due next week" {
		t.Errorf("unexpected order: %q then %q", got[0].Title, got[1].Title)
	}
}

func TestVariableAmountRoundTrip(t *testing.T) {
	db := testDB(t)

	interval := 14
	sub := Subscription{
		Title:          "Water bill",
		VariableAmount: true,
		Frequency:      "CUSTOM",
		IntervalDays:   &interval,
		NextDueAt:      time.Now().UnixMilli(),
		IsActive:       true,
	}
	if err := InsertSubscription(db, &sub); err != nil {
		t.Fatalf("InsertSubscription: %v", err)
	}

	got, err := GetSubscriptionByID(db, sub.ID)
	if err != nil {
		t.Fatalf("GetSubscriptionByID: %v", err)
	}
	if got.AmountCents != nil {
		t.Errorf("AmountCents = %v, want nil", got.AmountCents)
	}
	if !got.VariableAmount {
		t.Error("VariableAmount flag lost")
	}
	if got.IntervalDays == nil || *got.IntervalDays != 14 {
		t.Errorf("IntervalDays = %v, want 14", got.IntervalDays)
	}
}
