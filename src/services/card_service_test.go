package services

import (
	"errors"
	"testing"

	"github.com/DavidDevlo/FINTide/src/database"
	"github.com/DavidDevlo/FINTide/src/events"
	"github.com/DavidDevlo/FINTide/src/model"
)

func newCardService(t *testing.T) *CardService {
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
	return NewCardService(db, bus)
}

func testCard(last4 string) *model.PaymentCard {
	return &model.PaymentCard{
		HolderName: "Ana Reyes",
		Brand:      "VISA",
		PanLast4:   last4,
		ExpMonth:   12,
		ExpYear:    2029,
		ColorHex:   "#1A73E8",
	}
}

func TestCreateCardValidation(t *testing.T) {
	svc := newCardService(t)

	bad := testCard("12a4")
	if err := svc.Create(bad); err == nil {
		t.Error("non-numeric panLast4 should be rejected")
	}
	bad = testCard("123")
	if err := svc.Create(bad); err == nil {
		t.Error("short panLast4 should be rejected")
	}
	bad = testCard("1234")
	bad.ExpMonth = 13
	if err := svc.Create(bad); err == nil {
		t.Error("expiry month 13 should be rejected")
	}

	good := testCard("1234")
	if err := svc.Create(good); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if good.CardType != model.CardTypeDebit {
		t.Errorf("default card type = %q, want DEBIT", good.CardType)
	}
}

func TestSetDefaultIsExclusive(t *testing.T) {
	svc := newCardService(t)

	a := testCard("1111")
	b := testCard("2222")
	for _, c := range []*model.PaymentCard{a, b} {
		if err := svc.Create(c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if err := svc.SetDefault(a.ID); err != nil {
		t.Fatalf("SetDefault(a): %v", err)
	}
	if err := svc.SetDefault(b.ID); err != nil {
		t.Fatalf("SetDefault(b): %v", err)
	}

	cards, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	defaults := 0
	for _, c := range cards {
		if c.IsDefault {
			defaults++
			if c.ID != b.ID {
				t.Errorf("default card id = %d, want %d", c.ID, b.ID)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("got %d default cards, want exactly 1", defaults)
	}

	// Unknown id fails and leaves the previous default untouched.
	if err := svc.SetDefault(999); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("SetDefault(999) err = %v, want ErrNotFound", err)
	}
	got, _ := svc.Get(b.ID)
	if !got.IsDefault {
		t.Error("failed SetDefault must not clear the existing default")
	}
}
