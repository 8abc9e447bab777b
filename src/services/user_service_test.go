package services

import (
	"errors"
	"testing"

	"github.com/DavidDevlo/FINTide/src/database"
	"github.com/DavidDevlo/FINTide/src/events"
	"github.com/DavidDevlo/FINTide/src/model"
	"github.com/DavidDevlo/FINTide/src/security"
)

func newUserService(t *testing.T) *UserService {
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
	return NewUserService(db, bus)
}

func TestFlowStepProgression(t *testing.T) {
	svc := newUserService(t)

	step, err := svc.FlowStep()
	if err != nil {
		t.Fatalf("FlowStep: %v", err)
	}
	if step != StepOnboarding {
		t.Fatalf("fresh install step = %q, want %q", step, StepOnboarding)
	}

	if _, err := svc.RegisterManual("Ana", "Reyes", "ana@example.com"); err != nil {
		t.Fatalf("RegisterManual: %v", err)
	}
	step, _ = svc.FlowStep()
	if step != StepCreatePin {
		t.Fatalf("post-registration step = %q, want %q", step, StepCreatePin)
	}

	if err := svc.SetPin("482910"); err != nil {
		t.Fatalf("SetPin: %v", err)
	}
	step, _ = svc.FlowStep()
	if step != StepUnlock {
		t.Fatalf("post-pin step = %q, want %q", step, StepUnlock)
	}
}

func TestVerifyPin(t *testing.T) {
	svc := newUserService(t)
	if _, err := svc.RegisterManual("Ana", "", ""); err != nil {
		t.Fatalf("RegisterManual: %v", err)
	}
	if err := svc.SetPin("482910"); err != nil {
		t.Fatalf("SetPin: %v", err)
	}

	user, err := svc.VerifyPin("482910")
	if err != nil {
		t.Fatalf("VerifyPin with correct pin: %v", err)
	}
	if user.GivenName != "Ana" {
		t.Errorf("GivenName = %q, want Ana", user.GivenName)
	}

	if _, err := svc.VerifyPin("000000"); !errors.Is(err, ErrPinMismatch) {
		t.Errorf("placeholder pin after SetPin: err = %v, want ErrPinMismatch", err)
	}
	if _, err := svc.VerifyPin("12345"); !errors.Is(err, security.ErrInvalidPin) {
		t.Errorf("short pin: err = %v, want ErrInvalidPin", err)
	}
}

func TestRegisterReplacesPreviousAccount(t *testing.T) {
	svc := newUserService(t)

	first, err := svc.RegisterManual("Ana", "", "")
	if err != nil {
		t.Fatalf("first RegisterManual: %v", err)
	}
	uid := "google-uid-1"
	second, err := svc.RegisterGoogle(uid, "b@example.com", "Beto", "Cruz", nil)
	if err != nil {
		t.Fatalf("RegisterGoogle: %v", err)
	}

	active, err := svc.ActiveUser()
	if err != nil {
		t.Fatalf("ActiveUser: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("active user id = %d, want %d", active.ID, second.ID)
	}
	if active.Provider != model.ProviderGoogle {
		t.Errorf("provider = %q, want %q", active.Provider, model.ProviderGoogle)
	}

	if old, err := model.GetUserByID(svc.db, first.ID); err != nil {
		t.Fatalf("GetUserByID: %v", err)
	} else if old.IsActive {
		t.Error("previous account should be deactivated")
	}
}
