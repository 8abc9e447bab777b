package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DavidDevlo/FINTide/src/events"
	"github.com/DavidDevlo/FINTide/src/model"
	"github.com/DavidDevlo/FINTide/src/security"
)

// Auth flow steps. The client asks which screen to show next; the answer is
// derived from persisted account state, never stored.
const (
	StepOnboarding = "ONBOARDING" // no account yet: show welcome/sign-in
	StepCreatePin  = "CREATE_PIN" // account exists but still has the placeholder PIN
	StepUnlock     = "UNLOCK"     // account with a real PIN: ask for it
)

// placeholderPin is assigned at registration so the pin columns are never
// empty; FlowStep treats an account still carrying it as not yet secured.
const placeholderPin = "000000"

// ErrPinMismatch is returned by VerifyPin when the digits do not match.
var ErrPinMismatch = errors.New("incorrect pin")

// UserService manages the single local account: registration (manual or
// Google), the PIN that gates the app, and the derived auth flow step.
type UserService struct {
	db  *sql.DB
	bus *events.Bus
}

func NewUserService(db *sql.DB, bus *events.Bus) *UserService {
	return &UserService{db: db, bus: bus}
}

// ActiveUser returns the current account, or model.ErrNotFound before
// onboarding.
func (s *UserService) ActiveUser() (*model.User, error) {
	return model.GetActiveUser(s.db)
}

// FlowStep reports which gate screen the client should show.
func (s *UserService) FlowStep() (string, error) {
	user, err := model.GetActiveUser(s.db)
	if errors.Is(err, model.ErrNotFound) {
		return StepOnboarding, nil
	}
	if err != nil {
		return "", err
	}
	if !user.IsOnboarded || security.CheckPin(placeholderPin, user.PinSalt, user.PinHash) {
		return StepCreatePin, nil
	}
	return StepUnlock, nil
}

// RegisterManual creates a local account from a typed name. Any previous
// account is deactivated first; the new account starts with the placeholder
// PIN and must set a real one before FlowStep advances past CREATE_PIN.
func (s *UserService) RegisterManual(givenName, familyName, email string) (*model.User, error) {
	if givenName == "" {
		return nil, fmt.Errorf("given name is required")
	}
	return s.register(&model.User{
		GivenName:  givenName,
		FamilyName: familyName,
		Email:      email,
		Provider:   model.ProviderManual,
	})
}

// RegisterGoogle creates (or replaces) the account from a Google profile.
func (s *UserService) RegisterGoogle(providerUID, email, givenName, familyName string, avatarURL *string) (*model.User, error) {
	if providerUID == "" {
		return nil, fmt.Errorf("google account id is required")
	}
	return s.register(&model.User{
		GivenName:   givenName,
		FamilyName:  familyName,
		Email:       email,
		AvatarURL:   avatarURL,
		Provider:    model.ProviderGoogle,
		ProviderUID: &providerUID,
	})
}

func (s *UserService) register(u *model.User) (*model.User, error) {
	salt, err := security.NewPinSalt()
	if err != nil {
		return nil, fmt.Errorf("generating pin salt: %w", err)
	}
	hash, err := security.HashPin(placeholderPin, salt)
	if err != nil {
		return nil, fmt.Errorf("hashing placeholder pin: %w", err)
	}
	u.PinHash = hash
	u.PinSalt = salt
	u.IsActive = true
	u.CreatedAt = time.Now().UnixMilli()

	if err := model.DeactivateAllUsers(s.db); err != nil {
		return nil, fmt.Errorf("deactivating previous accounts: %w", err)
	}
	if err := model.InsertUser(s.db, u); err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	s.bus.Publish(events.TableUsers, events.OpInsert, u.ID)
	return u, nil
}

// SetPin validates and stores a new PIN for the active account, rotating the
// salt, and marks the account onboarded.
func (s *UserService) SetPin(pin string) error {
	if err := security.ValidatePinFormat(pin); err != nil {
		return err
	}
	user, err := model.GetActiveUser(s.db)
	if err != nil {
		return err
	}
	salt, err := security.NewPinSalt()
	if err != nil {
		return fmt.Errorf("generating pin salt: %w", err)
	}
	hash, err := security.HashPin(pin, salt)
	if err != nil {
		return fmt.Errorf("hashing pin: %w", err)
	}
	if err := model.SetUserPin(s.db, user.ID, hash, salt); err != nil {
		return err
	}
	if err := model.SetUserOnboarded(s.db, user.ID); err != nil {
		return err
	}
	s.bus.Publish(events.TableUsers, events.OpUpdate, user.ID)
	return nil
}

// VerifyPin checks the supplied digits against the active account and
// returns the account on success. A malformed PIN fails the format check
// before any comparison happens.
func (s *UserService) VerifyPin(pin string) (*model.User, error) {
	if err := security.ValidatePinFormat(pin); err != nil {
		return nil, err
	}
	user, err := model.GetActiveUser(s.db)
	if err != nil {
		return nil, err
	}
	if !security.CheckPin(pin, user.PinSalt, user.PinHash) {
		return nil, ErrPinMismatch
	}
	return user, nil
}
