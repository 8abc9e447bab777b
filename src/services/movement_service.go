package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/DavidDevlo/FINTide/src/events"
	"github.com/DavidDevlo/FINTide/src/model"
)

// MovementService owns the ledger: plain income/expense entries plus the
// expense entries emitted by subscription payments.
type MovementService struct {
	db  *sql.DB
	bus *events.Bus
}

func NewMovementService(db *sql.DB, bus *events.Bus) *MovementService {
	return &MovementService{db: db, bus: bus}
}

// Create validates and persists a movement. An empty stripe color gets the
// per-type default.
func (s *MovementService) Create(m *model.Movement) error {
	if m.Title == "" {
		return fmt.Errorf("title is required")
	}
	if m.Type != model.MovementIncome && m.Type != model.MovementExpense {
		return fmt.Errorf("type must be income or expense")
	}
	if m.AmountCents < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	if m.StripeColorHex == "" {
		m.StripeColorHex = model.DefaultStripeFor(m.Type)
	}
	if m.Date == 0 {
		m.Date = time.Now().UnixMilli()
	}
	m.IsActive = true
	if err := model.InsertMovement(s.db, m); err != nil {
		return fmt.Errorf("creating movement: %w", err)
	}
	s.bus.Publish(events.TableMovements, events.OpInsert, m.ID)
	return nil
}

func (s *MovementService) Get(id int64) (*model.Movement, error) {
	return model.GetMovementByID(s.db, id)
}

func (s *MovementService) List() ([]model.Movement, error) {
	return model.ListMovements(s.db)
}

func (s *MovementService) Search(q string) ([]model.Movement, error) {
	return model.SearchMovements(s.db, q)
}

func (s *MovementService) ListByType(movementType string) ([]model.Movement, error) {
	return model.ListMovementsByType(s.db, movementType)
}

func (s *MovementService) ListBetween(start, end int64) ([]model.Movement, error) {
	return model.ListMovementsBetween(s.db, start, end)
}

// Update rewrites the editable fields of an existing movement.
func (s *MovementService) Update(id int64, title, movementType string, amountCents, date int64, stripeColorHex string) error {
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if movementType != model.MovementIncome && movementType != model.MovementExpense {
		return fmt.Errorf("type must be income or expense")
	}
	if stripeColorHex == "" {
		stripeColorHex = model.DefaultStripeFor(movementType)
	}
	if err := model.SetMovementCoreFields(s.db, id, title, movementType, amountCents, date, stripeColorHex); err != nil {
		return err
	}
	s.bus.Publish(events.TableMovements, events.OpUpdate, id)
	return nil
}

// SetAmount changes only the amount of an existing movement.
func (s *MovementService) SetAmount(id int64, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	if err := model.SetMovementAmount(s.db, id, amountCents); err != nil {
		return err
	}
	s.bus.Publish(events.TableMovements, events.OpUpdate, id)
	return nil
}

// Delete soft-deletes a movement. Deleting an unknown id is a no-op.
func (s *MovementService) Delete(id int64) error {
	if err := model.SoftDeleteMovement(s.db, id, time.Now().UnixMilli()); err != nil {
		return err
	}
	s.bus.Publish(events.TableMovements, events.OpDelete, id)
	return nil
}
