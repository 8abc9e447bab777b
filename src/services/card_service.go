package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/DavidDevlo/FINTide/src/events"
	"github.com/DavidDevlo/FINTide/src/model"
	"github.com/DavidDevlo/FINTide/src/security/validation"
)

// CardService manages payment card metadata. Full card numbers are never
// accepted or stored; callers supply only the last four digits.
type CardService struct {
	db  *sql.DB
	bus *events.Bus
}

func NewCardService(db *sql.DB, bus *events.Bus) *CardService {
	return &CardService{db: db, bus: bus}
}

func (s *CardService) Create(c *model.PaymentCard) error {
	if c.HolderName == "" {
		return fmt.Errorf("holder name is required")
	}
	if !validation.IsPanLast4(c.PanLast4) {
		return fmt.Errorf("panLast4 must be exactly 4 digits")
	}
	if !validation.IsExpiry(c.ExpMonth, c.ExpYear) {
		return fmt.Errorf("invalid expiry")
	}
	if c.ColorHex != "" && !validation.IsHexColor(c.ColorHex) {
		return fmt.Errorf("colorHex must be #RRGGBB")
	}
	if c.CardType == "" {
		c.CardType = model.CardTypeDebit
	}
	c.IsActive = true
	if err := model.InsertCard(s.db, c); err != nil {
		return fmt.Errorf("creating card: %w", err)
	}
	s.bus.Publish(events.TableCards, events.OpInsert, c.ID)
	return nil
}

func (s *CardService) Get(id int64) (*model.PaymentCard, error) {
	return model.GetCardByID(s.db, id)
}

// List returns active cards, the default one first.
func (s *CardService) List() ([]model.PaymentCard, error) {
	return model.ListActiveCards(s.db)
}

func (s *CardService) Search(q string) ([]model.PaymentCard, error) {
	return model.SearchCards(s.db, q)
}

// SetMeta updates the nickname and color of a card.
func (s *CardService) SetMeta(id int64, nickname *string, colorHex string) error {
	if colorHex != "" && !validation.IsHexColor(colorHex) {
		return fmt.Errorf("colorHex must be #RRGGBB")
	}
	if err := model.SetCardMeta(s.db, id, nickname, colorHex); err != nil {
		return err
	}
	s.bus.Publish(events.TableCards, events.OpUpdate, id)
	return nil
}

// SetDefault makes the card the single default. An unknown id fails with
// model.ErrNotFound and leaves the previous default in place.
func (s *CardService) SetDefault(id int64) error {
	if err := model.SetDefaultCardExclusive(s.db, id); err != nil {
		return err
	}
	s.bus.Publish(events.TableCards, events.OpUpdate, id)
	return nil
}

// Delete soft-deletes a card. Deleting an unknown id is a no-op.
func (s *CardService) Delete(id int64) error {
	if err := model.SoftDeleteCard(s.db, id, time.Now().UnixMilli()); err != nil {
		return err
	}
	s.bus.Publish(events.TableCards, events.OpDelete, id)
	return nil
}
