package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/DavidDevlo/FINTide/src/events"
	"github.com/DavidDevlo/FINTide/src/model"
)

// GoalService manages savings goals: a target amount and the progress
// accumulated towards it.
type GoalService struct {
	db  *sql.DB
	bus *events.Bus
}

func NewGoalService(db *sql.DB, bus *events.Bus) *GoalService {
	return &GoalService{db: db, bus: bus}
}

func (s *GoalService) Create(g *model.Goal) error {
	if g.Title == "" {
		return fmt.Errorf("title is required")
	}
	if g.TargetAmountCents < 0 || g.CurrentAmountCents < 0 {
		return fmt.Errorf("amounts must not be negative")
	}
	g.IsActive = true
	if err := model.InsertGoal(s.db, g); err != nil {
		return fmt.Errorf("creating goal: %w", err)
	}
	s.bus.Publish(events.TableGoals, events.OpInsert, g.ID)
	return nil
}

func (s *GoalService) Get(id int64) (*model.Goal, error) {
	return model.GetGoalByID(s.db, id)
}

func (s *GoalService) List() ([]model.Goal, error) {
	return model.ListGoals(s.db)
}

func (s *GoalService) Search(q string) ([]model.Goal, error) {
	return model.SearchGoals(s.db, q)
}

// Rename changes the goal's title and color.
func (s *GoalService) Rename(id int64, title, colorHex string) error {
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if err := model.SetGoalTitleAndColor(s.db, id, title, colorHex); err != nil {
		return err
	}
	s.bus.Publish(events.TableGoals, events.OpUpdate, id)
	return nil
}

// SetAmount replaces the accumulated progress.
func (s *GoalService) SetAmount(id int64, amountCents int64) error {
	if amountCents < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	if err := model.SetGoalAmount(s.db, id, amountCents); err != nil {
		return err
	}
	s.bus.Publish(events.TableGoals, events.OpUpdate, id)
	return nil
}

// AddAmount applies a delta to the saved total in one statement, so two
// concurrent contributions both land.
func (s *GoalService) AddAmount(id int64, deltaCents int64) error {
	if err := model.AddToGoalAmount(s.db, id, deltaCents); err != nil {
		return err
	}
	s.bus.Publish(events.TableGoals, events.OpUpdate, id)
	return nil
}

// Delete soft-deletes a goal. Deleting an unknown id is a no-op.
func (s *GoalService) Delete(id int64) error {
	if err := model.SoftDeleteGoal(s.db, id, time.Now().UnixMilli()); err != nil {
		return err
	}
	s.bus.Publish(events.TableGoals, events.OpDelete, id)
	return nil
}
