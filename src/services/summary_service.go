package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/DavidDevlo/FINTide/src/events"
	"github.com/DavidDevlo/FINTide/src/model"
)

const (
	summaryCacheKey = "dashboard-summary"
	dueSoonWindow   = 7 // days
)

// Summary is the dashboard rollup: ledger totals plus the subscriptions due
// within the next week.
type Summary struct {
	TotalIncomeCents  int64                `json:"totalIncomeCents"`
	TotalExpenseCents int64                `json:"totalExpenseCents"`
	BalanceCents      int64                `json:"balanceCents"`
	MovementCount     int64                `json:"movementCount"`
	DueSoon           []model.Subscription `json:"dueSoon"`
	GeneratedAt       int64                `json:"generatedAt"`
}

// SummaryService computes the dashboard summary and caches it until a
// ledger or subscription write invalidates it.
type SummaryService struct {
	db      *sql.DB
	cache   *cache.Cache
	cancels []func()
}

func NewSummaryService(db *sql.DB, bus *events.Bus, expiry time.Duration) *SummaryService {
	s := &SummaryService{
		db:    db,
		cache: cache.New(expiry, expiry*2),
	}
	for _, table := range []string{events.TableMovements, events.TableSubscriptions} {
		ch, cancel := bus.Subscribe(table)
		s.cancels = append(s.cancels, cancel)
		go func() {
			for range ch {
				s.cache.Delete(summaryCacheKey)
			}
		}()
	}
	return s
}

// Close detaches the service from the event bus.
func (s *SummaryService) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// GetSummary returns the cached summary, computing it on a miss.
func (s *SummaryService) GetSummary() (*Summary, error) {
	if cached, found := s.cache.Get(summaryCacheKey); found {
		if summary, ok := cached.(*Summary); ok {
			return summary, nil
		}
	}

	income, err := model.SumMovementsByType(s.db, model.MovementIncome)
	if err != nil {
		return nil, fmt.Errorf("summing income: %w", err)
	}
	expense, err := model.SumMovementsByType(s.db, model.MovementExpense)
	if err != nil {
		return nil, fmt.Errorf("summing expenses: %w", err)
	}
	count, err := model.CountMovements(s.db)
	if err != nil {
		return nil, fmt.Errorf("counting movements: %w", err)
	}

	now := time.Now().UnixMilli()
	end := time.UnixMilli(now).Local().AddDate(0, 0, dueSoonWindow).UnixMilli()
	dueSoon, err := model.ListSubscriptionsDueBetween(s.db, now, end)
	if err != nil {
		return nil, fmt.Errorf("listing due subscriptions: %w", err)
	}

	summary := &Summary{
		TotalIncomeCents:  income,
		TotalExpenseCents: expense,
		BalanceCents:      income - expense,
		MovementCount:     count,
		DueSoon:           dueSoon,
		GeneratedAt:       now,
	}
	s.cache.Set(summaryCacheKey, summary, cache.DefaultExpiration)
	return summary, nil
}
