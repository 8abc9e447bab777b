package services

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DavidDevlo/FINTide/src/events"
	"github.com/DavidDevlo/FINTide/src/logger"
	"github.com/DavidDevlo/FINTide/src/model"
)

// minFireLead is the shortest distance into the future a reminder may be
// scheduled at. Anything closer (or already past) is dropped instead of
// firing immediately on enqueue.
const minFireLead = 60 * time.Second

// plannedReminder is one concrete future firing for a subscription.
type plannedReminder struct {
	JobID      string
	FireAt     time.Time
	DaysBefore int
}

// planReminders computes the reminder firings for one subscription: one per
// lead-day offset, at fireHour local time on dueDate minus the offset,
// keeping only those at least minFireLead in the future of now.
func planReminders(dueAtMillis int64, leadDays []int, fireHour int, now time.Time) []plannedReminder {
	due := time.UnixMilli(dueAtMillis).Local()
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.Local)

	var plans []plannedReminder
	for _, offset := range leadDays {
		day := dueDay.AddDate(0, 0, -offset)
		fireAt := time.Date(day.Year(), day.Month(), day.Day(), fireHour, 0, 0, 0, time.Local)
		if fireAt.Sub(now) < minFireLead {
			continue
		}
		plans = append(plans, plannedReminder{
			JobID:      uuid.NewString(),
			FireAt:     fireAt,
			DaysBefore: offset,
		})
	}
	return plans
}

func reminderTag(subscriptionID int64) string {
	return fmt.Sprintf("sub-reminder-%d", subscriptionID)
}

// ReminderScheduler keeps one batch of pending timers per active
// subscription and rebuilds that batch whenever the subscription changes.
// Scheduling is cancel-then-enqueue: any change to a subscription first
// drops every pending reminder carrying its tag, then enqueues a fresh batch
// from its current due date, so stale reminders never fire.
type ReminderScheduler struct {
	db       *sql.DB
	bus      *events.Bus
	notifier Notifier
	fireHour int
	leadDays []int

	mu     sync.Mutex
	timers map[string][]*time.Timer

	cancelSub func()
	done      chan struct{}
}

func NewReminderScheduler(db *sql.DB, bus *events.Bus, notifier Notifier, fireHour int, leadDays []int) *ReminderScheduler {
	return &ReminderScheduler{
		db:       db,
		bus:      bus,
		notifier: notifier,
		fireHour: fireHour,
		leadDays: leadDays,
		timers:   make(map[string][]*time.Timer),
		done:     make(chan struct{}),
	}
}

// Start schedules reminders for every active subscription and begins
// listening for subscription changes.
func (s *ReminderScheduler) Start() error {
	subs, err := model.ListActiveSubscriptions(s.db)
	if err != nil {
		return fmt.Errorf("listing subscriptions for reminder scheduling: %w", err)
	}
	for i := range subs {
		s.Reschedule(&subs[i])
	}

	ch, cancel := s.bus.Subscribe(events.TableSubscriptions)
	s.cancelSub = cancel
	go s.watch(ch)

	logger.L.Info("Reminder scheduler started",
		"subscriptions", len(subs), "fireHour", s.fireHour, "leadDays", s.leadDays)
	return nil
}

func (s *ReminderScheduler) watch(ch <-chan events.Change) {
	for {
		select {
		case <-s.done:
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			s.onChange(change)
		}
	}
}

func (s *ReminderScheduler) onChange(change events.Change) {
	if change.Op == events.OpDelete {
		s.CancelFor(change.ID)
		return
	}
	sub, err := model.GetSubscriptionByID(s.db, change.ID)
	if err != nil {
		// Row may be gone by the time we observe the change.
		s.CancelFor(change.ID)
		return
	}
	if !sub.IsActive {
		s.CancelFor(change.ID)
		return
	}
	s.Reschedule(sub)
}

// Reschedule drops any pending reminders for the subscription and enqueues a
// fresh batch from its current due date.
func (s *ReminderScheduler) Reschedule(sub *model.Subscription) {
	tag := reminderTag(sub.ID)
	now := time.Now()
	plans := planReminders(sub.NextDueAt, s.leadDays, s.fireHour, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(tag)

	timers := make([]*time.Timer, 0, len(plans))
	for _, p := range plans {
		p := p
		subID := sub.ID
		timers = append(timers, time.AfterFunc(p.FireAt.Sub(now), func() {
			s.fire(subID, p)
		}))
	}
	if len(timers) > 0 {
		s.timers[tag] = timers
	}

	if logger.L != nil {
		logger.L.Debug("Reminders scheduled",
			"subscriptionId", sub.ID, "tag", tag, "count", len(timers))
	}
}

// fire re-reads the subscription at delivery time so a payment or edit that
// raced the timer suppresses the stale reminder.
func (s *ReminderScheduler) fire(subscriptionID int64, p plannedReminder) {
	sub, err := model.GetSubscriptionByID(s.db, subscriptionID)
	if err != nil || !sub.IsActive {
		return
	}
	r := DueReminder{
		SubscriptionID: sub.ID,
		Title:          sub.Title,
		AmountCents:    sub.AmountCents,
		DueAt:          sub.NextDueAt,
		DaysBefore:     p.DaysBefore,
	}
	if err := s.notifier.NotifyDue(r); err != nil && logger.L != nil {
		logger.L.Error("Failed to deliver due reminder",
			"subscriptionId", sub.ID, "jobId", p.JobID, "error", err)
	}
}

// CancelFor drops every pending reminder for one subscription.
func (s *ReminderScheduler) CancelFor(subscriptionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(reminderTag(subscriptionID))
}

func (s *ReminderScheduler) cancelLocked(tag string) {
	for _, t := range s.timers[tag] {
		t.Stop()
	}
	delete(s.timers, tag)
}

// Stop cancels every pending reminder and stops watching for changes.
func (s *ReminderScheduler) Stop() {
	close(s.done)
	if s.cancelSub != nil {
		s.cancelSub()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for tag := range s.timers {
		for _, t := range s.timers[tag] {
			t.Stop()
		}
		delete(s.timers, tag)
	}
}
