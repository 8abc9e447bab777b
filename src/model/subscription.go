package model

import (
	"database/sql"
	"time"
)

// Subscription is a recurring obligation: a subscription or bill with a
// cadence and the timestamp of its next unpaid occurrence.
// AmountCents is nil for variable-amount obligations; a non-nil amount may
// coexist with VariableAmount=true as a suggested default.
type Subscription struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	AmountCents    *int64 `json:"amountCents"`
	VariableAmount bool   `json:"variableAmount"`

	Frequency    string `json:"frequency"` // MONTHLY | WEEKLY | YEARLY | CUSTOM
	IntervalDays *int   `json:"intervalDays"`

	NextDueAt int64  `json:"nextDueAt"` // epoch ms, start of local day once persisted
	AutoPay   bool   `json:"autoPay"`
	ColorHex  string `json:"colorHex"`

	IsActive bool `json:"isActive"`

	LastPaidAt          *int64 `json:"lastPaidAt"`
	LastPaidAmountCents *int64 `json:"lastPaidAmountCents"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

const subscriptionColumns = `id, title, amount_cents, variable_amount, frequency, interval_days,
	next_due_at, auto_pay, color_hex, is_active, last_paid_at, last_paid_amount_cents,
	created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*Subscription, error) {
	var s Subscription
	err := row.Scan(
		&s.ID, &s.Title, &s.AmountCents, &s.VariableAmount, &s.Frequency, &s.IntervalDays,
		&s.NextDueAt, &s.AutoPay, &s.ColorHex, &s.IsActive, &s.LastPaidAt, &s.LastPaidAmountCents,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertSubscription stores s and fills in its ID and timestamps.
func InsertSubscription(db *sql.DB, s *Subscription) error {
	now := time.Now().UnixMilli()
	s.CreatedAt = now
	s.UpdatedAt = now
	res, err := db.Exec(`
	INSERT INTO subscriptions (title, amount_cents, variable_amount, frequency, interval_days,
		next_due_at, auto_pay, color_hex, is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Title, s.AmountCents, s.VariableAmount, s.Frequency, s.IntervalDays,
		s.NextDueAt, s.AutoPay, s.ColorHex, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// GetSubscriptionByID returns ErrNotFound when no row matches.
func GetSubscriptionByID(db *sql.DB, id int64) (*Subscription, error) {
	row := db.QueryRow(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ? LIMIT 1`, id)
	s, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return s, err
}

// ListSubscriptions returns every subscription ordered by next due date,
// soonest first. Inactive rows are included; callers filter.
func ListSubscriptions(db *sql.DB) ([]Subscription, error) {
	return querySubscriptions(db, `SELECT `+subscriptionColumns+` FROM subscriptions ORDER BY next_due_at ASC`)
}

// SearchSubscriptions matches titles by substring.
func SearchSubscriptions(db *sql.DB, q string) ([]Subscription, error) {
	return querySubscriptions(db,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE title LIKE '%' || ? || '%' ORDER BY next_due_at ASC`, q)
}

// ListSubscriptionsDueBetween returns active subscriptions whose next due
// date falls in [start, end].
func ListSubscriptionsDueBetween(db *sql.DB, start, end int64) ([]Subscription, error) {
	return querySubscriptions(db,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE next_due_at BETWEEN ? AND ? AND is_active = 1 ORDER BY next_due_at ASC`, start, end)
}

// ListActiveSubscriptions returns active subscriptions ordered by due date.
func ListActiveSubscriptions(db *sql.DB) ([]Subscription, error) {
	return querySubscriptions(db,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE is_active = 1 ORDER BY next_due_at ASC`)
}

func querySubscriptions(db *sql.DB, query string, args ...any) ([]Subscription, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// SetSubscriptionCoreFields is the field-scoped edit used by the form flow;
// payment bookkeeping fields are untouched and updated_at is bumped.
func SetSubscriptionCoreFields(db *sql.DB, id int64, title string, amountCents *int64, variableAmount bool,
	frequency string, intervalDays *int, nextDueAt int64, autoPay bool, colorHex string) error {
	res, err := db.Exec(`
	UPDATE subscriptions SET
		title = ?, amount_cents = ?, variable_amount = ?, frequency = ?, interval_days = ?,
		next_due_at = ?, auto_pay = ?, color_hex = ?, updated_at = ?
	WHERE id = ?`,
		title, amountCents, variableAmount, frequency, intervalDays,
		nextDueAt, autoPay, colorHex, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkSubscriptionPaid applies the four payment fields in one statement so
// no intermediate state is observable. Returns ErrNotFound for a missing id.
func MarkSubscriptionPaid(db *sql.DB, id int64, amountCents int64, paidAt int64, nextDueAt int64) error {
	res, err := db.Exec(`
	UPDATE subscriptions SET
		last_paid_at = ?, last_paid_amount_cents = ?, next_due_at = ?, updated_at = ?
	WHERE id = ?`,
		paidAt, amountCents, nextDueAt, paidAt, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetSubscriptionActive flips the soft-delete flag. Missing ids are a no-op.
func SetSubscriptionActive(db *sql.DB, id int64, active bool, ts int64) error {
	_, err := db.Exec(`UPDATE subscriptions SET is_active = ?, updated_at = ? WHERE id = ?`, active, ts, id)
	return err
}

// DeleteSubscription removes the row permanently. Movements that reference
// it keep their back-reference; history is never cascaded. Missing ids are
// a no-op.
func DeleteSubscription(db *sql.DB, id int64) error {
	_, err := db.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
