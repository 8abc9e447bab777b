package model

import (
	"database/sql"
	"time"
)

// Movement types as stored and sent over the wire.
const (
	MovementIncome  = "income"
	MovementExpense = "expense"
)

// Movement is a single recorded money movement (a ledger entry). When it was
// emitted by paying a subscription, SubscriptionID carries an explicit
// back-reference for traceability.
type Movement struct {
	ID             int64  `json:"id"`
	SubscriptionID *int64 `json:"subscriptionId"`
	Title          string `json:"title"`
	Type           string `json:"type"` // income | expense
	AmountCents    int64  `json:"amountCents"`
	Date           int64  `json:"date"` // epoch ms
	StripeColorHex string `json:"stripeColorHex"`
	IsActive       bool   `json:"isActive"`
	CreatedAt      int64  `json:"createdAt"`
	UpdatedAt      int64  `json:"updatedAt"`
}

// DefaultStripeFor picks the stripe color when the caller supplies none.
func DefaultStripeFor(movementType string) string {
	if movementType == MovementIncome {
		return "#22C55E"
	}
	return "#EF4444"
}

const movementColumns = `id, subscription_id, title, type, amount_cents, date, stripe_color_hex,
	is_active, created_at, updated_at`

func scanMovement(row interface{ Scan(...any) error }) (*Movement, error) {
	var m Movement
	err := row.Scan(&m.ID, &m.SubscriptionID, &m.Title, &m.Type, &m.AmountCents, &m.Date,
		&m.StripeColorHex, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func InsertMovement(db *sql.DB, m *Movement) error {
	now := time.Now().UnixMilli()
	m.CreatedAt = now
	m.UpdatedAt = now
	res, err := db.Exec(`
	INSERT INTO movements (subscription_id, title, type, amount_cents, date, stripe_color_hex,
		is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.SubscriptionID, m.Title, m.Type, m.AmountCents, m.Date, m.StripeColorHex,
		m.IsActive, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func GetMovementByID(db *sql.DB, id int64) (*Movement, error) {
	row := db.QueryRow(`SELECT `+movementColumns+` FROM movements WHERE id = ? LIMIT 1`, id)
	m, err := scanMovement(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return m, err
}

// ListMovements returns active movements, newest first.
func ListMovements(db *sql.DB) ([]Movement, error) {
	return queryMovements(db,
		`SELECT `+movementColumns+` FROM movements WHERE is_active = 1 ORDER BY date DESC, updated_at DESC`)
}

func SearchMovements(db *sql.DB, q string) ([]Movement, error) {
	return queryMovements(db,
		`SELECT `+movementColumns+` FROM movements
		 WHERE is_active = 1 AND title LIKE '%' || ? || '%'
		 ORDER BY date DESC, updated_at DESC`, q)
}

func ListMovementsByType(db *sql.DB, movementType string) ([]Movement, error) {
	return queryMovements(db,
		`SELECT `+movementColumns+` FROM movements
		 WHERE is_active = 1 AND type = ?
		 ORDER BY date DESC, updated_at DESC`, movementType)
}

func ListMovementsBetween(db *sql.DB, start, end int64) ([]Movement, error) {
	return queryMovements(db,
		`SELECT `+movementColumns+` FROM movements
		 WHERE is_active = 1 AND date BETWEEN ? AND ?
		 ORDER BY date DESC, updated_at DESC`, start, end)
}

func CountMovements(db *sql.DB) (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM movements WHERE is_active = 1`).Scan(&n)
	return n, err
}

// SumMovementsByType totals active movement amounts for one type.
func SumMovementsByType(db *sql.DB, movementType string) (int64, error) {
	var total int64
	err := db.QueryRow(
		`SELECT COALESCE(SUM(amount_cents), 0) FROM movements WHERE is_active = 1 AND type = ?`,
		movementType).Scan(&total)
	return total, err
}

func queryMovements(db *sql.DB, query string, args ...any) ([]Movement, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, *m)
	}
	return movements, rows.Err()
}

// SetMovementCoreFields is the field-scoped edit for user-entered movements.
func SetMovementCoreFields(db *sql.DB, id int64, title, movementType string, amountCents, date int64, stripeColorHex string) error {
	res, err := db.Exec(`
	UPDATE movements SET title = ?, type = ?, amount_cents = ?, date = ?, stripe_color_hex = ?, updated_at = ?
	WHERE id = ?`,
		title, movementType, amountCents, date, stripeColorHex, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func SetMovementAmount(db *sql.DB, id int64, amountCents int64) error {
	res, err := db.Exec(`UPDATE movements SET amount_cents = ?, updated_at = ? WHERE id = ?`,
		amountCents, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SoftDeleteMovement flips the active flag. Missing ids are a no-op.
func SoftDeleteMovement(db *sql.DB, id int64, ts int64) error {
	_, err := db.Exec(`UPDATE movements SET is_active = 0, updated_at = ? WHERE id = ?`, ts, id)
	return err
}
