package model

import (
	"database/sql"
	"time"
)

// Goal is a savings target with accumulated progress, both in cents.
type Goal struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	TargetAmountCents  int64  `json:"targetAmountCents"`
	CurrentAmountCents int64  `json:"currentAmountCents"`
	ColorHex           string `json:"colorHex"`
	IsActive           bool   `json:"isActive"`
	CreatedAt          int64  `json:"createdAt"`
	UpdatedAt          int64  `json:"updatedAt"`
}

const goalColumns = `id, title, target_amount_cents, current_amount_cents, color_hex,
	is_active, created_at, updated_at`

func scanGoal(row interface{ Scan(...any) error }) (*Goal, error) {
	var g Goal
	err := row.Scan(&g.ID, &g.Title, &g.TargetAmountCents, &g.CurrentAmountCents, &g.ColorHex,
		&g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func InsertGoal(db *sql.DB, g *Goal) error {
	now := time.Now().UnixMilli()
	g.CreatedAt = now
	g.UpdatedAt = now
	res, err := db.Exec(`
	INSERT INTO goals (title, target_amount_cents, current_amount_cents, color_hex, is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.Title, g.TargetAmountCents, g.CurrentAmountCents, g.ColorHex, g.IsActive, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = id
	return nil
}

func GetGoalByID(db *sql.DB, id int64) (*Goal, error) {
	row := db.QueryRow(`SELECT `+goalColumns+` FROM goals WHERE id = ? LIMIT 1`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return g, err
}

// ListGoals returns active goals, most recently updated first.
func ListGoals(db *sql.DB) ([]Goal, error) {
	return queryGoals(db,
		`SELECT `+goalColumns+` FROM goals WHERE is_active = 1 ORDER BY updated_at DESC`)
}

func SearchGoals(db *sql.DB, q string) ([]Goal, error) {
	return queryGoals(db,
		`SELECT `+goalColumns+` FROM goals
		 WHERE is_active = 1 AND title LIKE '%' || ? || '%'
		 ORDER BY updated_at DESC`, q)
}

func queryGoals(db *sql.DB, query string, args ...any) ([]Goal, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// SetGoalAmount overwrites the accumulated progress.
func SetGoalAmount(db *sql.DB, id int64, amountCents int64) error {
	res, err := db.Exec(`UPDATE goals SET current_amount_cents = ?, updated_at = ? WHERE id = ?`,
		amountCents, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AddToGoalAmount applies a delta (possibly negative) in a single statement,
// avoiding a read-modify-write race.
func AddToGoalAmount(db *sql.DB, id int64, deltaCents int64) error {
	res, err := db.Exec(`UPDATE goals SET current_amount_cents = current_amount_cents + ?, updated_at = ? WHERE id = ?`,
		deltaCents, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func SetGoalTitleAndColor(db *sql.DB, id int64, title, colorHex string) error {
	res, err := db.Exec(`UPDATE goals SET title = ?, color_hex = ?, updated_at = ? WHERE id = ?`,
		title, colorHex, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SoftDeleteGoal flips the active flag. Missing ids are a no-op.
func SoftDeleteGoal(db *sql.DB, id int64, ts int64) error {
	_, err := db.Exec(`UPDATE goals SET is_active = 0, updated_at = ? WHERE id = ?`, ts, id)
	return err
}
