package model

import (
	"database/sql"
	"time"
)

// Card brand and type values stored uppercase.
const (
	CardTypeDebit  = "DEBIT"
	CardTypeCredit = "CREDIT"
)

// PaymentCard stores display metadata for a card: only the last four PAN
// digits are ever persisted.
type PaymentCard struct {
	ID         int64   `json:"id"`
	HolderName string  `json:"holderName"`
	Nickname   *string `json:"nickname"`
	Brand      string  `json:"brand"` // VISA | MASTERCARD | AMEX | DINERS | UNKNOWN
	PanLast4   string  `json:"panLast4"`
	ExpMonth   int     `json:"expMonth"`
	ExpYear    int     `json:"expYear"`
	ColorHex   string  `json:"colorHex"`
	CardType   string  `json:"cardType"` // DEBIT | CREDIT
	IsPhysical bool    `json:"isPhysical"`
	IsDefault  bool    `json:"isDefault"`
	IsActive   bool    `json:"isActive"`
	CreatedAt  int64   `json:"createdAt"`
	UpdatedAt  int64   `json:"updatedAt"`
}

const cardColumns = `id, holder_name, nickname, brand, pan_last4, exp_month, exp_year,
	color_hex, card_type, is_physical, is_default, is_active, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (*PaymentCard, error) {
	var c PaymentCard
	err := row.Scan(&c.ID, &c.HolderName, &c.Nickname, &c.Brand, &c.PanLast4, &c.ExpMonth, &c.ExpYear,
		&c.ColorHex, &c.CardType, &c.IsPhysical, &c.IsDefault, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func InsertCard(db *sql.DB, c *PaymentCard) error {
	now := time.Now().UnixMilli()
	c.CreatedAt = now
	c.UpdatedAt = now
	res, err := db.Exec(`
	INSERT INTO cards (holder_name, nickname, brand, pan_last4, exp_month, exp_year,
		color_hex, card_type, is_physical, is_default, is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.HolderName, c.Nickname, c.Brand, c.PanLast4, c.ExpMonth, c.ExpYear,
		c.ColorHex, c.CardType, c.IsPhysical, c.IsDefault, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func GetCardByID(db *sql.DB, id int64) (*PaymentCard, error) {
	row := db.QueryRow(`SELECT `+cardColumns+` FROM cards WHERE id = ? LIMIT 1`, id)
	c, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

// ListActiveCards returns active cards, default card first.
func ListActiveCards(db *sql.DB) ([]PaymentCard, error) {
	return queryCards(db,
		`SELECT `+cardColumns+` FROM cards WHERE is_active = 1 ORDER BY is_default DESC, updated_at DESC`)
}

// SearchCards matches holder name, nickname, brand or the stored last four.
func SearchCards(db *sql.DB, q string) ([]PaymentCard, error) {
	return queryCards(db,
		`SELECT `+cardColumns+` FROM cards
		 WHERE is_active = 1
		   AND (holder_name LIKE '%'||?||'%' OR nickname LIKE '%'||?||'%' OR brand LIKE '%'||?||'%' OR pan_last4 LIKE '%'||?||'%')
		 ORDER BY is_default DESC, updated_at DESC`, q, q, q, q)
}

func queryCards(db *sql.DB, query string, args ...any) ([]PaymentCard, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []PaymentCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

// SetCardMeta updates the editable display fields.
func SetCardMeta(db *sql.DB, id int64, nickname *string, colorHex string) error {
	res, err := db.Exec(`UPDATE cards SET nickname = ?, color_hex = ?, updated_at = ? WHERE id = ?`,
		nickname, colorHex, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetDefaultCardExclusive clears every default flag and sets one card as the
// default inside a single transaction, so no state with zero or multiple
// defaults is observable. Returns ErrNotFound (and leaves defaults
// untouched) when the id does not exist.
func SetDefaultCardExclusive(db *sql.DB, id int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE cards SET is_default = 0`); err != nil {
		return err
	}
	res, err := tx.Exec(`UPDATE cards SET is_default = 1, updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// SoftDeleteCard flips the active flag. Missing ids are a no-op.
func SoftDeleteCard(db *sql.DB, id int64, ts int64) error {
	_, err := db.Exec(`UPDATE cards SET is_active = 0, updated_at = ? WHERE id = ?`, ts, id)
	return err
}
