package model

import (
	"database/sql"
	"time"
)

// Identity providers.
const (
	ProviderManual = "MANUAL"
	ProviderGoogle = "GOOGLE"
)

// User is the single local account. Exactly one row has is_active=1; signing
// in (manually or via Google) deactivates all others first. The PIN is never
// stored in clear: pin_hash is a bcrypt digest over salt||pin.
type User struct {
	ID          int64   `json:"id"`
	GivenName   string  `json:"givenName"`
	FamilyName  string  `json:"familyName"`
	Email       string  `json:"email"`
	AvatarURL   *string `json:"avatarUrl"`
	Provider    string  `json:"provider"` // MANUAL | GOOGLE
	ProviderUID *string `json:"providerUid"`
	PinHash     string  `json:"-"`
	PinSalt     string  `json:"-"`
	IsActive    bool    `json:"isActive"`
	IsOnboarded bool    `json:"isOnboarded"`
	CreatedAt   int64   `json:"createdAt"`
}

// Session is an issued access/refresh token pair for the HTTP surface.
type Session struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

const userColumns = `id, given_name, family_name, email, avatar_url, provider, provider_uid,
	pin_hash, pin_salt, is_active, is_onboarded, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.GivenName, &u.FamilyName, &u.Email, &u.AvatarURL, &u.Provider, &u.ProviderUID,
		&u.PinHash, &u.PinSalt, &u.IsActive, &u.IsOnboarded, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetActiveUser returns the current account, or ErrNotFound when none exists
// (first launch, before onboarding).
func GetActiveUser(db *sql.DB) (*User, error) {
	row := db.QueryRow(`SELECT ` + userColumns + ` FROM users WHERE is_active = 1 LIMIT 1`)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

func GetUserByID(db *sql.DB, id int64) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

func InsertUser(db *sql.DB, u *User) error {
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().UnixMilli()
	}
	res, err := db.Exec(`
	INSERT INTO users (given_name, family_name, email, avatar_url, provider, provider_uid,
		pin_hash, pin_salt, is_active, is_onboarded, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.GivenName, u.FamilyName, u.Email, u.AvatarURL, u.Provider, u.ProviderUID,
		u.PinHash, u.PinSalt, u.IsActive, u.IsOnboarded, u.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

// DeactivateAllUsers retires every account before a new sign-in takes over.
func DeactivateAllUsers(db *sql.DB) error {
	_, err := db.Exec(`UPDATE users SET is_active = 0`)
	return err
}

// SetUserPin rotates the stored hash and salt together.
func SetUserPin(db *sql.DB, id int64, pinHash, pinSalt string) error {
	res, err := db.Exec(`UPDATE users SET pin_hash = ?, pin_salt = ? WHERE id = ?`, pinHash, pinSalt, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetUserOnboarded marks the onboarding flow as completed.
func SetUserOnboarded(db *sql.DB, id int64) error {
	res, err := db.Exec(`UPDATE users SET is_onboarded = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CreateSession inserts a new session row.
func CreateSession(db *sql.DB, session *Session) error {
	session.CreatedAt = time.Now()
	_, err := db.Exec(`
	INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.UserID, session.Token, session.RefreshToken, session.UserAgent,
		session.ClientIP, session.IsBlocked, session.ExpiresAt, session.CreatedAt)
	return err
}

// GetSessionByToken retrieves an unexpired, non-blocked session by its
// access token.
func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	row := db.QueryRow(`
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions
	WHERE token = ? AND is_blocked = 0 AND expires_at > ?`, token, time.Now())

	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.UserAgent,
		&s.ClientIP, &s.IsBlocked, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessionByRefreshToken retrieves an unexpired session for token refresh.
func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	row := db.QueryRow(`
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions
	WHERE refresh_token = ? AND is_blocked = 0 AND expires_at > ?`, refreshToken, time.Now())

	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.UserAgent,
		&s.ClientIP, &s.IsBlocked, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSessionToken swaps the access token after a refresh.
func UpdateSessionToken(db *sql.DB, id int64, token string) error {
	_, err := db.Exec(`UPDATE sessions SET token = ? WHERE id = ?`, token, id)
	return err
}

// DeleteSessionByToken removes a session. An already-gone session is not an
// error; logout stays idempotent.
func DeleteSessionByToken(db *sql.DB, token string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}
