package database

import (
	"database/sql"
	"fmt"
	stdlog "log"

	"github.com/DavidDevlo/FINTide/src/logger"
	_ "modernc.org/sqlite"
)

// InitDB opens the SQLite database at databasePath, ensures the schema and
// returns the handle. The handle is constructed once in main and injected
// into every component that needs it; there is no package-level singleton.
func InitDB(databasePath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", databasePath, err)
	}

	// SQLite allows a single writer; serializing access through one
	// connection avoids SQLITE_BUSY under concurrent handler writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		logWarn("Failed to enable WAL journal mode", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		logWarn("Failed to enable foreign keys", err)
	}

	if err := EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the application tables when missing and applies the
// additive column migrations for databases created by older builds.
func EnsureSchema(db *sql.DB) error {
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		given_name TEXT NOT NULL,
		family_name TEXT NOT NULL,
		email TEXT NOT NULL,
		avatar_url TEXT,
		provider TEXT NOT NULL DEFAULT 'MANUAL',
		provider_uid TEXT,
		pin_hash TEXT NOT NULL,
		pin_salt TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_onboarded INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked INTEGER NOT NULL DEFAULT 0,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		amount_cents INTEGER,
		variable_amount INTEGER NOT NULL DEFAULT 0,
		frequency TEXT NOT NULL,
		interval_days INTEGER,
		next_due_at INTEGER NOT NULL,
		auto_pay INTEGER NOT NULL DEFAULT 0,
		color_hex TEXT NOT NULL DEFAULT '#7C3AED',
		is_active INTEGER NOT NULL DEFAULT 1,
		last_paid_at INTEGER,
		last_paid_amount_cents INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_active_due ON subscriptions(is_active, next_due_at);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_title ON subscriptions(title);

	CREATE TABLE IF NOT EXISTS movements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subscription_id INTEGER,
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		date INTEGER NOT NULL,
		stripe_color_hex TEXT NOT NULL DEFAULT '#22C55E',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_movements_active_date ON movements(is_active, date);

	CREATE TABLE IF NOT EXISTS goals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		target_amount_cents INTEGER NOT NULL,
		current_amount_cents INTEGER NOT NULL DEFAULT 0,
		color_hex TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		holder_name TEXT NOT NULL,
		nickname TEXT,
		brand TEXT NOT NULL,
		pan_last4 TEXT NOT NULL,
		exp_month INTEGER NOT NULL,
		exp_year INTEGER NOT NULL,
		color_hex TEXT NOT NULL DEFAULT '#3B82F6',
		card_type TEXT NOT NULL DEFAULT 'DEBIT',
		is_physical INTEGER NOT NULL DEFAULT 1,
		is_default INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	if _, err := db.Exec(createTableStatement); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	migrateMovementsTable(db)
	migrateCardsTable(db)

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	}
	return nil
}

// migrateMovementsTable adds the subscription back-reference for databases
// created before movements carried an explicit link to their subscription.
func migrateMovementsTable(db *sql.DB) {
	columns, err := tableColumns(db, "movements")
	if err != nil {
		logWarn("Error querying table schema for 'movements'", err)
		return
	}
	if _, ok := columns["subscription_id"]; !ok {
		if _, err := db.Exec("ALTER TABLE movements ADD COLUMN subscription_id INTEGER"); err != nil {
			logWarn("Error adding 'subscription_id' column to 'movements' table", err)
		} else {
			logInfo("Added 'subscription_id' column to 'movements' table")
		}
	}
}

// migrateCardsTable adds the card_type and is_physical columns for databases
// created before cards distinguished debit/credit and physical/virtual.
func migrateCardsTable(db *sql.DB) {
	columns, err := tableColumns(db, "cards")
	if err != nil {
		logWarn("Error querying table schema for 'cards'", err)
		return
	}
	if _, ok := columns["card_type"]; !ok {
		if _, err := db.Exec("ALTER TABLE cards ADD COLUMN card_type TEXT NOT NULL DEFAULT 'DEBIT'"); err != nil {
			logWarn("Error adding 'card_type' column to 'cards' table", err)
		} else {
			logInfo("Added 'card_type' column to 'cards' table")
		}
	}
	if _, ok := columns["is_physical"]; !ok {
		if _, err := db.Exec("ALTER TABLE cards ADD COLUMN is_physical INTEGER NOT NULL DEFAULT 1"); err != nil {
			logWarn("Error adding 'is_physical' column to 'cards' table", err)
		} else {
			logInfo("Added 'is_physical' column to 'cards' table")
		}
	}
}

func logInfo(msg string) {
	if logger.L != nil {
		logger.L.Info(msg)
	} else {
		stdlog.Println(msg)
	}
}

func logWarn(msg string, err error) {
	if logger.L != nil {
		logger.L.Warn(msg, "error", err)
	} else {
		stdlog.Printf("%s: %v", msg, err)
	}
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			return nil, err
		}
		columnExists[name] = true
	}
	return columnExists, rows.Err()
}
