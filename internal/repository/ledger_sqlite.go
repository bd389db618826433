package repository

import (
	"fmt"
	"log"
)

// NewSQLiteLedger opens the antipublic ledger backed by a SQLite file.
func NewSQLiteLedger(dbPath string) (*SQLLedger, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	query := `
	CREATE TABLE IF NOT EXISTS delivered_identities (
		identity_key TEXT PRIMARY KEY,
		identity TEXT NOT NULL,
		user_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		product TEXT NOT NULL,
		delivered_at INTEGER NOT NULL,
		content TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_delivered_user ON delivered_identities(user_id, delivered_at);
	`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteLedger] Initialized with database: %s", dbPath)
	return &SQLLedger{db: db, dialect: dialectSQLite}, nil
}
