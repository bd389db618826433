package repository

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// NewSQLiteStore opens the order/product store backed by a SQLite file.
// dbPath is the path to the SQLite database file (e.g., "./databases/store.db")
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	if err := createStoreTables(db, sqliteStoreSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return &SQLStore{db: db, dialect: dialectSQLite}, nil
}

// openSQLite opens a WAL-mode SQLite database, creating its parent directory.
func openSQLite(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

const sqliteStoreSchema = `
	CREATE TABLE IF NOT EXISTS products (
		name TEXT PRIMARY KEY,
		price REAL NOT NULL DEFAULT 0,
		cooldown_seconds INTEGER NOT NULL DEFAULT 0,
		mode TEXT NOT NULL DEFAULT 'line',
		stock INTEGER NOT NULL DEFAULT 0,
		precheck_level INTEGER NOT NULL DEFAULT 0,
		precheck_format TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		delivered INTEGER NOT NULL DEFAULT 0,
		total_cost REAL NOT NULL DEFAULT 0,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		completed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at);
	CREATE TABLE IF NOT EXISTS user_cooldowns (
		user_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		last_purchase INTEGER NOT NULL,
		PRIMARY KEY (user_id, product_name)
	);
`

func createStoreTables(db *sql.DB, schema string) error {
	_, err := db.Exec(schema)
	return err
}
