package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// NewMySQLLedger opens the antipublic ledger backed by MySQL.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLLedger(dsn string) (*SQLLedger, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	query := `CREATE TABLE IF NOT EXISTS delivered_identities (
			identity_key VARCHAR(191) NOT NULL,
			identity TEXT NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			order_id VARCHAR(64) NOT NULL,
			product VARCHAR(191) NOT NULL,
			delivered_at BIGINT NOT NULL,
			content MEDIUMTEXT NOT NULL,
			PRIMARY KEY (identity_key),
			KEY idx_delivered_user (user_id, delivered_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	if _, err := db.ExecContext(ctx, query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[MySQLLedger] Initialized")
	return &SQLLedger{db: db, dialect: dialectMySQL}, nil
}
