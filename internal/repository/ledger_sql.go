package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fulfillment-api/internal/model"
)

// deliveredSetChunk bounds the number of placeholders in one IN query.
const deliveredSetChunk = 500

// SQLLedger implements LedgerRepository on top of database/sql.
// identity_key holds the lower-cased identity and carries the unique index.
type SQLLedger struct {
	db      *sql.DB
	dialect dialect
}

func identityKey(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func (l *SQLLedger) upsertQuery() string {
	if l.dialect == dialectMySQL {
		return `
		INSERT INTO delivered_identities (identity_key, identity, user_id, order_id, product, delivered_at, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			identity = VALUES(identity),
			user_id = VALUES(user_id),
			order_id = VALUES(order_id),
			product = VALUES(product),
			delivered_at = VALUES(delivered_at),
			content = VALUES(content)`
	}
	return `
		INSERT INTO delivered_identities (identity_key, identity, user_id, order_id, product, delivered_at, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity_key) DO UPDATE SET
			identity = excluded.identity,
			user_id = excluded.user_id,
			order_id = excluded.order_id,
			product = excluded.product,
			delivered_at = excluded.delivered_at,
			content = excluded.content`
}

// UpsertDelivered inserts or overwrites the record for rec.Identity.
func (l *SQLLedger) UpsertDelivered(ctx context.Context, rec model.DeliveredIdentity) error {
	key := identityKey(rec.Identity)
	if key == "" {
		return fmt.Errorf("empty identity")
	}
	_, err := l.db.ExecContext(ctx, l.dialect.rebind(l.upsertQuery()),
		key, rec.Identity, rec.UserID, rec.OrderID, rec.Product, toNanos(rec.DeliveredAt), rec.Content)
	if err != nil {
		return fmt.Errorf("failed to record identity: %w", err)
	}
	return nil
}

const ledgerColumns = `identity, user_id, order_id, product, delivered_at, content`

func scanDelivered(row rowScanner) (*model.DeliveredIdentity, error) {
	var (
		rec model.DeliveredIdentity
		at  int64
	)
	if err := row.Scan(&rec.Identity, &rec.UserID, &rec.OrderID, &rec.Product, &at, &rec.Content); err != nil {
		return nil, err
	}
	rec.DeliveredAt = fromNanos(at)
	return &rec, nil
}

// GetDelivered returns the record for identity or nil if none exists.
func (l *SQLLedger) GetDelivered(ctx context.Context, identity string) (*model.DeliveredIdentity, error) {
	row := l.db.QueryRowContext(ctx, l.dialect.rebind(
		`SELECT `+ledgerColumns+` FROM delivered_identities WHERE identity_key = ?`), identityKey(identity))
	rec, err := scanDelivered(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return rec, nil
}

// DeliveredSet reports which of the given identities are recorded.
func (l *SQLLedger) DeliveredSet(ctx context.Context, identities []string) (map[string]bool, error) {
	seen := make(map[string]bool)

	keys := make([]string, 0, len(identities))
	uniq := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		k := identityKey(id)
		if k == "" {
			continue
		}
		if _, ok := uniq[k]; ok {
			continue
		}
		uniq[k] = struct{}{}
		keys = append(keys, k)
	}

	for start := 0; start < len(keys); start += deliveredSetChunk {
		end := min(start+deliveredSetChunk, len(keys))
		chunk := keys[start:end]

		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		query := `SELECT identity_key FROM delivered_identities WHERE identity_key IN (?` +
			strings.Repeat(", ?", len(chunk)-1) + `)`

		rows, err := l.db.QueryContext(ctx, l.dialect.rebind(query), args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query identities: %w", err)
		}
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan identity: %w", err)
			}
			seen[k] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to query identities: %w", err)
		}
	}
	return seen, nil
}

// ListDeliveredByUser returns a user's records, newest first.
func (l *SQLLedger) ListDeliveredByUser(ctx context.Context, userID string) ([]model.DeliveredIdentity, error) {
	rows, err := l.db.QueryContext(ctx, l.dialect.rebind(
		`SELECT `+ledgerColumns+` FROM delivered_identities WHERE user_id = ? ORDER BY delivered_at DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var out []model.DeliveredIdentity
	for rows.Next() {
		rec, err := scanDelivered(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// LedgerStats aggregates the ledger.
func (l *SQLLedger) LedgerStats(ctx context.Context) (*model.LedgerStats, error) {
	var stats model.LedgerStats
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT product) FROM delivered_identities`).
		Scan(&stats.TotalDelivered, &stats.UniqueUsers, &stats.ProductsDelivered)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger stats: %w", err)
	}
	return &stats, nil
}

// Ping checks the database connection.
func (l *SQLLedger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// Close closes the database connection.
func (l *SQLLedger) Close() error {
	return l.db.Close()
}

var _ LedgerRepository = (*SQLLedger)(nil)
