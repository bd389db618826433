package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fulfillment-api/internal/model"
)

// dialect captures the few differences between the SQL backends.
type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
	dialectMySQL
)

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore implements Store on top of database/sql.
// Timestamps are stored as unix nanoseconds so every backend shares one encoding.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

// UpsertProduct creates a product or replaces its settings, keeping the stock count.
func (s *SQLStore) UpsertProduct(ctx context.Context, p *model.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO products (name, price, cooldown_seconds, mode, stock, precheck_level, precheck_format, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			price = excluded.price,
			cooldown_seconds = excluded.cooldown_seconds,
			mode = excluded.mode,
			precheck_level = excluded.precheck_level,
			precheck_format = excluded.precheck_format`

	_, err := s.exec(ctx, query, p.Name, p.Price, p.CooldownSeconds, string(p.Mode), p.Stock,
		p.PrecheckLevel, p.PrecheckFormat, toNanos(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

const productColumns = `name, price, cooldown_seconds, mode, stock, precheck_level, precheck_format, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var (
		p       model.Product
		mode    string
		created int64
	)
	if err := row.Scan(&p.Name, &p.Price, &p.CooldownSeconds, &mode, &p.Stock,
		&p.PrecheckLevel, &p.PrecheckFormat, &created); err != nil {
		return nil, err
	}
	p.Mode = model.InventoryMode(mode)
	p.CreatedAt = fromNanos(created)
	return &p, nil
}

// GetProduct returns a product by name or ErrNotFound.
func (s *SQLStore) GetProduct(ctx context.Context, name string) (*model.Product, error) {
	row := s.queryRow(ctx, `SELECT `+productColumns+` FROM products WHERE name = ?`, name)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListProducts returns all products ordered by name.
func (s *SQLStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// DeleteProduct removes a product.
func (s *SQLStore) DeleteProduct(ctx context.Context, name string) error {
	res, err := s.exec(ctx, `DELETE FROM products WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("product %q: %w", name, ErrNotFound)
	}
	return nil
}

// UpdateStock overwrites the cached stock count of a product.
func (s *SQLStore) UpdateStock(ctx context.Context, name string, stock int64) error {
	if _, err := s.exec(ctx, `UPDATE products SET stock = ? WHERE name = ?`, stock, name); err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	return nil
}

// CreateOrder inserts a new order.
func (s *SQLStore) CreateOrder(ctx context.Context, o *model.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = model.OrderProcessing
	}
	query := `
		INSERT INTO orders (order_id, user_id, product_name, quantity, delivered, total_cost, mode, status, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, query, o.ID, o.UserID, o.ProductName, o.Quantity, o.Delivered, o.TotalCost,
		string(o.Mode), string(o.Status), o.Reason, toNanos(o.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

const orderColumns = `order_id, user_id, product_name, quantity, delivered, total_cost, mode, status, reason, created_at, completed_at`

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o         model.Order
		mode      string
		status    string
		created   int64
		completed sql.NullInt64
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.ProductName, &o.Quantity, &o.Delivered, &o.TotalCost,
		&mode, &status, &o.Reason, &created, &completed); err != nil {
		return nil, err
	}
	o.Mode = model.InventoryMode(mode)
	o.Status = model.OrderStatus(status)
	o.CreatedAt = fromNanos(created)
	if completed.Valid {
		t := fromNanos(completed.Int64)
		o.CompletedAt = &t
	}
	return &o, nil
}

// GetOrder returns an order by id or ErrNotFound.
func (s *SQLStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := scanOrder(s.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// UpdateOrderStatus records the terminal state of an order.
// completed_at is only set for completed orders.
func (s *SQLStore) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, delivered int, reason string) error {
	var completedAt sql.NullInt64
	if status == model.OrderCompleted {
		completedAt = sql.NullInt64{Int64: toNanos(time.Now()), Valid: true}
	}
	res, err := s.exec(ctx,
		`UPDATE orders SET status = ?, delivered = ?, reason = ?, completed_at = ? WHERE order_id = ?`,
		string(status), delivered, reason, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("order %q: %w", id, ErrNotFound)
	}
	return nil
}

// ListOrdersByUser returns the newest orders of a user.
func (s *SQLStore) ListOrdersByUser(ctx context.Context, userID string, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// SetCooldown upserts the last purchase time of a user+product pair.
func (s *SQLStore) SetCooldown(ctx context.Context, userID, product string, at time.Time) error {
	query := `
		INSERT INTO user_cooldowns (user_id, product_name, last_purchase)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, product_name) DO UPDATE SET last_purchase = excluded.last_purchase`
	if _, err := s.exec(ctx, query, userID, product, toNanos(at)); err != nil {
		return fmt.Errorf("failed to set cooldown: %w", err)
	}
	return nil
}

// GetCooldown returns the cooldown record or nil if there is none.
func (s *SQLStore) GetCooldown(ctx context.Context, userID, product string) (*model.Cooldown, error) {
	var last int64
	err := s.queryRow(ctx,
		`SELECT last_purchase FROM user_cooldowns WHERE user_id = ? AND product_name = ?`,
		userID, product).Scan(&last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cooldown: %w", err)
	}
	return &model.Cooldown{UserID: userID, Product: product, LastPurchase: fromNanos(last)}, nil
}

// ClearUserCooldowns removes every cooldown of a user.
func (s *SQLStore) ClearUserCooldowns(ctx context.Context, userID string) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM user_cooldowns WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cooldowns: %w", err)
	}
	return res.RowsAffected()
}

// ClearAllCooldowns removes every cooldown.
func (s *SQLStore) ClearAllCooldowns(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM user_cooldowns`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cooldowns: %w", err)
	}
	return res.RowsAffected()
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB returns the underlying connection pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
