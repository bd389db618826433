package repository

import (
	"context"
	"errors"
	"time"

	"fulfillment-api/internal/model"
)

// ErrNotFound is returned when a product or order does not exist.
var ErrNotFound = errors.New("not found")

// ProductRepository defines product data access methods.
type ProductRepository interface {
	// UpsertProduct creates a product or replaces its settings, keeping the stock count.
	UpsertProduct(ctx context.Context, p *model.Product) error

	// GetProduct returns a product by name or ErrNotFound.
	GetProduct(ctx context.Context, name string) (*model.Product, error)

	// ListProducts returns all products ordered by name.
	ListProducts(ctx context.Context) ([]model.Product, error)

	// DeleteProduct removes a product. Returns ErrNotFound if it does not exist.
	DeleteProduct(ctx context.Context, name string) error

	// UpdateStock overwrites the cached stock count of a product.
	UpdateStock(ctx context.Context, name string, stock int64) error
}

// OrderRepository defines order data access methods.
type OrderRepository interface {
	// CreateOrder inserts a new order.
	CreateOrder(ctx context.Context, o *model.Order) error

	// GetOrder returns an order by id or ErrNotFound.
	GetOrder(ctx context.Context, id string) (*model.Order, error)

	// UpdateOrderStatus records the terminal state of an order.
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, delivered int, reason string) error

	// ListOrdersByUser returns the newest orders of a user.
	ListOrdersByUser(ctx context.Context, userID string, limit int) ([]model.Order, error)
}

// CooldownRepository defines purchase cooldown data access methods.
type CooldownRepository interface {
	// SetCooldown upserts the last purchase time of a user+product pair.
	SetCooldown(ctx context.Context, userID, product string, at time.Time) error

	// GetCooldown returns the cooldown record or nil if there is none.
	GetCooldown(ctx context.Context, userID, product string) (*model.Cooldown, error)

	// ClearUserCooldowns removes every cooldown of a user.
	ClearUserCooldowns(ctx context.Context, userID string) (int64, error)

	// ClearAllCooldowns removes every cooldown.
	ClearAllCooldowns(ctx context.Context) (int64, error)
}

// Store is the order/product persistence collaborator.
type Store interface {
	ProductRepository
	OrderRepository
	CooldownRepository

	// Close closes the repository connection.
	Close() error
}

// LedgerRepository defines antipublic ledger data access methods.
// Identities are matched case-insensitively.
type LedgerRepository interface {
	// UpsertDelivered inserts or overwrites the record for rec.Identity.
	UpsertDelivered(ctx context.Context, rec model.DeliveredIdentity) error

	// GetDelivered returns the record for identity or nil if none exists.
	GetDelivered(ctx context.Context, identity string) (*model.DeliveredIdentity, error)

	// DeliveredSet reports which of the given identities are recorded.
	// The result is keyed by the lower-cased identity.
	DeliveredSet(ctx context.Context, identities []string) (map[string]bool, error)

	// ListDeliveredByUser returns a user's records, newest first.
	ListDeliveredByUser(ctx context.Context, userID string) ([]model.DeliveredIdentity, error)

	// LedgerStats aggregates the ledger.
	LedgerStats(ctx context.Context) (*model.LedgerStats, error)

	// Close closes the repository connection.
	Close() error
}
