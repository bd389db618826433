package model

import "time"

// OrderStatus is the persisted lifecycle state of an order.
type OrderStatus string

const (
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderFailed     OrderStatus = "failed"
)

// Order is the persisted record of a purchase.
type Order struct {
	ID          string        `json:"order_id"`
	UserID      string        `json:"user_id"`
	ProductName string        `json:"product"`
	Quantity    int           `json:"quantity"`
	Delivered   int           `json:"delivered"`
	TotalCost   float64       `json:"total_cost"`
	Mode        InventoryMode `json:"mode"`
	Status      OrderStatus   `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// PendingOrder is an accepted order waiting in a product's batch queue.
type PendingOrder struct {
	OrderID        string
	UserID         string
	Product        string
	Quantity       int
	EnqueuedAt     time.Time
	Channel        string // delivery handle, opaque to the coordinator
	CooldownExempt bool
}

// Cooldown records the last purchase of a product by a user.
type Cooldown struct {
	UserID       string    `json:"user_id"`
	Product      string    `json:"product"`
	LastPurchase time.Time `json:"last_purchase"`
}

// Remaining returns how long the cooldown still runs at now.
func (c *Cooldown) Remaining(cooldown time.Duration, now time.Time) time.Duration {
	left := c.LastPurchase.Add(cooldown).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
