package model

import "time"

// DeliveredIdentity is one row of the antipublic ledger.
type DeliveredIdentity struct {
	Identity    string    `json:"identity"`
	UserID      string    `json:"user_id"`
	OrderID     string    `json:"order_id"`
	Product     string    `json:"product"`
	DeliveredAt time.Time `json:"delivered_at"`
	Content     string    `json:"content,omitempty"`
}

// LedgerStats aggregates the antipublic ledger.
type LedgerStats struct {
	TotalDelivered    int64 `json:"total_delivered"`
	UniqueUsers       int64 `json:"unique_users"`
	ProductsDelivered int64 `json:"products_delivered"`
}
