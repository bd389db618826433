package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fulfillment-api/internal/batch"
	"fulfillment-api/internal/cache"
	"fulfillment-api/internal/model"
	"fulfillment-api/internal/repository"
	"fulfillment-api/pkg/uid"
)

// DefaultMaxQuantity caps the units of a single order when no limit is configured.
const DefaultMaxQuantity = 50

// Enqueuer accepts orders for batch processing.
type Enqueuer interface {
	Enqueue(order model.PendingOrder) error
}

// PurchaseRequest is a buyer's order before admission. CooldownExempt is
// never read from a request body; callers set it from trusted input only.
type PurchaseRequest struct {
	UserID         string `json:"user_id"`
	Product        string `json:"product"`
	Quantity       int    `json:"quantity"`
	Channel        string `json:"channel,omitempty"`
	CooldownExempt bool   `json:"-"`
}

// OrderService admits purchases and hands them to the batch coordinator.
type OrderService struct {
	store       repository.Store
	queue       Enqueuer
	cooldowns   *cache.Cooldowns
	maxQuantity int
	exempt      map[string]bool
	now         func() time.Time
}

// NewOrderService creates an order service. cooldowns may be nil.
func NewOrderService(store repository.Store, queue Enqueuer, cooldowns *cache.Cooldowns, maxQuantity int) *OrderService {
	if maxQuantity <= 0 {
		maxQuantity = DefaultMaxQuantity
	}
	return &OrderService{
		store:       store,
		queue:       queue,
		cooldowns:   cooldowns,
		maxQuantity: maxQuantity,
		exempt:      make(map[string]bool),
		now:         time.Now,
	}
}

// SetCooldownExempt replaces the users whose orders skip cooldowns.
// Call it before serving requests.
func (s *OrderService) SetCooldownExempt(users []string) {
	s.exempt = make(map[string]bool, len(users))
	for _, u := range users {
		s.exempt[u] = true
	}
}

// Purchase validates req, persists a processing order and enqueues it.
// It returns as soon as the order is queued; delivery happens in a later batch pass.
func (s *OrderService) Purchase(ctx context.Context, req PurchaseRequest) (*model.Order, error) {
	if req.Quantity < 1 || req.Quantity > s.maxQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidQuantity, s.maxQuantity)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}

	product, err := s.store.GetProduct(ctx, req.Product)
	if err != nil {
		return nil, err
	}

	if product.Stock < int64(req.Quantity) {
		return nil, &StockError{Product: product.Name, Available: product.Stock, Requested: req.Quantity}
	}

	exempt := req.CooldownExempt || s.exempt[req.UserID]
	if !exempt {
		remaining, err := s.remainingCooldown(ctx, req.UserID, product)
		if err != nil {
			return nil, err
		}
		if remaining > 0 {
			return nil, &CooldownError{Product: product.Name, Remaining: remaining}
		}
	}

	order := &model.Order{
		ID:          uid.OrderID(),
		UserID:      req.UserID,
		ProductName: product.Name,
		Quantity:    req.Quantity,
		TotalCost:   product.Price * float64(req.Quantity),
		Mode:        product.Mode,
		Status:      model.OrderProcessing,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	err = s.queue.Enqueue(model.PendingOrder{
		OrderID:        order.ID,
		UserID:         order.UserID,
		Product:        order.ProductName,
		Quantity:       order.Quantity,
		EnqueuedAt:     order.CreatedAt,
		Channel:        req.Channel,
		CooldownExempt: exempt,
	})
	if err != nil {
		reason := "order could not be queued"
		if errors.Is(err, batch.ErrCoordinatorClosed) {
			reason = "order intake is shutting down"
			err = ErrShuttingDown
		}
		if uerr := s.store.UpdateOrderStatus(ctx, order.ID, model.OrderFailed, 0, reason); uerr != nil {
			log.Printf("[OrderService] Failed to mark %s as failed: %v", order.ID, uerr)
		}
		return nil, fmt.Errorf("enqueue order %s: %w", order.ID, err)
	}

	log.Printf("[OrderService] Accepted %s: %s x%d for user %s", order.ID, order.ProductName, order.Quantity, order.UserID)
	return order, nil
}

// remainingCooldown checks the cache first and falls back to the store,
// caching the store's answer for as long as it stays relevant.
func (s *OrderService) remainingCooldown(ctx context.Context, userID string, product *model.Product) (time.Duration, error) {
	cooldown := product.Cooldown()
	if cooldown <= 0 {
		return 0, nil
	}
	now := s.now()

	if s.cooldowns != nil {
		last, ok, err := s.cooldowns.Get(ctx, userID, product.Name)
		if err != nil {
			log.Printf("[OrderService] Cooldown cache read failed: %v", err)
		} else if ok {
			c := model.Cooldown{LastPurchase: last}
			return c.Remaining(cooldown, now), nil
		}
	}

	rec, err := s.store.GetCooldown(ctx, userID, product.Name)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, nil
	}

	remaining := rec.Remaining(cooldown, now)
	if remaining > 0 && s.cooldowns != nil {
		if err := s.cooldowns.Set(ctx, userID, product.Name, rec.LastPurchase, remaining); err != nil {
			log.Printf("[OrderService] Cooldown cache write failed: %v", err)
		}
	}
	return remaining, nil
}

// Get returns the persisted state of an order.
func (s *OrderService) Get(ctx context.Context, orderID string) (*model.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

// ListByUser returns a user's newest orders.
func (s *OrderService) ListByUser(ctx context.Context, userID string, limit int) ([]model.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID, limit)
}

// ClearCooldowns removes the cooldowns of userID, or of everyone when userID is empty.
func (s *OrderService) ClearCooldowns(ctx context.Context, userID string) (int64, error) {
	var (
		n   int64
		err error
	)
	if userID == "" {
		n, err = s.store.ClearAllCooldowns(ctx)
	} else {
		n, err = s.store.ClearUserCooldowns(ctx, userID)
	}
	if err != nil {
		return 0, err
	}

	if s.cooldowns != nil {
		if userID == "" {
			err = s.cooldowns.ClearAll(ctx)
		} else {
			err = s.cooldowns.ClearUser(ctx, userID)
		}
		if err != nil {
			return n, fmt.Errorf("clear cached cooldowns: %w", err)
		}
	}
	return n, nil
}
