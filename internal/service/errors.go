package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrOnCooldown        = errors.New("purchase cooldown active")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrShuttingDown      = errors.New("order intake is shutting down")
)

// CooldownError reports how long a user still has to wait before buying
// the product again. It matches ErrOnCooldown.
type CooldownError struct {
	Product   string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active for %s, try again in %s", e.Product, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool { return target == ErrOnCooldown }

// StockError reports a purchase larger than the cached stock count.
// It matches ErrInsufficientStock.
type StockError struct {
	Product   string
	Available int64
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available, %d requested", e.Product, e.Available, e.Requested)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }
