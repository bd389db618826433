// Package notify delivers settled-order payloads to buyers and operators.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"fulfillment-api/internal/model"
)

// Notifier hands a settled order to whoever needs to see it.
// Delivery is best-effort; callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, userID string, d model.Delivery) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, userID string, d model.Delivery) error

func (f Func) Notify(ctx context.Context, userID string, d model.Delivery) error {
	return f(ctx, userID, d)
}

// Multi notifies every target and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, userID string, d model.Delivery) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, userID, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes one line per settled order.
type Log struct{}

func (Log) Notify(ctx context.Context, userID string, d model.Delivery) error {
	log.Printf("[Notify] %s", Summary(d))
	return nil
}

// Summary renders a settled order as a single audit line.
func Summary(d model.Delivery) string {
	line := fmt.Sprintf("order=%s user=%s product=%s delivered=%d/%d outcome=%s",
		d.OrderID, d.UserID, d.Product, d.Delivered, d.Requested, d.Outcome)
	if d.Failure != model.FailureNone {
		line += " failure=" + string(d.Failure)
	}
	if d.Reason != "" {
		line += fmt.Sprintf(" reason=%q", d.Reason)
	}
	if len(d.Identities) > 0 {
		line += fmt.Sprintf(" identities=%v", d.Identities)
	}
	return line
}
