package antipublic

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fulfillment-api/internal/model"
	"fulfillment-api/internal/repository"
	"fulfillment-api/internal/stock"
)

// ErrAlreadyRecorded is returned by AddManual for an identity that is already in the ledger.
var ErrAlreadyRecorded = errors.New("identity already recorded")

// ErrNoIdentity is returned when an identity argument is empty.
var ErrNoIdentity = errors.New("no identity")

// Rejection is a unit removed by Filter together with the identity that caused it.
type Rejection struct {
	Unit     stock.Unit
	Identity string
	// Duplicate is true when the identity repeats inside the same batch
	// rather than being found in the ledger.
	Duplicate bool
}

// FilterResult partitions a batch of units.
type FilterResult struct {
	Keep     []stock.Unit
	Rejected []Rejection
}

// RejectedUnits returns the rejected units in input order.
func (r FilterResult) RejectedUnits() []stock.Unit {
	out := make([]stock.Unit, len(r.Rejected))
	for i, rej := range r.Rejected {
		out[i] = rej.Unit
	}
	return out
}

// Ledger answers "already delivered?" and records new deliveries.
type Ledger struct {
	repo    repository.LedgerRepository
	extract func(string) (string, bool)
	now     func() time.Time
}

// NewLedger creates a ledger over repo using ExtractIdentity.
func NewLedger(repo repository.LedgerRepository) *Ledger {
	return &Ledger{repo: repo, extract: ExtractIdentity, now: time.Now}
}

// IsDelivered reports whether identity was delivered before.
func (l *Ledger) IsDelivered(ctx context.Context, identity string) (bool, error) {
	if Key(identity) == "" {
		return false, nil
	}
	rec, err := l.repo.GetDelivered(ctx, identity)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// Filter keeps units whose identity is unknown to the ledger and unique within
// units. Units without an identity are always kept. The first occurrence of a
// repeated identity wins.
func (l *Ledger) Filter(ctx context.Context, units []stock.Unit) (FilterResult, error) {
	ids := make([]string, len(units))
	var lookup []string
	for i, u := range units {
		if id, ok := l.extract(u.Content); ok {
			ids[i] = id
			lookup = append(lookup, id)
		}
	}

	seen, err := l.repo.DeliveredSet(ctx, lookup)
	if err != nil {
		return FilterResult{}, fmt.Errorf("antipublic lookup: %w", err)
	}

	var res FilterResult
	inBatch := make(map[string]struct{}, len(lookup))
	for i, u := range units {
		id := ids[i]
		if id == "" {
			res.Keep = append(res.Keep, u)
			continue
		}
		key := Key(id)
		switch {
		case seen[key]:
			res.Rejected = append(res.Rejected, Rejection{Unit: u, Identity: id})
		default:
			if _, dup := inBatch[key]; dup {
				res.Rejected = append(res.Rejected, Rejection{Unit: u, Identity: id, Duplicate: true})
				continue
			}
			inBatch[key] = struct{}{}
			res.Keep = append(res.Keep, u)
		}
	}
	return res, nil
}

// Record upserts the delivery of identity. A later call for the same identity
// overwrites the earlier record.
func (l *Ledger) Record(ctx context.Context, identity, userID, orderID, product, content string) error {
	if Key(identity) == "" {
		return ErrNoIdentity
	}
	return l.repo.UpsertDelivered(ctx, model.DeliveredIdentity{
		Identity:    identity,
		UserID:      userID,
		OrderID:     orderID,
		Product:     product,
		DeliveredAt: l.now().UTC(),
		Content:     content,
	})
}

// RecordUnits records every unit that carries an identity and returns the
// recorded identities. A failing unit is logged and skipped.
func (l *Ledger) RecordUnits(ctx context.Context, units []stock.Unit, userID, orderID, product string) []string {
	var recorded []string
	for _, u := range units {
		id, ok := l.extract(u.Content)
		if !ok {
			continue
		}
		if err := l.Record(ctx, id, userID, orderID, product, u.Content); err != nil {
			log.Printf("[Antipublic] Failed to record %s for order %s: %v", id, orderID, err)
			continue
		}
		recorded = append(recorded, id)
	}
	return recorded
}

// Lookup returns the delivery record of identity, or nil.
func (l *Ledger) Lookup(ctx context.Context, identity string) (*model.DeliveredIdentity, error) {
	if Key(identity) == "" {
		return nil, ErrNoIdentity
	}
	return l.repo.GetDelivered(ctx, identity)
}

// ByUser lists the identities delivered to a user, newest first.
func (l *Ledger) ByUser(ctx context.Context, userID string) ([]model.DeliveredIdentity, error) {
	return l.repo.ListDeliveredByUser(ctx, userID)
}

// Stats aggregates the ledger.
func (l *Ledger) Stats(ctx context.Context) (*model.LedgerStats, error) {
	return l.repo.LedgerStats(ctx)
}

// AddManual records an identity by hand. It refuses identities that are
// already in the ledger.
func (l *Ledger) AddManual(ctx context.Context, identity, userID, orderID, product, content string) error {
	delivered, err := l.IsDelivered(ctx, identity)
	if err != nil {
		return err
	}
	if delivered {
		return fmt.Errorf("%s: %w", identity, ErrAlreadyRecorded)
	}
	if orderID == "" {
		orderID = "MANUAL"
	}
	if product == "" {
		product = "manual"
	}
	if content == "" {
		content = identity
	}
	return l.Record(ctx, identity, userID, orderID, product, content)
}
