package batch

import (
	"log"

	"fulfillment-api/internal/model"
	"fulfillment-api/internal/stock"
)

// Allocation is the set of units assigned to one order.
type Allocation struct {
	Order model.PendingOrder
	Units []stock.Unit
}

// Allocate hands units to orders greedily in arrival order. Each order takes
// up to its quantity from the front of units; whatever is not taken is
// returned as leftover. An order id that repeats within the batch gets no
// allocation, so every allocated unit belongs to exactly one settled order.
// Neither input is modified.
func Allocate(units []stock.Unit, orders []model.PendingOrder) ([]Allocation, []stock.Unit) {
	allocs := make([]Allocation, 0, len(orders))
	seen := make(map[string]bool, len(orders))
	next := 0
	for _, o := range orders {
		if seen[o.OrderID] {
			log.Printf("[BatchAllocate] Skipping duplicate order %s in batch for %s", o.OrderID, o.Product)
			continue
		}
		seen[o.OrderID] = true

		take := min(max(o.Quantity, 0), len(units)-next)
		allocs = append(allocs, Allocation{Order: o, Units: units[next : next+take : next+take]})
		next += take
	}
	return allocs, units[next:]
}
