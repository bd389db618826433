package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-api/internal/model"
	"fulfillment-api/internal/stock"
)

func testUnits(contents ...string) []stock.Unit {
	out := make([]stock.Unit, len(contents))
	for i, c := range contents {
		out[i] = stock.Unit{Content: c, Index: i}
	}
	return out
}

func testOrder(id string, qty int) model.PendingOrder {
	return model.PendingOrder{OrderID: id, UserID: "user-" + id, Product: "nfa", Quantity: qty}
}

func TestAllocate_ArrivalOrderFairness(t *testing.T) {
	allocs, leftover := Allocate(testUnits("u1", "u2", "u3"), []model.PendingOrder{testOrder("A", 2), testOrder("B", 2)})

	assert.Len(t, allocs, 2)
	assert.Equal(t, []string{"u1", "u2"}, stock.Contents(allocs[0].Units))
	assert.Equal(t, []string{"u3"}, stock.Contents(allocs[1].Units))
	assert.Empty(t, leftover)
}

func TestAllocate_PartialAndEmpty(t *testing.T) {
	allocs, leftover := Allocate(testUnits("u1", "u2", "u3"), []model.PendingOrder{testOrder("A", 5), testOrder("B", 1)})

	assert.Len(t, allocs[0].Units, 3)
	assert.Empty(t, allocs[1].Units)
	assert.Empty(t, leftover)
}

func TestAllocate_Leftover(t *testing.T) {
	units := testUnits("u1", "u2", "u3", "u4")
	allocs, leftover := Allocate(units, []model.PendingOrder{testOrder("A", 1), testOrder("B", 0), testOrder("C", -2)})

	assert.Equal(t, []string{"u1"}, stock.Contents(allocs[0].Units))
	assert.Empty(t, allocs[1].Units)
	assert.Empty(t, allocs[2].Units)
	assert.Equal(t, []string{"u2", "u3", "u4"}, stock.Contents(leftover))

	// the capped slice must not let an append leak into leftover
	_ = append(allocs[0].Units, stock.Unit{Content: "x"})
	assert.Equal(t, "u2", units[1].Content)
}

func TestAllocate_NeverAssignsTwice(t *testing.T) {
	units := testUnits("a", "b", "c", "d", "e", "f", "g")
	orders := []model.PendingOrder{testOrder("A", 3), testOrder("B", 2), testOrder("C", 4), testOrder("D", 1)}

	allocs, leftover := Allocate(units, orders)

	seen := map[string]bool{}
	total := 0
	for _, a := range allocs {
		assert.LessOrEqual(t, len(a.Units), a.Order.Quantity)
		for _, u := range a.Units {
			assert.False(t, seen[u.Content], "unit %s allocated twice", u.Content)
			seen[u.Content] = true
			total++
		}
	}
	assert.Equal(t, len(units), total+len(leftover))
}

func TestAllocate_RepeatedOrderIDGetsNothing(t *testing.T) {
	allocs, leftover := Allocate(testUnits("u1", "u2", "u3"),
		[]model.PendingOrder{testOrder("A", 1), testOrder("A", 1), testOrder("B", 1)})

	require.Len(t, allocs, 2)
	assert.Equal(t, "A", allocs[0].Order.OrderID)
	assert.Equal(t, []string{"u1"}, stock.Contents(allocs[0].Units))
	assert.Equal(t, "B", allocs[1].Order.OrderID)
	assert.Equal(t, []string{"u2"}, stock.Contents(allocs[1].Units))
	assert.Equal(t, []string{"u3"}, stock.Contents(leftover))
}
