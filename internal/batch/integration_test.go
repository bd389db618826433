package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-api/internal/model"
)

func TestCoordinatorWithProcessor_NoUnitDeliveredTwice(t *testing.T) {
	h := newHarness(t)
	var units []string
	for i := 0; i < 6; i++ {
		units = append(units, fmt.Sprintf("mail%d@x.io:pw:Player%d", i, i))
	}
	h.product(lineProduct("nfa"), units...)

	c := NewCoordinator(h.proc, 100*time.Millisecond)

	orders := make([]model.PendingOrder, 10)
	for i := range orders {
		orders[i] = h.order(fmt.Sprintf("O%02d", i), "nfa", 1)
	}

	var wg sync.WaitGroup
	for _, o := range orders {
		o := o
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Enqueue(o))
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return len(h.notes.all()) == len(orders) }, 5*time.Second, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))

	st := c.Stats()
	require.Len(t, st, 1)
	assert.Equal(t, int64(1), st[0].Passes)

	seen := map[string]bool{}
	delivered, failed := 0, 0
	for _, d := range h.notes.all() {
		for _, content := range d.Contents {
			assert.False(t, seen[content], "%s delivered twice", content)
			seen[content] = true
		}
		delivered += d.Delivered
		if d.Outcome == model.OutcomeFailed {
			failed++
		}
	}
	assert.Equal(t, 6, delivered)
	assert.Equal(t, 4, failed)
	assert.Empty(t, h.units("nfa", model.ModeLine))
	assert.Equal(t, int64(0), h.stock("nfa"))

	stats, err := h.ledger.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.TotalDelivered)
}

func TestCoordinatorWithProcessor_StoreIOErrorReleasesProduct(t *testing.T) {
	h := newHarness(t)
	h.product(lineProduct("nfa"))
	h.breakStock("nfa")

	c := NewCoordinator(h.proc, testDebounce)
	require.NoError(t, c.Enqueue(h.order("A", "nfa", 1)))
	require.NoError(t, c.Enqueue(h.order("B", "nfa", 1)))

	require.Eventually(t, func() bool { return len(h.notes.all()) == 2 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		st := c.Stats()
		return len(st) == 1 && st[0].State == StateIdle
	}, time.Second, 5*time.Millisecond)

	st := c.Stats()[0]
	require.NotNil(t, st.LastReport)
	assert.Equal(t, model.FailureStoreIO, st.LastReport.Failure)
	assert.Equal(t, model.OrderFailed, h.orderState("A").Status)
	assert.Equal(t, model.OrderFailed, h.orderState("B").Status)

	// the product is free again: restock-style exclusive work gets in at once
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Exclusive(ctx, "nfa", func(ctx context.Context) error { return nil }))
	require.NoError(t, c.Close(ctx))
}
