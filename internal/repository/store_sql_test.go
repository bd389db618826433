package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-api/internal/model"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE b = ? AND c IN (?, ?)`
	assert.Equal(t, q, dialectSQLite.rebind(q))
	assert.Equal(t, q, dialectMySQL.rebind(q))
	assert.Equal(t, `SELECT a FROM t WHERE b = $1 AND c IN ($2, $3)`, dialectPostgres.rebind(q))
}

func TestSQLStore_Products(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetProduct(ctx, "nfa")
	assert.ErrorIs(t, err, ErrNotFound)

	p := &model.Product{Name: "nfa", Price: 0.5, CooldownSeconds: 60, Mode: model.ModeLine, PrecheckLevel: 1, PrecheckFormat: model.PrecheckFormatEmailPass}
	require.NoError(t, s.UpsertProduct(ctx, p))
	require.NoError(t, s.UpdateStock(ctx, "nfa", 12))

	// settings change keeps the stock count
	p.Price = 0.75
	p.Stock = 0
	require.NoError(t, s.UpsertProduct(ctx, p))

	got, err := s.GetProduct(ctx, "nfa")
	require.NoError(t, err)
	assert.Equal(t, 0.75, got.Price)
	assert.Equal(t, int64(12), got.Stock)
	assert.Equal(t, model.ModeLine, got.Mode)
	assert.Equal(t, int64(60), got.CooldownSeconds)
	assert.Equal(t, 1, got.PrecheckLevel)
	assert.Equal(t, time.UTC, got.CreatedAt.Location())

	require.NoError(t, s.UpsertProduct(ctx, &model.Product{Name: "cookies", Mode: model.ModeFile}))
	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "cookies", list[0].Name)

	require.NoError(t, s.DeleteProduct(ctx, "cookies"))
	assert.ErrorIs(t, s.DeleteProduct(ctx, "cookies"), ErrNotFound)
}

func TestSQLStore_Orders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	o := &model.Order{ID: "ORDER-1", UserID: "u1", ProductName: "nfa", Quantity: 5, TotalCost: 2.5, Mode: model.ModeLine}
	require.NoError(t, s.CreateOrder(ctx, o))
	assert.Equal(t, model.OrderProcessing, o.Status)

	got, err := s.GetOrder(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderProcessing, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, 5, got.Quantity)

	require.NoError(t, s.UpdateOrderStatus(ctx, "ORDER-1", model.OrderCompleted, 3, "partial_supply"))
	got, err = s.GetOrder(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, got.Status)
	assert.Equal(t, 3, got.Delivered)
	assert.Equal(t, "partial_supply", got.Reason)
	require.NotNil(t, got.CompletedAt)

	assert.ErrorIs(t, s.UpdateOrderStatus(ctx, "missing", model.OrderFailed, 0, ""), ErrNotFound)
	_, err = s.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	older := &model.Order{ID: "ORDER-0", UserID: "u1", ProductName: "nfa", Quantity: 1, Mode: model.ModeLine,
		CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.CreateOrder(ctx, older))

	orders, err := s.ListOrdersByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ORDER-1", orders[0].ID)
}

func TestSQLStore_Cooldowns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, err := s.GetCooldown(ctx, "u1", "nfa")
	require.NoError(t, err)
	assert.Nil(t, c)

	first := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	require.NoError(t, s.SetCooldown(ctx, "u1", "nfa", first))
	second := first.Add(time.Minute)
	require.NoError(t, s.SetCooldown(ctx, "u1", "nfa", second))
	require.NoError(t, s.SetCooldown(ctx, "u1", "cookies", first))
	require.NoError(t, s.SetCooldown(ctx, "u2", "nfa", first))

	c, err = s.GetCooldown(ctx, "u1", "nfa")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, second.Equal(c.LastPurchase))

	n, err := s.ClearUserCooldowns(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.ClearAllCooldowns(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
