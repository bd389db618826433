package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"fulfillment-api/internal/cache"
	"fulfillment-api/internal/model"
	"fulfillment-api/internal/repository"
)

type fakeQueue struct {
	mu     sync.Mutex
	orders []model.PendingOrder
	err    error
}

func (q *fakeQueue) Enqueue(o model.PendingOrder) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.orders = append(q.orders, o)
	return nil
}

// inlineExclusor runs fn directly and records which products were locked.
type inlineExclusor struct {
	mu       sync.Mutex
	products []string
}

func (e *inlineExclusor) Exclusive(ctx context.Context, product string, fn func(ctx context.Context) error) error {
	e.mu.Lock()
	e.products = append(e.products, product)
	e.mu.Unlock()
	return fn(ctx)
}

func newTestStore(t *testing.T) *repository.SQLStore {
	t.Helper()
	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestCooldowns(t *testing.T) *cache.Cooldowns {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	return cache.NewCooldowns(mem)
}

func seedProduct(t *testing.T, store repository.Store, p model.Product) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.UpsertProduct(ctx, &p))
	require.NoError(t, store.UpdateStock(ctx, p.Name, p.Stock))
}
