package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-api/internal/config"
	"fulfillment-api/internal/model"
	"fulfillment-api/internal/repository"
	"fulfillment-api/internal/stock"
)

func newProductService(t *testing.T) (*ProductService, *repository.SQLStore, *inlineExclusor, string) {
	t.Helper()
	store := newTestStore(t)
	excl := &inlineExclusor{}
	root := filepath.Join(t.TempDir(), "stock")
	return NewProductService(store, excl, root), store, excl, root
}

func TestProductUpsert_Validation(t *testing.T) {
	svc, _, _, _ := newProductService(t)

	bad := []model.Product{
		{Name: ""},
		{Name: "../etc"},
		{Name: "a/b"},
		{Name: "nfa", Mode: "zip"},
		{Name: "nfa", Price: -1},
		{Name: "nfa", CooldownSeconds: -5},
		{Name: "nfa", PrecheckLevel: 3},
		{Name: "nfa", PrecheckFormat: "json"},
	}
	for _, p := range bad {
		p := p
		_, err := svc.Upsert(context.Background(), &p)
		assert.ErrorIs(t, err, ErrInvalidProduct, "product %+v", p)
	}
}

func TestProductUpsert_DefaultsAndCount(t *testing.T) {
	ctx := context.Background()
	svc, _, _, root := newProductService(t)

	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "nfa.txt"), []byte("a\nb\n\nc\n"), 0o644))

	p, err := svc.Upsert(ctx, &model.Product{Name: " nfa ", Price: 1.5, PrecheckLevel: model.PrecheckCredential})
	require.NoError(t, err)
	assert.Equal(t, "nfa", p.Name)
	assert.Equal(t, model.ModeLine, p.Mode)
	assert.Equal(t, model.PrecheckFormatEmailPass, p.PrecheckFormat)
	assert.EqualValues(t, 3, p.Stock)

	// replacing settings keeps the stock count
	p, err = svc.Upsert(ctx, &model.Product{Name: "nfa", Price: 3, Stock: 999})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, p.Price, 1e-9)
	assert.EqualValues(t, 3, p.Stock)
}

func TestProductRestock_LineMode(t *testing.T) {
	ctx := context.Background()
	svc, store, excl, root := newProductService(t)
	_, err := svc.Upsert(ctx, &model.Product{Name: "nfa"})
	require.NoError(t, err)

	res, err := svc.Restock(ctx, "nfa", []stock.Unit{{Content: "a:b:c\n\n d:e:f \n"}, {Content: "g:h:i"}})
	require.NoError(t, err)
	assert.Equal(t, &RestockResult{Product: "nfa", Added: 3, Stock: 3}, res)
	assert.Contains(t, excl.products, "nfa")

	data, err := os.ReadFile(filepath.Join(root, "nfa.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a:b:c\nd:e:f\ng:h:i\n", string(data))

	p, err := store.GetProduct(ctx, "nfa")
	require.NoError(t, err)
	assert.EqualValues(t, 3, p.Stock)
}

func TestProductRestock_FileMode(t *testing.T) {
	ctx := context.Background()
	svc, _, _, root := newProductService(t)
	_, err := svc.Upsert(ctx, &model.Product{Name: "cookies", Mode: model.ModeFile})
	require.NoError(t, err)

	res, err := svc.Restock(ctx, "cookies", []stock.Unit{{Name: "a.txt", Content: "1"}, {Name: "a.txt", Content: "2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.EqualValues(t, 2, res.Stock)

	entries, err := os.ReadDir(filepath.Join(root, "cookies"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestProductRestock_UnknownProduct(t *testing.T) {
	svc, _, _, _ := newProductService(t)
	_, err := svc.Restock(context.Background(), "ghost", []stock.Unit{{Content: "x"}})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProductDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, _, root := newProductService(t)
	_, err := svc.Upsert(ctx, &model.Product{Name: "nfa"})
	require.NoError(t, err)
	_, err = svc.Restock(ctx, "nfa", []stock.Unit{{Content: "x"}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "nfa"))
	assert.NoFileExists(t, filepath.Join(root, "nfa.txt"))

	_, err = svc.Get(ctx, "nfa")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "nfa"), repository.ErrNotFound)
}

func TestProductSyncAll(t *testing.T) {
	ctx := context.Background()
	svc, store, _, root := newProductService(t)
	for _, name := range []string{"a", "b"} {
		_, err := svc.Upsert(ctx, &model.Product{Name: name})
		require.NoError(t, err)
		_, err = svc.Restock(ctx, name, []stock.Unit{{Content: "1\n2"}})
		require.NoError(t, err)
	}

	// stock edited behind the service's back
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("1\n2\n3\n4\n5\n"), 0o644))

	results, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.StockSyncResult{{Name: "b", OldStock: 2, NewStock: 5, Difference: 3}}, results)

	p, err := store.GetProduct(ctx, "b")
	require.NoError(t, err)
	assert.EqualValues(t, 5, p.Stock)

	results, err = svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSeedCatalog(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newProductService(t)

	n, err := svc.SeedCatalog(ctx, config.Catalog{Products: []config.CatalogProduct{
		{Name: "nfa", Price: 1, CooldownSeconds: 30, Mode: "line"},
		{Name: "cookies", Price: 2, Mode: "file", PrecheckLevel: 1, PrecheckFormat: "cookie"},
		{Name: "broken", Mode: "zip"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	products, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "cookies", products[0].Name)
	assert.Equal(t, model.PrecheckFormatCookie, products[0].PrecheckFormat)
	assert.EqualValues(t, 30, products[1].CooldownSeconds)
}
