package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"fulfillment-api/internal/antipublic"
	"fulfillment-api/internal/cache"
	"fulfillment-api/internal/delivery"
	"fulfillment-api/internal/model"
	"fulfillment-api/internal/precheck"
	"fulfillment-api/internal/repository"
	"fulfillment-api/internal/stock"
)

// recorder captures notifications.
type recorder struct {
	mu         sync.Mutex
	deliveries []model.Delivery
	err        error
}

func (r *recorder) Notify(ctx context.Context, userID string, d model.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, d)
	return r.err
}

func (r *recorder) all() []model.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Delivery(nil), r.deliveries...)
}

func (r *recorder) byOrder() map[string]model.Delivery {
	out := map[string]model.Delivery{}
	for _, d := range r.all() {
		out[d.OrderID] = d
	}
	return out
}

// stubValidator rejects contents containing "bad".
type stubValidator struct {
	mu        sync.Mutex
	healthErr error
	batchErr  error
	batches   int
}

func (v *stubValidator) HealthCheck(ctx context.Context) error { return v.healthErr }

func (v *stubValidator) ValidateBatch(ctx context.Context, contents []string, opts precheck.Options) ([]precheck.Verdict, error) {
	v.mu.Lock()
	v.batches++
	v.mu.Unlock()
	if v.batchErr != nil {
		return nil, v.batchErr
	}
	out := make([]precheck.Verdict, len(contents))
	for i, c := range contents {
		out[i] = precheck.Verdict{Valid: !strings.Contains(c, "bad")}
	}
	return out, nil
}

type harness struct {
	t         *testing.T
	root      string
	store     *repository.SQLStore
	ledger    *antipublic.Ledger
	validator *stubValidator
	notes     *recorder
	cooldowns *cache.Cooldowns
	proc      *Processor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	store, err := repository.NewSQLiteStore(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ledgerRepo, err := repository.NewSQLiteLedger(filepath.Join(dir, "antipublic.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledgerRepo.Close() })

	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })

	h := &harness{
		t:         t,
		root:      filepath.Join(dir, "stock"),
		store:     store,
		ledger:    antipublic.NewLedger(ledgerRepo),
		validator: &stubValidator{},
		notes:     &recorder{},
		cooldowns: cache.NewCooldowns(mem),
	}
	h.proc = NewProcessor(ProcessorConfig{
		Store:     store,
		Ledger:    h.ledger,
		Validator: h.validator,
		Notifier:  h.notes,
		Artifacts: delivery.NewWriter(filepath.Join(dir, "orders")),
		Cooldowns: h.cooldowns,
		StockRoot: h.root,
		Threads:   4,
	})
	return h
}

func (h *harness) product(p model.Product, units ...string) {
	h.t.Helper()
	ctx := context.Background()
	require.NoError(h.t, h.store.UpsertProduct(ctx, &p))

	st, err := stock.Open(h.root, p.Name, p.Mode)
	require.NoError(h.t, err)
	if len(units) > 0 {
		add := make([]stock.Unit, len(units))
		for i, u := range units {
			add[i] = stock.Unit{Content: u, Name: "unit.txt"}
		}
		_, err = st.Add(ctx, add)
		require.NoError(h.t, err)
	}
	n, err := st.Count(ctx)
	require.NoError(h.t, err)
	require.NoError(h.t, h.store.UpdateStock(ctx, p.Name, int64(n)))
}

func (h *harness) order(id, product string, qty int) model.PendingOrder {
	h.t.Helper()
	require.NoError(h.t, h.store.CreateOrder(context.Background(), &model.Order{
		ID: id, UserID: "user-" + id, ProductName: product, Quantity: qty, Mode: model.ModeLine,
	}))
	return model.PendingOrder{OrderID: id, UserID: "user-" + id, Product: product, Quantity: qty}
}

func (h *harness) units(product string, mode model.InventoryMode) []string {
	h.t.Helper()
	st, err := stock.Open(h.root, product, mode)
	require.NoError(h.t, err)
	units, err := st.LoadAll(context.Background())
	require.NoError(h.t, err)
	return stock.Contents(units)
}

func (h *harness) rawFile(product string) string {
	h.t.Helper()
	data, err := os.ReadFile(filepath.Join(h.root, product+".txt"))
	if errors.Is(err, os.ErrNotExist) {
		return ""
	}
	require.NoError(h.t, err)
	return string(data)
}

func (h *harness) orderState(id string) *model.Order {
	h.t.Helper()
	o, err := h.store.GetOrder(context.Background(), id)
	require.NoError(h.t, err)
	return o
}

func (h *harness) stock(product string) int64 {
	h.t.Helper()
	p, err := h.store.GetProduct(context.Background(), product)
	require.NoError(h.t, err)
	return p.Stock
}
