package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"fulfillment-api/internal/config"
	"fulfillment-api/internal/model"
	"fulfillment-api/internal/repository"
	"fulfillment-api/internal/stock"
)

// Exclusor runs fn while no batch pass for product is running.
type Exclusor interface {
	Exclusive(ctx context.Context, product string, fn func(ctx context.Context) error) error
}

// RestockResult reports the outcome of a restock.
type RestockResult struct {
	Product string `json:"product"`
	Added   int    `json:"added"`
	Stock   int64  `json:"stock"`
}

// ProductService manages products and their file-backed stock.
type ProductService struct {
	store     repository.Store
	excl      Exclusor
	stockRoot string
}

// NewProductService creates a product service.
func NewProductService(store repository.Store, excl Exclusor, stockRoot string) *ProductService {
	return &ProductService{store: store, excl: excl, stockRoot: stockRoot}
}

func validateProduct(p *model.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := stock.ValidateName(p.Name); err != nil {
		return fmt.Errorf("%w: name %q cannot be used as a stock file name", ErrInvalidProduct, p.Name)
	}
	if p.Mode == "" {
		p.Mode = model.ModeLine
	}
	if !p.Mode.Valid() {
		return fmt.Errorf("%w: mode must be %q or %q", ErrInvalidProduct, model.ModeLine, model.ModeFile)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if p.CooldownSeconds < 0 {
		return fmt.Errorf("%w: cooldown must not be negative", ErrInvalidProduct)
	}
	if p.PrecheckLevel < model.PrecheckNone || p.PrecheckLevel > model.PrecheckReputation {
		return fmt.Errorf("%w: precheck level must be between %d and %d",
			ErrInvalidProduct, model.PrecheckNone, model.PrecheckReputation)
	}
	switch p.PrecheckFormat {
	case "":
		p.PrecheckFormat = model.PrecheckFormatEmailPass
	case model.PrecheckFormatEmailPass, model.PrecheckFormatToken, model.PrecheckFormatCookie:
	default:
		return fmt.Errorf("%w: unknown precheck format %q", ErrInvalidProduct, p.PrecheckFormat)
	}
	return nil
}

// Upsert creates or replaces a product and refreshes its stock count from disk.
func (s *ProductService) Upsert(ctx context.Context, p *model.Product) (*model.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	p.Stock = 0
	if err := s.store.UpsertProduct(ctx, p); err != nil {
		return nil, err
	}
	if _, err := s.sync(ctx, p.Name); err != nil {
		return nil, err
	}
	return s.store.GetProduct(ctx, p.Name)
}

// Get returns a product with its cached stock count.
func (s *ProductService) Get(ctx context.Context, name string) (*model.Product, error) {
	return s.store.GetProduct(ctx, name)
}

// List returns every product.
func (s *ProductService) List(ctx context.Context) ([]model.Product, error) {
	return s.store.ListProducts(ctx)
}

// Delete removes a product and its stock files.
func (s *ProductService) Delete(ctx context.Context, name string) error {
	p, err := s.store.GetProduct(ctx, name)
	if err != nil {
		return err
	}
	return s.excl.Exclusive(ctx, name, func(ctx context.Context) error {
		if err := s.store.DeleteProduct(ctx, name); err != nil {
			return err
		}
		if err := stock.Remove(s.stockRoot, name, p.Mode); err != nil {
			return fmt.Errorf("remove stock of %s: %w", name, err)
		}
		log.Printf("[ProductService] Deleted product %s", name)
		return nil
	})
}

// Restock appends units to a product's stock while no pass runs for it.
func (s *ProductService) Restock(ctx context.Context, name string, units []stock.Unit) (*RestockResult, error) {
	p, err := s.store.GetProduct(ctx, name)
	if err != nil {
		return nil, err
	}

	res := &RestockResult{Product: name}
	err = s.excl.Exclusive(ctx, name, func(ctx context.Context) error {
		st, err := stock.Open(s.stockRoot, name, p.Mode)
		if err != nil {
			return err
		}
		if res.Added, err = st.Add(ctx, units); err != nil {
			return fmt.Errorf("add stock to %s: %w", name, err)
		}
		n, err := st.Count(ctx)
		if err != nil {
			return err
		}
		res.Stock = int64(n)
		return s.store.UpdateStock(ctx, name, res.Stock)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ProductService] Restocked %s with %d units (stock: %d)", name, res.Added, res.Stock)
	return res, nil
}

// sync recounts one product and persists the count when it changed.
func (s *ProductService) sync(ctx context.Context, name string) (*model.StockSyncResult, error) {
	var result *model.StockSyncResult
	err := s.excl.Exclusive(ctx, name, func(ctx context.Context) error {
		p, err := s.store.GetProduct(ctx, name)
		if err != nil {
			return err
		}
		st, err := stock.Open(s.stockRoot, name, p.Mode)
		if err != nil {
			return err
		}
		n, err := st.Count(ctx)
		if err != nil {
			return err
		}
		if int64(n) == p.Stock {
			return nil
		}
		if err := s.store.UpdateStock(ctx, name, int64(n)); err != nil {
			return err
		}
		result = &model.StockSyncResult{
			Name:       name,
			OldStock:   p.Stock,
			NewStock:   int64(n),
			Difference: int64(n) - p.Stock,
		}
		return nil
	})
	return result, err
}

// SyncAll recounts every product from disk and returns the ones whose
// cached count was corrected.
func (s *ProductService) SyncAll(ctx context.Context) ([]model.StockSyncResult, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	results := []model.StockSyncResult{}
	var errs []error
	for _, p := range products {
		r, err := s.sync(ctx, p.Name)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return results, err
			}
			errs = append(errs, fmt.Errorf("sync %s: %w", p.Name, err))
			continue
		}
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, errors.Join(errs...)
}

// SeedCatalog upserts every catalog product. Invalid entries are logged and skipped.
func (s *ProductService) SeedCatalog(ctx context.Context, catalog config.Catalog) (int, error) {
	seeded := 0
	for _, cp := range catalog.Products {
		p := &model.Product{
			Name:            cp.Name,
			Price:           cp.Price,
			CooldownSeconds: cp.CooldownSeconds,
			Mode:            model.InventoryMode(cp.Mode),
			PrecheckLevel:   cp.PrecheckLevel,
			PrecheckFormat:  cp.PrecheckFormat,
		}
		if _, err := s.Upsert(ctx, p); err != nil {
			if errors.Is(err, ErrInvalidProduct) {
				log.Printf("[ProductService] Skipping catalog entry %q: %v", cp.Name, err)
				continue
			}
			return seeded, err
		}
		seeded++
	}
	return seeded, nil
}
