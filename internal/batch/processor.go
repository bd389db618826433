package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"fulfillment-api/internal/antipublic"
	"fulfillment-api/internal/cache"
	"fulfillment-api/internal/delivery"
	"fulfillment-api/internal/model"
	"fulfillment-api/internal/notify"
	"fulfillment-api/internal/precheck"
	"fulfillment-api/internal/repository"
	"fulfillment-api/internal/stock"
)

// passError carries the failure kind that ends a pass early.
type passError struct {
	kind   model.FailureKind
	reason string
	err    error
}

func (e *passError) Error() string {
	if e.err == nil {
		return e.reason
	}
	return fmt.Sprintf("%s: %v", e.reason, e.err)
}

func (e *passError) Unwrap() error { return e.err }

func failPass(kind model.FailureKind, reason string, err error) *passError {
	return &passError{kind: kind, reason: reason, err: err}
}

// ProcessorConfig wires the collaborators of a pass.
type ProcessorConfig struct {
	Store     repository.Store
	Ledger    *antipublic.Ledger
	Validator precheck.Validator
	Notifier  notify.Notifier
	Artifacts *delivery.Writer
	Cooldowns *cache.Cooldowns // optional
	StockRoot string
	Threads   int
}

// Processor runs a pass: load, precheck, dedup, allocate, settle.
type Processor struct {
	store     repository.Store
	ledger    *antipublic.Ledger
	validator precheck.Validator
	notifier  notify.Notifier
	artifacts *delivery.Writer
	cooldowns *cache.Cooldowns
	stockRoot string
	threads   int
	now       func() time.Time
}

// NewProcessor creates a pass processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	p := &Processor{
		store:     cfg.Store,
		ledger:    cfg.Ledger,
		validator: cfg.Validator,
		notifier:  cfg.Notifier,
		artifacts: cfg.Artifacts,
		cooldowns: cfg.Cooldowns,
		stockRoot: cfg.StockRoot,
		threads:   cfg.Threads,
		now:       time.Now,
	}
	if p.validator == nil {
		p.validator = precheck.Disabled{}
	}
	if p.notifier == nil {
		p.notifier = notify.Log{}
	}
	return p
}

// pass is the ephemeral state of one run.
type pass struct {
	product *model.Product
	store   stock.Store
	orders  []model.PendingOrder
	settled map[string]bool
	report  Report

	precheckEnabled bool
}

// Run processes a drained batch. Every order ends completed or failed, and
// the product's stock count is recomputed from the store afterwards.
func (p *Processor) Run(ctx context.Context, productName string, orders []model.PendingOrder) (report Report) {
	ps := &pass{
		orders:  orders,
		settled: make(map[string]bool, len(orders)),
		report:  Report{Product: productName, Orders: len(orders)},
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[BatchProcess] Panic in pass for %s: %v\n%s", productName, r, debug.Stack())
			p.failRemaining(ctx, ps, failPass(model.FailureInternal, "internal error", fmt.Errorf("panic: %v", r)))
		}
		p.recount(ctx, productName, ps)
		report = ps.report
	}()

	if err := p.run(ctx, productName, ps); err != nil {
		var pe *passError
		if !errors.As(err, &pe) {
			pe = failPass(model.FailureInternal, "internal error", err)
		}
		log.Printf("[BatchProcess] Pass for %s failed: %v", productName, pe)
		p.failRemaining(ctx, ps, pe)
	}
	return ps.report
}

func (p *Processor) run(ctx context.Context, productName string, ps *pass) error {
	product, err := p.store.GetProduct(ctx, productName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return failPass(model.FailureInternal, fmt.Sprintf("product %s not found", productName), err)
		}
		return failPass(model.FailureStoreIO, "stock store error", err)
	}
	ps.product = product

	st, err := stock.Open(p.stockRoot, product.Name, product.Mode)
	if err != nil {
		return failPass(model.FailureInternal, "invalid product stock configuration", err)
	}
	ps.store = st

	units, err := st.LoadAll(ctx)
	if err != nil {
		return failPass(model.FailureStoreIO, "stock store error", err)
	}
	ps.report.Loaded = len(units)
	log.Printf("[BatchProcess] Loaded %d stock items for %s", len(units), productName)

	valid := units
	if product.RequiresPrecheck() {
		ps.precheckEnabled = true
		if valid, err = p.precheck(ctx, ps, units); err != nil {
			return err
		}
	}

	filtered, err := p.ledger.Filter(ctx, valid)
	if err != nil {
		return failPass(model.FailureStoreIO, "antipublic ledger error", err)
	}
	if len(filtered.Rejected) > 0 {
		ps.report.Duplicates = len(filtered.Rejected)
		log.Printf("[BatchAntipublic] Removing %d already delivered accounts from %s", len(filtered.Rejected), productName)
		if err := st.Reject(ctx, filtered.RejectedUnits(), filtered.Keep); err != nil {
			return failPass(model.FailureStoreIO, "stock store error", err)
		}
	}

	allocs, leftover := Allocate(filtered.Keep, ps.orders)
	ps.report.Leftover = len(leftover)

	if err := p.takeUnits(ctx, st, allocs, leftover); err != nil {
		return failPass(model.FailureStoreIO, "stock store error", err)
	}

	for _, a := range allocs {
		p.settle(ctx, ps, a)
	}
	return nil
}

// precheck drops units the validator rejects, removing them from the store.
// An unreachable validator fails the pass before any unit is touched.
func (p *Processor) precheck(ctx context.Context, ps *pass, units []stock.Unit) ([]stock.Unit, error) {
	if err := p.validator.HealthCheck(ctx); err != nil {
		return nil, failPass(model.FailureValidatorUnavailable, "precheck API unavailable", err)
	}
	if len(units) == 0 {
		return units, nil
	}

	log.Printf("[BatchPrecheck] Validating %d accounts for %s (level %d)", len(units), ps.product.Name, ps.product.PrecheckLevel)
	verdicts, err := p.validator.ValidateBatch(ctx, stock.Contents(units), precheck.Options{
		Level:       ps.product.PrecheckLevel,
		Format:      ps.product.PrecheckFormat,
		Concurrency: p.threads,
	})
	if err != nil {
		return nil, failPass(model.FailureValidatorUnavailable, "precheck API unavailable", err)
	}
	if len(verdicts) != len(units) {
		return nil, failPass(model.FailureValidatorUnavailable, "precheck API unavailable",
			fmt.Errorf("got %d verdicts for %d accounts", len(verdicts), len(units)))
	}

	valid, invalid := precheck.Split(units, verdicts)
	ps.report.Invalid = len(invalid)
	if len(invalid) > 0 {
		log.Printf("[BatchPrecheck] Removing %d invalid accounts from %s", len(invalid), ps.product.Name)
		if err := ps.store.Reject(ctx, invalid, valid); err != nil {
			return nil, failPass(model.FailureStoreIO, "stock store error", err)
		}
	}
	return valid, nil
}

// takeUnits removes allocated units from the store before anything is handed out.
func (p *Processor) takeUnits(ctx context.Context, st stock.Store, allocs []Allocation, leftover []stock.Unit) error {
	if st.Mode() == model.ModeFile {
		var taken []stock.Unit
		for _, a := range allocs {
			taken = append(taken, a.Units...)
		}
		return st.Consume(ctx, taken)
	}
	return st.ReplaceRemaining(ctx, leftover)
}

// recount persists the stock count read back from the store.
func (p *Processor) recount(ctx context.Context, productName string, ps *pass) {
	if ps.store == nil {
		return
	}
	n, err := ps.store.Count(ctx)
	if err != nil {
		log.Printf("[BatchProcess] Failed to count stock for %s: %v", productName, err)
		return
	}
	ps.report.Stock = n
	if err := p.store.UpdateStock(ctx, productName, int64(n)); err != nil {
		log.Printf("[BatchProcess] Failed to update stock for %s: %v", productName, err)
	}
}
