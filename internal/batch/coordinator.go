// Package batch groups purchase requests per product and runs them through
// one processing pass at a time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"fulfillment-api/internal/model"
)

// ErrCoordinatorClosed is returned by Enqueue after Close.
var ErrCoordinatorClosed = errors.New("batch coordinator closed")

// DefaultDebounce is how long a product collects orders before a pass starts.
const DefaultDebounce = time.Second

// State is the scheduling state of one product.
type State string

const (
	StateIdle       State = "idle"
	StateScheduled  State = "scheduled"
	StateProcessing State = "processing"
)

// Runner processes one drained batch of orders for a product.
// It must settle every order it is given.
type Runner interface {
	Run(ctx context.Context, product string, orders []model.PendingOrder) Report
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, product string, orders []model.PendingOrder) Report

func (f RunnerFunc) Run(ctx context.Context, product string, orders []model.PendingOrder) Report {
	return f(ctx, product, orders)
}

// productQueue is the per-product actor state. Fields other than sem are
// guarded by Coordinator.mu.
type productQueue struct {
	name    string
	state   State
	pending []model.PendingOrder
	timer   *time.Timer

	// sem is held by a running pass and by Exclusive callers.
	sem chan struct{}

	passes     int64
	lastPassAt time.Time
	lastReport *Report
}

// ProductStats describes one product's queue.
type ProductStats struct {
	Product    string    `json:"product"`
	State      State     `json:"state"`
	Pending    int       `json:"pending"`
	Passes     int64     `json:"passes"`
	LastPassAt time.Time `json:"last_pass_at,omitempty"`
	LastReport *Report   `json:"last_report,omitempty"`
}

// Coordinator owns the pending queues of every product.
type Coordinator struct {
	runner   Runner
	debounce time.Duration

	mu       sync.Mutex
	products map[string]*productQueue
	closed   bool

	// wg counts armed timers and running passes.
	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator. A non-positive debounce uses DefaultDebounce.
func NewCoordinator(runner Runner, debounce time.Duration) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Coordinator{
		runner:   runner,
		debounce: debounce,
		products: make(map[string]*productQueue),
	}
}

// queue returns the product's queue, creating it. Caller holds c.mu.
func (c *Coordinator) queue(product string) *productQueue {
	q, ok := c.products[product]
	if !ok {
		q = &productQueue{name: product, state: StateIdle, sem: make(chan struct{}, 1)}
		c.products[product] = q
	}
	return q
}

// Enqueue adds an order to its product's pending list. The first order to
// reach an idle product arms the debounce timer; later orders ride along.
func (c *Coordinator) Enqueue(order model.PendingOrder) error {
	if order.Product == "" {
		return fmt.Errorf("order %s has no product", order.OrderID)
	}
	if order.EnqueuedAt.IsZero() {
		order.EnqueuedAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCoordinatorClosed
	}

	q := c.queue(order.Product)
	q.pending = append(q.pending, order)
	log.Printf("[Coordinator] Queued %s for %s (queue size: %d, state: %s)",
		order.OrderID, order.Product, len(q.pending), q.state)

	if q.state == StateIdle {
		q.state = StateScheduled
		c.arm(q)
	}
	return nil
}

// arm schedules the next pass. Caller holds c.mu.
func (c *Coordinator) arm(q *productQueue) {
	c.wg.Add(1)
	q.timer = time.AfterFunc(c.debounce, func() { c.fire(q) })
}

// fire drains the queue and runs one pass.
func (c *Coordinator) fire(q *productQueue) {
	defer c.wg.Done()

	c.mu.Lock()
	if q.state != StateScheduled {
		c.mu.Unlock()
		return
	}
	q.state = StateProcessing
	q.timer = nil
	orders := q.pending
	q.pending = nil
	c.mu.Unlock()

	q.sem <- struct{}{}
	report := c.runPass(q.name, orders)
	<-q.sem

	c.mu.Lock()
	defer c.mu.Unlock()

	q.passes++
	q.lastPassAt = time.Now()
	q.lastReport = &report

	if len(q.pending) == 0 {
		q.state = StateIdle
		return
	}
	log.Printf("[Coordinator] %d orders arrived for %s during the pass, scheduling next batch", len(q.pending), q.name)
	q.state = StateScheduled
	if c.closed {
		c.wg.Add(1)
		go c.fire(q)
		return
	}
	c.arm(q)
}

// runPass calls the runner, turning a panic into a failed report so the
// state transition after it always happens.
func (c *Coordinator) runPass(product string, orders []model.PendingOrder) (report Report) {
	start := time.Now()
	log.Printf("[Coordinator] Starting pass for %s - %d orders", product, len(orders))

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Coordinator] Pass for %s panicked: %v\n%s", product, r, debug.Stack())
			report = Report{Product: product, Orders: len(orders), Failure: model.FailureInternal}
		}
		log.Printf("[Coordinator] Finished pass for %s in %s: %s", product, time.Since(start), report.String())
	}()

	return c.runner.Run(context.Background(), product, orders)
}

// Exclusive runs fn while no pass for product is running, and keeps passes
// out until fn returns.
func (c *Coordinator) Exclusive(ctx context.Context, product string, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	q := c.queue(product)
	c.mu.Unlock()

	select {
	case q.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-q.sem }()

	return fn(ctx)
}

// Stats returns a snapshot of every known product, sorted by name.
func (c *Coordinator) Stats() []ProductStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ProductStats, 0, len(c.products))
	for _, q := range c.products {
		out = append(out, ProductStats{
			Product:    q.name,
			State:      q.state,
			Pending:    len(q.pending),
			Passes:     q.passes,
			LastPassAt: q.lastPassAt,
			LastReport: q.lastReport,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product < out[j].Product })
	return out
}

// Close stops accepting orders, starts every scheduled pass immediately and
// waits for all passes to finish or ctx to end.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	for _, q := range c.products {
		if q.state == StateScheduled && q.timer != nil && q.timer.Stop() {
			go c.fire(q)
		}
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("[Coordinator] All passes finished")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
