package service

import (
	"context"
	"log"
	"sync"
	"time"

	"fulfillment-api/internal/model"
)

// StockSyncConfig holds configuration for the stock sync scheduler.
type StockSyncConfig struct {
	// Interval is how often every product is recounted.
	// Default: 10 minutes
	Interval time.Duration

	// InitialDelay is the wait before the first run after Start.
	// Default: 1 minute
	InitialDelay time.Duration

	// Timeout bounds a single run.
	// Default: 5 minutes
	Timeout time.Duration
}

// Syncer recounts stock and reports the corrected products.
type Syncer interface {
	SyncAll(ctx context.Context) ([]model.StockSyncResult, error)
}

// StockSyncScheduler periodically reconciles cached stock counts with the stock files.
type StockSyncScheduler struct {
	syncer    Syncer
	config    StockSyncConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewStockSyncScheduler creates a new stock sync scheduler.
func NewStockSyncScheduler(syncer Syncer, config StockSyncConfig) *StockSyncScheduler {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Minute
	}
	if config.InitialDelay < 0 {
		config.InitialDelay = 0
	} else if config.InitialDelay == 0 {
		config.InitialDelay = time.Minute
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}

	return &StockSyncScheduler{
		syncer: syncer,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (s *StockSyncScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[StockSync] Started - Interval: %v", s.config.Interval)

	go func() {
		select {
		case <-time.After(s.config.InitialDelay):
			s.runSync()
		case <-s.stopCh:
		}
	}()

	go s.run()
}

// run is the main sync loop.
func (s *StockSyncScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runSync()
		case <-s.stopCh:
			log.Printf("[StockSync] Stopped")
			return
		}
	}
}

func (s *StockSyncScheduler) runSync() {
	results, err := s.RunNow()
	if err != nil {
		log.Printf("[StockSync] Error during sync: %v", err)
	}
	for _, r := range results {
		log.Printf("[StockSync] %s: %d -> %d (%+d)", r.Name, r.OldStock, r.NewStock, r.Difference)
	}
	if err == nil && len(results) == 0 {
		log.Printf("[StockSync] All stock counts in sync")
	}
}

// Stop stops the scheduler.
func (s *StockSyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate sync run.
func (s *StockSyncScheduler) RunNow() ([]model.StockSyncResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	return s.syncer.SyncAll(ctx)
}
