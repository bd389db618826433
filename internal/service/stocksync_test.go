package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-api/internal/model"
)

type countingSyncer struct {
	calls atomic.Int32
}

func (s *countingSyncer) SyncAll(ctx context.Context) ([]model.StockSyncResult, error) {
	s.calls.Add(1)
	return []model.StockSyncResult{{Name: "nfa", OldStock: 1, NewStock: 2, Difference: 1}}, nil
}

func TestStockSyncScheduler_Runs(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewStockSyncScheduler(syncer, StockSyncConfig{Interval: 10 * time.Millisecond, InitialDelay: -1})

	s.Start()
	s.Start()
	require.Eventually(t, func() bool { return syncer.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	stopped := syncer.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, syncer.calls.Load(), stopped+1)
}

func TestStockSyncScheduler_RunNow(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewStockSyncScheduler(syncer, StockSyncConfig{})

	results, err := s.RunNow()
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.EqualValues(t, 1, syncer.calls.Load())
}
