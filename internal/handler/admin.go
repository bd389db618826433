package handler

import (
	"net/http"
	"runtime"
	"time"

	"fulfillment-api/internal/batch"
	"fulfillment-api/internal/service"
	"fulfillment-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// QueueStats reports per-product batch queue state.
type QueueStats interface {
	Stats() []batch.ProductStats
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	orders     *service.OrderService
	queues     QueueStats
	clients    func() int
	storeType  string
	ledgerType string
	cacheType  string
	startTime  time.Time
}

// AdminConfig holds the dependencies of the admin handler.
type AdminConfig struct {
	Orders     *service.OrderService
	Queues     QueueStats
	Clients    func() int // connected event stream clients, optional
	StoreType  string
	LedgerType string
	CacheType  string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	return &AdminHandler{
		orders:     cfg.Orders,
		queues:     cfg.Queues,
		clients:    cfg.Clients,
		storeType:  cfg.StoreType,
		ledgerType: cfg.LedgerType,
		cacheType:  cfg.CacheType,
		startTime:  time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["backends"] = map[string]string{
		"store":  h.storeType,
		"ledger": h.ledgerType,
		"cache":  h.cacheType,
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.queues != nil {
		queues := h.queues.Stats()
		pending := 0
		for _, q := range queues {
			pending += q.Pending
		}
		stats["batch"] = map[string]interface{}{
			"products":       queues,
			"pending_orders": pending,
		}
	}

	if h.clients != nil {
		stats["event_clients"] = h.clients()
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// ClearCooldowns handles DELETE /api/v1/admin/cooldowns and
// DELETE /api/v1/admin/cooldowns/{user_id}
func (h *AdminHandler) ClearCooldowns(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	cleared, err := h.orders.ClearCooldowns(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	scope := userID
	if scope == "" {
		scope = "all"
	}
	response.OK(w, map[string]interface{}{
		"cleared": cleared,
		"scope":   scope,
	})
}
