package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fulfillment-api/internal/antipublic"
	"fulfillment-api/internal/batch"
	"fulfillment-api/internal/cache"
	"fulfillment-api/internal/config"
	"fulfillment-api/internal/delivery"
	"fulfillment-api/internal/handler"
	"fulfillment-api/internal/middleware"
	"fulfillment-api/internal/notify"
	"fulfillment-api/internal/precheck"
	"fulfillment-api/internal/repository"
	"fulfillment-api/internal/router"
	"fulfillment-api/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Starting %s v%s...", cfg.App.Name, cfg.App.Version)
	log.Printf("Environment: %s", cfg.App.Environment)
	if cfg.App.Debug {
		log.Printf("Config: store=%s ledger=%s cache=%s stock=%s orders=%s debounce=%s",
			cfg.Store.Type, cfg.Ledger.Type, cfg.Cache.Type, cfg.Stock.Root, cfg.Stock.OrdersDir, cfg.Stock.Debounce)
	}

	// Order/product store
	var store *repository.SQLStore
	var err error
	switch cfg.Store.Type {
	case "postgres", "postgresql":
		store, err = repository.NewPostgresStore(cfg.Store.PostgresDSN())
	default: // sqlite
		store, err = repository.NewSQLiteStore(cfg.Store.Path)
	}
	if err != nil {
		log.Fatalf("Failed to initialize store (%s): %v", cfg.Store.Type, err)
	}
	defer store.Close()
	log.Printf("Store initialized (%s)", cfg.Store.Type)

	// Antipublic ledger
	var ledgerRepo *repository.SQLLedger
	switch cfg.Ledger.Type {
	case "mysql":
		ledgerRepo, err = repository.NewMySQLLedger(cfg.Ledger.DSN())
	default: // sqlite
		ledgerRepo, err = repository.NewSQLiteLedger(cfg.Ledger.Path)
	}
	if err != nil {
		log.Fatalf("Failed to initialize antipublic ledger (%s): %v", cfg.Ledger.Type, err)
	}
	defer ledgerRepo.Close()
	ledger := antipublic.NewLedger(ledgerRepo)
	log.Printf("Antipublic ledger initialized (%s)", cfg.Ledger.Type)

	// Cooldown cache
	var c cache.Cache
	cacheType := cfg.Cache.Type
	if cacheType == "redis" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisPrefix,
		})
		if err != nil {
			log.Printf("Warning: Redis connection failed, using memory cache: %v", err)
		} else {
			c = rc
			log.Println("Redis cache initialized")
		}
	}
	if c == nil {
		c = cache.NewMemoryCache()
		cacheType = "memory"
	}
	defer c.Close()
	cooldowns := cache.NewCooldowns(c)

	// Validator
	var validator precheck.Validator = precheck.Disabled{}
	if cfg.Precheck.URL != "" {
		validator = precheck.NewClient(precheck.ClientConfig{
			BaseURL:           cfg.Precheck.URL,
			Timeout:           cfg.Precheck.Timeout,
			RequestsPerSecond: cfg.Precheck.RequestsPerSecond,
			DefaultThreads:    cfg.Precheck.Threads,
		})
		log.Printf("Precheck validator at %s", cfg.Precheck.URL)
	} else {
		log.Println("Precheck validator not configured; prechecked products will fail their passes")
	}

	// Notifications
	hub := notify.NewHub()
	notifier := notify.Multi{
		notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Prefixes()...),
		notify.NewPurchaseLog(cfg.Notify.LogWebhookURL),
		hub,
		notify.Log{},
	}

	// Batch pipeline
	processor := batch.NewProcessor(batch.ProcessorConfig{
		Store:     store,
		Ledger:    ledger,
		Validator: validator,
		Notifier:  notifier,
		Artifacts: delivery.NewWriter(cfg.Stock.OrdersDir),
		Cooldowns: cooldowns,
		StockRoot: cfg.Stock.Root,
		Threads:   cfg.Precheck.Threads,
	})
	coordinator := batch.NewCoordinator(processor, cfg.Stock.Debounce)

	// Services
	orderService := service.NewOrderService(store, coordinator, cooldowns, cfg.Stock.MaxQuantity)
	if exempt := cfg.Stock.CooldownExemptUsers(); len(exempt) > 0 {
		orderService.SetCooldownExempt(exempt)
		log.Printf("Cooldowns disabled for %d configured users", len(exempt))
	}
	productService := service.NewProductService(store, coordinator, cfg.Stock.Root)

	if cfg.Stock.CatalogFile != "" {
		catalog, err := config.LoadCatalog(cfg.Stock.CatalogFile)
		if err != nil {
			log.Fatalf("Failed to load product catalog: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		n, err := productService.SeedCatalog(ctx, catalog)
		cancel()
		if err != nil {
			log.Fatalf("Failed to seed product catalog: %v", err)
		}
		log.Printf("Seeded %d products from %s", n, cfg.Stock.CatalogFile)
	}

	var scheduler *service.StockSyncScheduler
	if cfg.StockSync.Enabled {
		scheduler = service.NewStockSyncScheduler(productService, service.StockSyncConfig{
			Interval: cfg.StockSync.Interval,
		})
		scheduler.Start()
	}

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Name, cfg.App.Version,
		handler.ReadyCheck{Name: "store", Check: store.Ping},
		handler.ReadyCheck{Name: "ledger", Check: ledgerRepo.Ping},
	)
	adminHandler := handler.NewAdminHandler(handler.AdminConfig{
		Orders:     orderService,
		Queues:     coordinator,
		Clients:    hub.Clients,
		StoreType:  cfg.Store.Type,
		LedgerType: cfg.Ledger.Type,
		CacheType:  cacheType,
	})

	adminKeys := cfg.App.APIKeys()
	if len(adminKeys) == 0 {
		log.Println("Warning: ADMIN_API_KEYS is empty, admin endpoints are disabled")
	}

	// Create router
	r := router.New(router.Config{
		Handler:           healthHandler,
		OrderHandler:      handler.NewOrderHandler(orderService),
		ProductHandler:    handler.NewProductHandler(productService),
		AdminHandler:      adminHandler,
		AntipublicHandler: handler.NewAntipublicHandler(ledger),
		Events:            hub.HandleWS,
		AdminMiddleware:   middleware.NewAPIKeyMiddleware(adminKeys),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop()
	}

	// Stop taking orders, then drain queued ones before the stores close.
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := drainPasses(coordinator, cfg.Server.ShutdownTimeout, cfg.Server.DrainGrace); err != nil {
		log.Printf("Coordinator shutdown error: %v", err)
	}
	hub.Close()

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
