package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goldenserzh/sportshop/internal/catalog"
	"github.com/goldenserzh/sportshop/internal/db"
	"github.com/goldenserzh/sportshop/internal/events"
	"github.com/goldenserzh/sportshop/internal/httpapi"
	"github.com/goldenserzh/sportshop/internal/inventory"
	"github.com/goldenserzh/sportshop/internal/sequence"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- storage ---
	var ledger inventory.Ledger
	var products catalog.Repository

	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logger.Fatalf("db connect: %v", err)
		}
		defer pool.Close()

		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
				logger.Fatalf("db migrate: %v", err)
			}
		}

		ledger = inventory.NewPostgresLedger(pool)
		products = catalog.NewPostgresRepository(pool)
	} else {
		logger.Printf("DATABASE_DSN not set, using in-memory storage")
		ledger = inventory.NewMemoryLedger()
		products = catalog.NewMemoryRepository()
	}

	if cfg.SeedDemoData {
		seedDemoData(ctx, logger, ledger, products)
	}

	// --- AMQP ---
	var notifier httpapi.StockNotifier
	if cfg.RabbitURL != "" {
		conn := events.MustDialRabbit(cfg.RabbitURL)
		defer conn.Close()

		pub, err := events.NewPublisher(conn, sequence.NewMemoryRepository(), logger)
		if err != nil {
			logger.Fatalf("events publisher: %v", err)
		}
		defer pub.Close()
		notifier = pub
	}

	// --- HTTP ---
	inv := httpapi.NewInventoryHandler(ledger, notifier)
	cat := httpapi.NewCatalogHandler(products, ledger)
	r := httpapi.NewRouter(inv, cat)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("shutdown signal: %s", sig)
	case err := <-errCh:
		logger.Printf("fatal error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	logger.Printf("shutdown complete")
}

func seedDemoData(ctx context.Context, logger *log.Logger, ledger inventory.Ledger, products catalog.Repository) {
	demo := []struct {
		product catalog.Product
		stock   int
	}{
		{catalog.Product{ID: "p1", Name: "Football", Price: 15.0, Category: "football"}, 10},
		{catalog.Product{ID: "p2", Name: "Tennis Racket", Price: 45.0, Category: "tennis"}, 8},
		{catalog.Product{ID: "p3", Name: "Running Shoes", Price: 79.0, Category: "running"}, 5},
		{catalog.Product{ID: "p4", Name: "Yoga Mat", Price: 22.0, Category: "fitness"}, 3},
	}

	for _, d := range demo {
		if _, err := ledger.Peek(ctx, d.product.ID); err == nil {
			continue // already seeded
		}
		if err := products.Create(ctx, d.product); err != nil {
			logger.Printf("seed product %s: %v", d.product.ID, err)
		}
		if err := ledger.SetAvailable(ctx, d.product.ID, d.stock); err != nil {
			logger.Printf("seed stock %s: %v", d.product.ID, err)
		}
	}
}

type config struct {
	HTTPAddr      string
	DatabaseDSN   string
	RunMigrations bool
	RabbitURL     string
	SeedDemoData  bool
}

func loadConfig() config {
	return config{
		HTTPAddr:      env("HTTP_ADDR", ":8081"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		RunMigrations: envBool("RUN_MIGRATIONS", true),
		RabbitURL:     os.Getenv("RABBITMQ_URL"),
		SeedDemoData:  envBool("SEED_DEMO_DATA", true),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
