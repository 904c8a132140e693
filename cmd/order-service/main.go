package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/goldenserzh/sportshop/internal/db"
	"github.com/goldenserzh/sportshop/internal/events"
	httpserver "github.com/goldenserzh/sportshop/internal/http"
	"github.com/goldenserzh/sportshop/internal/inventory"
	"github.com/goldenserzh/sportshop/internal/order"
	"github.com/goldenserzh/sportshop/internal/reservation"
	"github.com/goldenserzh/sportshop/internal/saga"
	"github.com/goldenserzh/sportshop/internal/sequence"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

	ctx := context.Background()

	// --- order storage ---
	var orders order.Store
	var seq sequence.Repository

	if cfg.OrderDBDSN != "" {
		sqlDB := db.MustOpen(cfg.OrderDBDSN)
		defer sqlDB.Close()

		seq = sequence.NewRepository(sqlDB)
		orders = order.NewRepository(sqlDB, seq)
	} else {
		logger.Printf("ORDER_DB_DSN not set, using in-memory order store")
		seq = sequence.NewMemoryRepository()
		orders = order.NewMemoryStore()
	}

	// --- inventory transport ---
	var transport reservation.Transport
	if cfg.InventoryURL != "" {
		transport = reservation.NewHTTPTransport(cfg.InventoryURL)
	} else {
		// Embedded ledger for local runs without an inventory service.
		logger.Printf("INVENTORY_URL not set, using embedded in-memory ledger")
		ledger := inventory.NewMemoryLedger()
		for productID, available := range map[string]int{"p1": 10, "p2": 8, "p3": 5, "p4": 3} {
			if err := ledger.SetAvailable(ctx, productID, available); err != nil {
				logger.Fatalf("seed stock %s: %v", productID, err)
			}
		}
		transport = reservation.NewLedgerTransport(ledger)
	}

	stock := reservation.NewClient(transport, reservation.Config{
		Attempts: cfg.ReserveAttempts,
		Timeout:  cfg.ReserveTimeout,
	}, logger)

	// --- AMQP ---
	var lifecycle saga.Events = saga.NopEvents{}
	if cfg.RabbitURL != "" {
		conn := events.MustDialRabbit(cfg.RabbitURL)
		defer conn.Close()

		pub, err := events.NewPublisher(conn, seq, logger)
		if err != nil {
			logger.Fatalf("events publisher: %v", err)
		}
		defer pub.Close()
		lifecycle = pub
	}

	coord := saga.NewCoordinator(orders, stock, lifecycle, logger)

	// --- HTTP ---
	router := httpserver.NewRouter(coord)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
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

	logger.Printf("shutdown complete")
}

type config struct {
	HTTPAddr        string
	OrderDBDSN      string
	InventoryURL    string
	RabbitURL       string
	ReserveAttempts int
	ReserveTimeout  time.Duration
}

func loadConfig() config {
	return config{
		HTTPAddr:        env("HTTP_ADDR", ":8082"),
		OrderDBDSN:      os.Getenv("ORDER_DB_DSN"),
		InventoryURL:    os.Getenv("INVENTORY_URL"),
		RabbitURL:       os.Getenv("RABBITMQ_URL"),
		ReserveAttempts: envInt("RESERVE_ATTEMPTS", 3),
		ReserveTimeout:  envDuration("RESERVE_TIMEOUT", 2*time.Second),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
