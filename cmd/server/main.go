package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/config"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/coupon"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/handlers"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/pricing"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/repository"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/service"
	"github.com/Lixing-Zhang/furniture-store/backend/pkg/logger"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting furniture store api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.LogLevel,
		"order_store", cfg.Store.Driver,
	)

	ctx := context.Background()

	coupons, err := loadCoupons(ctx, cfg.Coupon, log)
	if err != nil {
		log.Error("failed to load coupon data", "error", err)
		os.Exit(1)
	}

	orders, err := openOrderStore(ctx, cfg.Store, log)
	if err != nil {
		log.Error("failed to open order store", "error", err)
		os.Exit(1)
	}
	defer orders.Close()

	// Initialize repositories
	productRepo := repository.NewInMemoryProductRepository()

	// Initialize services
	engine := pricing.NewEngine(pricing.Policy{
		FreeShippingThresholdCents: cfg.Pricing.FreeShippingThresholdCents,
		ShippingFeeCents:           cfg.Pricing.ShippingFeeCents,
	})
	productService := service.NewProductService(productRepo)
	orderService := service.NewOrderService(productRepo, coupons, orders, engine, log)

	router := handlers.NewRouter(handlers.Routes{
		Health:  handlers.NewHealthHandler(log, orders),
		Product: handlers.NewProductHandler(productService, log),
		Coupon:  handlers.NewCouponHandler(coupons, log),
		Order:   handlers.NewOrderHandler(orderService, log),
	}, cfg.Auth, log)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}

	log.Info("server stopped gracefully")
}

// loadCoupons fills the directory from the configured sources, or with the
// demo coupons when none are configured.
func loadCoupons(ctx context.Context, cfg config.CouponConfig, log *slog.Logger) (*coupon.Directory, error) {
	directory := coupon.NewDirectory()

	if len(cfg.Sources) == 0 {
		log.Info("no coupon sources configured, seeding demo coupons")
		if err := directory.SeedDefaults(); err != nil {
			return nil, err
		}
	} else {
		log.Info("loading coupon data...", "sources", len(cfg.Sources))
		if err := directory.LoadSources(ctx, cfg.Sources); err != nil {
			return nil, err
		}
	}

	stats := directory.GetStats()
	log.Info("coupon data loaded successfully",
		"total_sources", stats["total_sources"],
		"total_coupons", stats["total_coupons"],
		"active_coupons", stats["active_coupons"],
	)
	return directory, nil
}

func openOrderStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (repository.OrderRepository, error) {
	if cfg.Driver != config.StorePostgres {
		return repository.NewInMemoryOrderRepository(), nil
	}

	creds := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	repo, err := repository.NewPostgresOrderRepository(connectCtx, creds)
	if err != nil {
		return nil, err
	}
	if err := repo.RunMigrations(creds); err != nil {
		repo.Close()
		return nil, err
	}

	log.Info("connected to postgres order store", "host", cfg.DBHost, "db", cfg.DBName)
	return repo, nil
}
