package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tastebudhq/storefront-backend/api/routes"
	"github.com/tastebudhq/storefront-backend/internal/cart"
	"github.com/tastebudhq/storefront-backend/internal/checkout"
	"github.com/tastebudhq/storefront-backend/internal/notifications"
	"github.com/tastebudhq/storefront-backend/internal/orders"
	"github.com/tastebudhq/storefront-backend/internal/products"
	"github.com/tastebudhq/storefront-backend/internal/stock"
	"github.com/tastebudhq/storefront-backend/internal/users"
	"github.com/tastebudhq/storefront-backend/pkg/auth/session"
	"github.com/tastebudhq/storefront-backend/pkg/config"
	"github.com/tastebudhq/storefront-backend/pkg/db"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
	"github.com/tastebudhq/storefront-backend/pkg/metrics"
	"github.com/tastebudhq/storefront-backend/pkg/migrate"
	"github.com/tastebudhq/storefront-backend/pkg/outbox"
	"github.com/tastebudhq/storefront-backend/pkg/paystack"
	"github.com/tastebudhq/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	verifier, err := paystack.NewClient(cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	productsRepo := products.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), productsRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Repository: checkout.NewRepository(dbClient.DB()),
		CartRepo:   cart.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Ledger:     stock.NewLedger(),
		Verifier:   verifier,
		Outbox:     outboxService,
		Users:      users.NewRepository(dbClient.DB()),
		Delivery:   cfg.Delivery,
		Metrics:    metrics.NewCheckoutMetrics(registry),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:               cfg,
			Logger:               logg,
			DB:                   dbClient,
			Redis:                redisClient,
			Sessions:             sessionManager,
			CartService:          cartService,
			CheckoutService:      checkoutService,
			OrdersService:        ordersService,
			NotificationsService: notificationsService,
			MetricsHandler:       metrics.Handler(registry),
		}),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
