package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sondaumoi/storechain-backend/api/routes"
	"github.com/sondaumoi/storechain-backend/internal/cart"
	checkoutsvc "github.com/sondaumoi/storechain-backend/internal/checkout"
	internalorders "github.com/sondaumoi/storechain-backend/internal/orders"
	"github.com/sondaumoi/storechain-backend/internal/shipping"
	"github.com/sondaumoi/storechain-backend/internal/stock"
	"github.com/sondaumoi/storechain-backend/internal/stores"
	"github.com/sondaumoi/storechain-backend/pkg/config"
	"github.com/sondaumoi/storechain-backend/pkg/db"
	"github.com/sondaumoi/storechain-backend/pkg/instance"
	"github.com/sondaumoi/storechain-backend/pkg/logger"
	"github.com/sondaumoi/storechain-backend/pkg/metrics"
	"github.com/sondaumoi/storechain-backend/pkg/migrate"
	"github.com/sondaumoi/storechain-backend/pkg/outbox"
	"github.com/sondaumoi/storechain-backend/pkg/redis"
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

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)

	storeService, err := stores.NewService(stores.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create store service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	selectionRepo := cart.NewSelectionRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, selectionRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	var booker internalorders.ShipmentBooker
	if cfg.Carrier.BaseURL != "" && cfg.Carrier.Token != "" {
		carrierClient, carrierErr := shipping.NewCarrierClient(cfg.Carrier, logg)
		if carrierErr != nil {
			logg.Error(context.Background(), "failed to create carrier client", carrierErr)
			os.Exit(1)
		}
		booker = carrierClient
	} else {
		logg.Warn(context.Background(), "carrier credentials missing, carrier shipping disabled")
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	orderService, err := internalorders.NewService(
		internalorders.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		storeService,
		cart.NewClearer(cartRepo, selectionRepo),
		booker,
		orderMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	paypalClient, err := checkoutsvc.NewPayPalClient(cfg.PayPal, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal client", err)
		os.Exit(1)
	}
	checkoutService, err := checkoutsvc.NewService(selectionRepo, orderService, paypalClient, orderMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Metrics:  registry,
			Stores:   storeService,
			Stock:    stock.NewRepository(dbClient.DB()),
			Cart:     cartService,
			Orders:   orderService,
			Checkout: checkoutService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
