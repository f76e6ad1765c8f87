package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tupmarket/marketplace-backend/api/routes"
	"github.com/tupmarket/marketplace-backend/internal/addresses"
	"github.com/tupmarket/marketplace-backend/internal/cart"
	"github.com/tupmarket/marketplace-backend/internal/delivery"
	"github.com/tupmarket/marketplace-backend/internal/orders"
	"github.com/tupmarket/marketplace-backend/internal/products"
	"github.com/tupmarket/marketplace-backend/internal/sellers"
	"github.com/tupmarket/marketplace-backend/internal/settlement"
	"github.com/tupmarket/marketplace-backend/internal/users"
	invoicewebhook "github.com/tupmarket/marketplace-backend/internal/webhooks/invoice"
	"github.com/tupmarket/marketplace-backend/pkg/config"
	"github.com/tupmarket/marketplace-backend/pkg/db"
	"github.com/tupmarket/marketplace-backend/pkg/lalamove"
	"github.com/tupmarket/marketplace-backend/pkg/logger"
	"github.com/tupmarket/marketplace-backend/pkg/metrics"
	"github.com/tupmarket/marketplace-backend/pkg/migrate"
	"github.com/tupmarket/marketplace-backend/pkg/redis"
	"github.com/tupmarket/marketplace-backend/pkg/xendit"
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
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	lalamoveClient, err := lalamove.NewClient(cfg.Lalamove, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create lalamove client", err)
		os.Exit(1)
	}

	xenditClient, err := xendit.NewClient(cfg.Xendit, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create xendit client", err)
		os.Exit(1)
	}

	productRepo := products.NewRepository(dbClient.DB())
	sellerRepo := sellers.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	addressRepo := addresses.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())

	cartService := cart.NewService(cartRepo, productRepo, logg)
	addressService := addresses.NewService(addressRepo, logg)
	orderService := orders.NewService(orderRepo, productRepo, logg)
	deliveryGateway := delivery.NewGateway(lalamoveClient, cfg.Checkout, cfg.Lalamove, logg, paymentMetrics)

	settlementService := settlement.NewService(
		dbClient,
		cartRepo,
		userRepo,
		addressRepo,
		deliveryGateway,
		xenditClient,
		orderRepo,
		cfg.Checkout,
		logg,
		paymentMetrics,
	)

	webhookGuard, err := invoicewebhook.NewIdempotencyGuard(redisClient, cfg.Xendit.WebhookDedupTTL, "invoice")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	invoiceWebhookService, err := invoicewebhook.NewService(invoicewebhook.ServiceParams{
		TransactionRunner: dbClient,
		OrderRepo:         orderRepo,
		ProductRepo:       productRepo,
		SellerRepo:        sellerRepo,
		CartRepo:          cartRepo,
		Guard:             webhookGuard,
		Logger:            logg,
		Metrics:           paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			DBPinger:        dbClient,
			RedisPinger:     redisClient,
			CartService:     cartService,
			AddressService:  addressService,
			DeliveryGateway: deliveryGateway,
			OrderService:    orderService,
			Settlement:      settlementService,
			InvoiceWebhook:  invoiceWebhookService,
			CallbackTokens:  xenditClient,
			Registry:        registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
