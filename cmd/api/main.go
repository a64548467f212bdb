package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bastianns/tubes-lasti-t08/api/routes"
	"github.com/bastianns/tubes-lasti-t08/internal/auth"
	"github.com/bastianns/tubes-lasti-t08/internal/cart"
	"github.com/bastianns/tubes-lasti-t08/internal/inventory"
	"github.com/bastianns/tubes-lasti-t08/internal/reports"
	"github.com/bastianns/tubes-lasti-t08/internal/transactions"
	"github.com/bastianns/tubes-lasti-t08/internal/users"
	"github.com/bastianns/tubes-lasti-t08/pkg/auth/session"
	"github.com/bastianns/tubes-lasti-t08/pkg/config"
	"github.com/bastianns/tubes-lasti-t08/pkg/db"
	"github.com/bastianns/tubes-lasti-t08/pkg/logger"
	"github.com/bastianns/tubes-lasti-t08/pkg/metrics"
	"github.com/bastianns/tubes-lasti-t08/pkg/migrate"
	"github.com/bastianns/tubes-lasti-t08/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
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

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(registry)

	inventoryService, err := inventory.NewService(inventory.NewRepository(dbClient.DB()), engineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	transactionService, err := transactions.NewService(dbClient, transactions.NewRepository(dbClient.DB()), inventoryService, engineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction service", err)
		os.Exit(1)
	}

	reportService, err := reports.NewService(dbClient.DB(), inventoryService)
	if err != nil {
		logg.Error(context.Background(), "failed to create report service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(redisClient, inventoryService, transactionService, cfg.Cart)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
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
			Config:           cfg,
			Logger:           logg,
			DB:               dbClient,
			Redis:            redisClient,
			Sessions:         sessionManager,
			MetricsGatherer:  registry,
			AuthService:      authService,
			InventoryService: inventoryService,
			TransactionSvc:   transactionService,
			ReportService:    reportService,
			CartService:      cartService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
