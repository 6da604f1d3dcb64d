package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/balcao-erp/balcao/internal/app"
	"github.com/balcao-erp/balcao/internal/dashboard"
	jobmetrics "github.com/balcao-erp/balcao/internal/jobs"
	"github.com/balcao-erp/balcao/internal/ledger"
	"github.com/balcao-erp/balcao/internal/masterdata/clients"
	"github.com/balcao-erp/balcao/internal/masterdata/products"
	"github.com/balcao-erp/balcao/internal/masterdata/suppliers"
	"github.com/balcao-erp/balcao/internal/observability"
	"github.com/balcao-erp/balcao/internal/platform/db"
	"github.com/balcao-erp/balcao/internal/purchasing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	dashCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, dashCache, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)
	rescanJob := ledger.NewRescanJob(ledgerRepo, dashCache, logger, jobmetrics.NewMetrics(metrics.Registerer()))

	dashRepo := dashboard.NewRepository(pool)
	dashService := dashboard.NewService(dashRepo, dashCache)
	dashHandler := dashboard.NewHandler(logger, dashService)

	clientsHandler := clients.NewHandler(logger, clients.NewService(clients.NewRepository(pool)))
	productsHandler := products.NewHandler(logger, products.NewService(products.NewRepository(pool)))
	suppliersHandler := suppliers.NewHandler(logger, suppliers.NewRepository(pool))

	purchasingService := purchasing.NewService(purchasing.NewRepository(pool), dashCache, logger)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		LedgerHandler:     ledgerHandler,
		DashboardHandler:  dashHandler,
		ClientsHandler:    clientsHandler,
		ProductsHandler:   productsHandler,
		SuppliersHandler:  suppliersHandler,
		PurchasingHandler: purchasingHandler,
		RescanJob:         rescanJob,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
