package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/coach-settlement/internal/adapters/gateway"
	"github.com/DanielPopoola/coach-settlement/internal/adapters/handler"
	"github.com/DanielPopoola/coach-settlement/internal/adapters/notify"
	"github.com/DanielPopoola/coach-settlement/internal/adapters/postgres"
	"github.com/DanielPopoola/coach-settlement/internal/config"
	"github.com/DanielPopoola/coach-settlement/internal/core/service"
	"github.com/DanielPopoola/coach-settlement/internal/metrics"
	"github.com/DanielPopoola/coach-settlement/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting settlement service",
		"env", cfg.Primary.Env,
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ledger := postgres.NewLedgerRepository(db)
	catalog := postgres.NewCatalogRepository(db)
	tx := postgres.NewTransactionCoordinator(db)

	gatewayClient := gateway.NewRetryClient(gateway.NewHTTPClient(cfg.Gateway), cfg.Retry)

	sinks := []notify.Sink{notify.NewLogSink(logger)}
	if cfg.Redis.Enabled {
		rdb, err := notify.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		sinks = append(sinks, notify.NewRedisStreamSink(rdb, cfg.Redis))
	}
	dispatcher := notify.NewDispatcher(cfg.Notification, logger, sinks...)
	dispatcher.Start(ctx)

	settler := service.NewDefaultSettlementEngine(tx, catalog, logger)
	captureService := service.NewCaptureService(ledger, gatewayClient, settler, dispatcher, cfg.Gateway.KeySecret, logger)
	refundService := service.NewRefundService(tx, gatewayClient, dispatcher, logger)
	orderService := service.NewOrderService(ledger, catalog, gatewayClient, cfg.Gateway.KeyID, logger)
	queryService := service.NewQueryService(ledger)
	webhooks := service.NewWebhookDispatcher(captureService, refundService, cfg.Gateway.WebhookSecret, logger)

	h := handler.NewPaymentHandler(handler.Services{
		Orders:   orderService,
		Verify:   captureService,
		Webhooks: webhooks,
		Refunds:  refundService,
		Query:    queryService,
		Health:   db,
	}, handler.Options{
		SignatureHeader: cfg.Gateway.SignatureHeader,
		MaxWebhookBytes: cfg.Server.MaxWebhookBytes,
	}, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(registry)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux, handler.NewAdminAuth(cfg.Auth.AdminJWTSecret, logger).Middleware)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr: "0.0.0.0:" + cfg.Server.Port,
		Handler: handler.Chain(mux,
			handler.Recovery(logger),
			handler.Timeout(cfg.Server.RequestTimeout, handler.WebhookPath),
			handler.Logging(logger),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	reconcilerDone := make(chan struct{})
	if cfg.Reconciler.Enabled {
		reconciler := worker.NewReconciler(ledger, settler, cfg.Reconciler, logger)
		go func() {
			defer close(reconcilerDone)
			if err := reconciler.Start(workerCtx); err != nil {
				logger.Error("reconciler stopped", "error", err)
			}
		}()
	} else {
		close(reconcilerDone)
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	cancelWorkers()
	<-reconcilerDone
	dispatcher.Stop()

	logger.Info("server exited")
}
