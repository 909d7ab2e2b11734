package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/avrebrov/store-api/internal/cache"
	"github.com/avrebrov/store-api/internal/config"
	"github.com/avrebrov/store-api/internal/database"
	"github.com/avrebrov/store-api/internal/handler"
	"github.com/avrebrov/store-api/internal/httpapi"
	"github.com/avrebrov/store-api/internal/kafka"
	"github.com/avrebrov/store-api/internal/observability"
	"github.com/avrebrov/store-api/internal/pkg/breaker"
	"github.com/avrebrov/store-api/internal/pkg/pool"
	"github.com/avrebrov/store-api/internal/service"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	db, err := database.NewPool(ctx, cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("postgres connect failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("schema migration failed", zap.Error(err))
	}

	userRepo := database.NewUserRepo(db)
	productRepo := database.NewProductRepo(db)
	orderRepo := database.NewOrderRepo(db)

	// Cache
	var store cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		rdb, err := cache.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("redis connect failed", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		store = rdb
	default:
		mem, err := cache.NewMemory(cfg.Cache.Cap)
		if err != nil {
			logger.Fatal("memory cache init failed", zap.Error(err))
		}
		store = mem
	}

	metrics := observability.NewInmem(256)

	// Services
	users := service.NewUserService(userRepo, store, cfg.Cache.UserTTL, logger, metrics)
	products := service.NewProductService(productRepo, store, cfg.Cache.ProductTTL, logger, metrics)
	orders := service.NewOrderService(orderRepo, store, cfg.Cache.OrderTTL, logger, metrics)

	if cfg.Cache.Warm > 0 {
		warmers := pool.New(4)
		users.Warm(ctx, cfg.Cache.Warm, warmers)
		products.Warm(ctx, cfg.Cache.Warm, warmers)
		warmers.Close()
		warmers.Wait()
		logger.Info("cache warm-up finished", zap.Int("per_entity", cfg.Cache.Warm))
	}

	// Kafka
	for _, topic := range []string{cfg.Kafka.OrderTopic, cfg.Kafka.ProductTopic} {
		if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, topic, 3, 1, logger); err != nil {
			logger.Fatal("topic ensure failed", zap.String("topic", topic), zap.Error(err))
		}
	}

	orderHandler := handler.NewOrderHandler(orders, breaker.New(cfg.Breaker), cfg.Retry, logger, metrics)
	productHandler := handler.NewProductHandler(products, breaker.New(cfg.Breaker), cfg.Retry, logger, metrics)

	orderReader := kafka.NewReader(cfg.Kafka, cfg.Kafka.OrderTopic)
	defer func() { _ = orderReader.Close() }()
	productReader := kafka.NewReader(cfg.Kafka, cfg.Kafka.ProductTopic)
	defer func() { _ = productReader.Close() }()

	go kafka.NewConsumer(orderHandler, orderReader, cfg.Kafka.Workers, logger).Start(ctx)
	go kafka.NewConsumer(productHandler, productReader, cfg.Kafka.Workers, logger).Start(ctx)

	// HTTP
	srv := httpapi.New(users, orders, products, metrics, logger, metrics)
	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
