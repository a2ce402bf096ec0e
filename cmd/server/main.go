package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/uniform-inventory/internal/adapter/handler"
	"github.com/rl1809/uniform-inventory/internal/adapter/messaging"
	"github.com/rl1809/uniform-inventory/internal/adapter/storage"
	"github.com/rl1809/uniform-inventory/internal/config"
	"github.com/rl1809/uniform-inventory/internal/core/service"
	"github.com/rl1809/uniform-inventory/internal/logger"
	"github.com/rl1809/uniform-inventory/internal/port"
	"github.com/rl1809/uniform-inventory/internal/worker"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var store port.Store
	var closers []func() error
	switch cfg.StoreDriver {
	case config.StoreMemory:
		store = storage.NewMemoryAdapter()
		log.Warn("using in-memory store, data is lost on exit")
	case config.StoreMySQL:
		db, err := storage.OpenMySQL(ctx, cfg.MySQLDSN, cfg.DBMaxOpenConns)
		if err != nil {
			log.Fatal("failed to connect mysql", zap.Error(err))
		}
		closers = append(closers, db.Close)
		store = storage.NewMySQLAdapter(db)
		log.Info("connected to mysql", zap.Int("max_open_conns", cfg.DBMaxOpenConns))
	default:
		log.Fatal("unknown STORE_DRIVER", zap.String("driver", cfg.StoreDriver))
	}

	// Redis idempotency keys are optional
	var cache port.CacheRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 20})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		closers = append(closers, rdb.Close)
		cache = storage.NewRedisAdapter(rdb)
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	// Services
	ledger := service.NewLedger()
	auth := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTTTL)
	stock := service.NewStockService(store, ledger, service.NewMovementRecorder(), log, cfg.TxTimeout)
	sales := service.NewSaleCoordinator(store, ledger, cache, log, cfg.TxTimeout)
	svc := handler.Services{
		Auth:    auth,
		Catalog: service.NewCatalogService(store),
		Stock:   stock,
		Sales:   sales,
		Reports: service.NewReportService(store),
	}

	var wg sync.WaitGroup

	// Outbox relay
	if len(cfg.KafkaBrokers) > 0 {
		publisher := messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, publisher.Close)
		relay := worker.NewOutboxRelay(store, publisher, log, cfg.OutboxInterval, cfg.OutboxBatch)

		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Start(ctx)
		}()
	} else {
		log.Info("KAFKA_BROKERS not set, outbox events stay pending")
	}

	// gRPC server
	grpcServer := handler.NewGRPCServer(handler.NewGRPCHandler(stock, sales), auth, log)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// HTTP server
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.NewHTTPHandler(svc, log).Routes(),
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	cancel()
	wg.Wait()
	log.Info("workers stopped")

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}
	log.Info("connections closed")
}
