package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/karthikraju391/go-nats-chat-relay/config"
	"github.com/karthikraju391/go-nats-chat-relay/dispatcher"
	"github.com/karthikraju391/go-nats-chat-relay/fanout"
	"github.com/karthikraju391/go-nats-chat-relay/handlers"
	"github.com/karthikraju391/go-nats-chat-relay/ingest"
	"github.com/karthikraju391/go-nats-chat-relay/nats_service"
	"github.com/karthikraju391/go-nats-chat-relay/registry"
	"github.com/karthikraju391/go-nats-chat-relay/storage"
	"github.com/karthikraju391/go-nats-chat-relay/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("relay stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("relay gracefully stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	db, err := storage.Open(cfg.BadgerPath, cfg.BadgerInMemory)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("badger close failed", zap.Error(err))
		}
	}()

	conns, closeRegistry, err := newRegistry(ctx, cfg, db, logger.Named("registry"))
	if err != nil {
		return err
	}
	defer closeRegistry()
	messages := store.NewBadger(db, cfg.MessageRetention, logger.Named("store"))

	// --- NATS ---
	natsSvc, err := nats_service.NewNatsService(ctx, nats_service.Config{
		URL:              cfg.NatsURL,
		EventsStream:     cfg.EventsStream,
		DeliveriesStream: cfg.DeliveriesStream,
		SubjectPrefix:    cfg.SubjectPrefix,
		AckWait:          cfg.AckWait,
		MaxDeliver:       cfg.MaxDeliver,
	}, logger.Named("nats"))
	if err != nil {
		return err
	}
	defer natsSvc.Close()

	// --- Core ---
	ingestHandler := ingest.NewHandler(conns, messages, natsSvc, logger.Named("ingest"), ingest.Options{
		ConnectionTTL:    cfg.ConnectionTTL,
		OperationTimeout: cfg.OperationTimeout,
	})
	hub := handlers.NewHub(logger.Named("hub"))
	router := fanout.NewRouter(conns, natsSvc, logger.Named("fanout"))
	disp := dispatcher.New(hub, logger.Named("dispatcher"), dispatcher.Options{
		Concurrency: cfg.DispatchConcurrency,
		PushTimeout: cfg.PushTimeout,
	})

	// --- HTTP ---
	app := handlers.NewApp(handlers.Deps{
		Gateway: handlers.NewGateway(ingestHandler, hub, logger.Named("gateway")),
		History: handlers.NewHistoryHandler(messages, cfg.HistoryLimit, logger.Named("history")),
		Ready:   natsSvc.IsConnected,
		Log:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return natsSvc.ConsumeEvents(gctx, router.Handle)
	})
	g.Go(func() error {
		return natsSvc.RunDeliveries(gctx, cfg.DispatchBatchSize, cfg.DispatchMaxWait, disp)
	})
	g.Go(func() error {
		return storage.RunGC(gctx, db, cfg.GCInterval, logger.Named("storage"))
	})
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", cfg.ServerAddr))
		if err := app.Listen(cfg.ServerAddr); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		hub.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newRegistry picks redis when REDIS_ADDR is set and the embedded database otherwise.
func newRegistry(ctx context.Context, cfg *config.Config, db *badger.DB, logger *zap.Logger) (registry.Registry, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("using badger connection registry")
		return registry.NewBadger(db, logger), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("using redis connection registry", zap.String("addr", cfg.RedisAddr))
	return registry.NewRedis(client, logger), func() { _ = client.Close() }, nil
}
