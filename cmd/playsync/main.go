package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mlindegarde/blog--bg-stats/internal/sync"
	"github.com/mlindegarde/blog--bg-stats/pkg/bgg"
	"github.com/mlindegarde/blog--bg-stats/pkg/config"
	"github.com/mlindegarde/blog--bg-stats/pkg/events"
	"github.com/mlindegarde/blog--bg-stats/pkg/logger"
	"github.com/mlindegarde/blog--bg-stats/pkg/retry"
	"github.com/mlindegarde/blog--bg-stats/pkg/server"
	"github.com/mlindegarde/blog--bg-stats/pkg/store"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	l.Info("play sync service initializing", zap.String("env", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize MongoDB
	mongoCtx, mongoCancel := context.WithTimeout(ctx, cfg.MongoDB.ConnectTimeout)
	defer mongoCancel()

	client, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		l.Error("failed to connect to mongodb", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	err = retry.Do(ctx, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return client.Ping(pingCtx, nil)
	}, retry.DefaultOptions())
	if err != nil {
		l.Error("failed to ping mongodb", err)
		os.Exit(1)
	}

	// 4. Initialize components
	mongoStore := store.NewMongoStore(client.Database(cfg.MongoDB.Database), l)
	bggClient := bgg.NewClient(bgg.Config{
		BaseURL:        cfg.BGG.BaseURL,
		RequestTimeout: cfg.BGG.RequestTimeout,
	}, l)

	var notifier events.Notifier = events.NopNotifier{}
	if cfg.Kafka.Enabled {
		kafkaNotifier := events.NewKafkaNotifier(events.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	policy := retry.Policy{
		RateLimitCooldown:     cfg.Sync.RateLimitCooldown,
		FullRetryDelay:        0,
		IncrementalRetryDelay: cfg.Sync.RetryDelay,
	}

	// 5. Create service
	svc := sync.NewService(l, mongoStore, bggClient, notifier, cfg.Sync, policy)

	// 6. Start observability server
	obsServer := server.New(cfg.Metrics.Addr, l, mongoStore)
	go func() {
		if err := obsServer.Start(); err != nil {
			l.Error("observability server failed", err)
		}
	}()

	// 7. Start service
	l.Info("play sync service starting")
	if err := svc.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("play sync service stopping")
		} else {
			l.Error("play sync service failed", err)
		}
	}

	// Clean up observability server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	obsServer.Shutdown(shutdownCtx)
}
