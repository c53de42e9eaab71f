package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/metricmind/performancecore-backend/pkg/config"
	"github.com/metricmind/performancecore-backend/pkg/db"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/migrate"
	"github.com/metricmind/performancecore-backend/pkg/outbox"
	"github.com/metricmind/performancecore-backend/pkg/outbox/registry"
	"github.com/metricmind/performancecore-backend/pkg/pubsub"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	requireResource(ctx, logg, "database ping", dbClient.Ping(ctx))
	requireResource(ctx, logg, "pubsub ping", pubsubClient.Ping(ctx))

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	requireResource(ctx, logg, "event registry", err)

	snapshotTopic, err := newTopicPublisher(pubsubClient.SnapshotPublisher())
	requireResource(ctx, logg, "snapshot topic", err)

	dispatcher, err := NewDispatcher(DispatcherParams{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Queue:     outbox.NewRepository(dbClient.DB()),
		DLQ:       outbox.NewDLQRepository(dbClient.DB()),
		Resolver:  eventRegistry,
		Publisher: snapshotTopic,
	})
	requireResource(ctx, logg, "outbox dispatcher", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg.Info(runCtx, "outbox publisher starting")
	if err := dispatcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped with error", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
