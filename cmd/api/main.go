package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/api/routes"
	"github.com/metricmind/performancecore-backend/internal/aggregate"
	"github.com/metricmind/performancecore-backend/internal/campaigns"
	"github.com/metricmind/performancecore-backend/internal/schedulers"
	"github.com/metricmind/performancecore-backend/internal/schedulers/snapshot"
	"github.com/metricmind/performancecore-backend/internal/snapshots"
	"github.com/metricmind/performancecore-backend/internal/sources"
	"github.com/metricmind/performancecore-backend/pkg/config"
	"github.com/metricmind/performancecore-backend/pkg/db"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/metrics"
	"github.com/metricmind/performancecore-backend/pkg/migrate"
	"github.com/metricmind/performancecore-backend/pkg/outbox"
	"github.com/metricmind/performancecore-backend/pkg/redis"
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
	schedulerMetrics := metrics.NewSchedulerMetrics(registry)

	gormDB := dbClient.DB()
	campaignRepo := campaigns.NewRepository(gormDB)
	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)

	store, err := snapshots.NewStore(dbClient, gormDB, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot store", err)
		os.Exit(1)
	}

	aggregator := aggregate.NewAggregator(campaignSources(gormDB, logg, schedulerMetrics), logg, cfg.Scheduler.SourceTimeout)

	// The API shares the scheduler's snapshot path but never starts the loop;
	// manual triggers run through the same gate as scheduled cycles.
	snapshotService, err := snapshot.NewService(snapshot.ServiceParams{
		Logger:     logg,
		Campaigns:  campaignRepo,
		Aggregator: aggregator,
		Store:      store,
		Metrics:    schedulerMetrics,
		Frequency:  cfg.Scheduler.Frequency(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot service", err)
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
			Pingers:         []redis.Pinger{dbClient, redisClient},
			Supervisor:      schedulers.NewSupervisor(logg, snapshotService),
			Campaigns:       campaignRepo,
			SnapshotTrigger: snapshotService,
			FrequencySetter: snapshotService,
			MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func campaignSources(gormDB *gorm.DB, logg *logger.Logger, m *metrics.SchedulerMetrics) []sources.Source {
	raw := []sources.Source{
		sources.NewAdsImportSource(gormDB),
		sources.NewIntegrationSource(gormDB),
		sources.NewAnalyticsSource(gormDB),
		sources.NewLedgerSource(gormDB),
	}
	guarded := make([]sources.Source, 0, len(raw))
	for _, src := range raw {
		guarded = append(guarded, sources.Guard(src, logg, m, "snapshot"))
	}
	return guarded
}
