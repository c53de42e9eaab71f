package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/internal/aggregate"
	"github.com/metricmind/performancecore-backend/internal/campaigns"
	"github.com/metricmind/performancecore-backend/internal/schedulers"
	"github.com/metricmind/performancecore-backend/internal/schedulers/kpi"
	"github.com/metricmind/performancecore-backend/internal/schedulers/refresh"
	"github.com/metricmind/performancecore-backend/internal/schedulers/reports"
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
	logg := logger.New(logger.Options{ServiceName: "scheduler-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "scheduler-worker"

	logg = logger.New(logger.Options{
		ServiceName: "scheduler-worker",
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

	snapshotLock, err := schedulers.NewRedisLock(redisClient, redisClient.SchedulerLockKey("snapshot"), cfg.Scheduler.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot lock", err)
		os.Exit(1)
	}

	snapshotService, err := snapshot.NewService(snapshot.ServiceParams{
		Logger:     logg,
		Campaigns:  campaignRepo,
		Aggregator: aggregator,
		Store:      store,
		Lock:       snapshotLock,
		Metrics:    schedulerMetrics,
		Frequency:  cfg.Scheduler.Frequency(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot scheduler", err)
		os.Exit(1)
	}

	kpiService, err := kpi.NewService(kpi.ServiceParams{
		Logger:      logg,
		DB:          gormDB,
		Tx:          dbClient,
		Snapshots:   store,
		Emitter:     emitter,
		Metrics:     schedulerMetrics,
		Interval:    cfg.KPI.Interval,
		AtRiskRatio: cfg.KPI.AtRiskRatio,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create kpi scheduler", err)
		os.Exit(1)
	}

	reportService, err := reports.NewService(reports.ServiceParams{
		Logger:   logg,
		DB:       gormDB,
		Tx:       dbClient,
		Emitter:  emitter,
		Metrics:  schedulerMetrics,
		Interval: cfg.Reports.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create report scheduler", err)
		os.Exit(1)
	}

	refreshService, err := refresh.NewService(refresh.ServiceParams{
		Logger:     logg,
		DB:         gormDB,
		Metrics:    schedulerMetrics,
		Interval:   cfg.Refresh.Interval,
		StaleAfter: cfg.Refresh.StaleAfter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refresh scheduler", err)
		os.Exit(1)
	}

	supervisor := schedulers.NewSupervisor(logg, snapshotService, kpiService, reportService, refreshService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting scheduler worker")

	supervisor.StartAll(ctx)

	go serveMetrics(ctx, cfg, logg, registry)

	<-ctx.Done()
	supervisor.StopAll()
	logg.Info(ctx, "scheduler worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, cfg *config.Config, logg *logger.Logger, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: ":" + cfg.App.Port, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
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
