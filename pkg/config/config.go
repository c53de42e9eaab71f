package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/metricmind/performancecore-backend/pkg/enums"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Scheduler    SchedulerConfig
	KPI          KPIConfig
	Reports      ReportsConfig
	Refresh      RefreshConfig
	GCP          GCPConfig
	BigQuery     BigQueryConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Scheduler.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PERFCORE_APP_ENV" required:"true"`
	Port         string `envconfig:"PERFCORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PERFCORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PERFCORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PERFCORE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PERFCORE_DB_DSN"`
	Driver string `envconfig:"PERFCORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PERFCORE_DB_HOST"`
	LegacyPort     int    `envconfig:"PERFCORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PERFCORE_DB_USER"`
	LegacyPassword string `envconfig:"PERFCORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"PERFCORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"PERFCORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PERFCORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PERFCORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PERFCORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PERFCORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PERFCORE_REDIS_URL"`
	Address      string        `envconfig:"PERFCORE_REDIS_ADDR"`
	Password     string        `envconfig:"PERFCORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PERFCORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PERFCORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PERFCORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PERFCORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PERFCORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PERFCORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite       bool `envconfig:"PERFCORE_USE_SQLITE" default:"false"`
	AutoMigrate     bool `envconfig:"PERFCORE_AUTO_MIGRATE" default:"false"`
	WarehouseExport bool `envconfig:"PERFCORE_WAREHOUSE_EXPORT" default:"false"`
}

// SchedulerConfig drives the snapshot orchestrator.
type SchedulerConfig struct {
	SnapshotFrequency string        `envconfig:"PERFCORE_SCHEDULER_SNAPSHOT_FREQUENCY" default:"daily"`
	SourceTimeout     time.Duration `envconfig:"PERFCORE_SCHEDULER_SOURCE_TIMEOUT" default:"15s"`
	LockTTL           time.Duration `envconfig:"PERFCORE_SCHEDULER_LOCK_TTL" default:"2h"`
}

func (s SchedulerConfig) validate() error {
	if _, err := enums.ParseFrequency(s.SnapshotFrequency); err != nil {
		return fmt.Errorf("%s: %w", EnvSnapshotFrequency, err)
	}
	return nil
}

// Frequency returns the validated snapshot cadence.
func (s SchedulerConfig) Frequency() enums.Frequency {
	freq, err := enums.ParseFrequency(s.SnapshotFrequency)
	if err != nil {
		return enums.FrequencyDaily
	}
	return freq
}

type KPIConfig struct {
	Interval    time.Duration `envconfig:"PERFCORE_KPI_INTERVAL" default:"24h"`
	AtRiskRatio float64       `envconfig:"PERFCORE_KPI_AT_RISK_RATIO" default:"0.7"`
}

type ReportsConfig struct {
	Interval time.Duration `envconfig:"PERFCORE_REPORTS_INTERVAL" default:"1h"`
}

type RefreshConfig struct {
	Interval   time.Duration `envconfig:"PERFCORE_REFRESH_INTERVAL" default:"1h"`
	StaleAfter time.Duration `envconfig:"PERFCORE_REFRESH_STALE_AFTER" default:"48h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PERFCORE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PERFCORE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PERFCORE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type BigQueryConfig struct {
	Dataset            string `envconfig:"PERFCORE_BIGQUERY_DATASET" default:"performancecore"`
	SnapshotFactsTable string `envconfig:"PERFCORE_BIGQUERY_SNAPSHOT_TABLE" default:"snapshot_facts"`
}

type PubSubConfig struct {
	SnapshotTopic        string `envconfig:"PERFCORE_PUBSUB_SNAPSHOT_TOPIC" default:"pc-snapshot-events"`
	SnapshotSubscription string `envconfig:"PERFCORE_PUBSUB_SNAPSHOT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PERFCORE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"PERFCORE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"PERFCORE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"PERFCORE_OUTBOX_IDEMPOTENCY_TTL" default:"24h"`
}

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
