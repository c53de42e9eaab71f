package config

// EnvPrefix is the envconfig prefix shared by every PerformanceCore service.
const EnvPrefix = "PERFCORE"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error
// messages).
const (
	EnvAppEnv   = "PERFCORE_APP_ENV"
	EnvPort     = "PERFCORE_APP_PORT"
	EnvDBDSN    = "PERFCORE_DB_DSN"
	EnvDBHost   = "PERFCORE_DB_HOST"
	EnvDBUser   = "PERFCORE_DB_USER"
	EnvDBName   = "PERFCORE_DB_NAME"
	EnvRedisURL = "PERFCORE_REDIS_URL"

	EnvSnapshotFrequency = "PERFCORE_SCHEDULER_SNAPSHOT_FREQUENCY"
	EnvGCPProjectID      = "PERFCORE_GCP_PROJECT_ID"
)
