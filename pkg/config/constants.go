package config

const EnvPrefix = "STORELY"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "STORELY_APP_ENV"
	EnvPort   = "STORELY_APP_PORT"

	EnvDBDSN  = "STORELY_DB_DSN"
	EnvDBHost = "STORELY_DB_HOST"
	EnvDBUser = "STORELY_DB_USER"
	EnvDBName = "STORELY_DB_NAME"

	EnvRedisURL  = "STORELY_REDIS_URL"
	EnvJWTSecret = "STORELY_JWT_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
