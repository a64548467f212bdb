package config

const (
	// EnvPrefix namespaces every environment variable read by envconfig.
	EnvPrefix = "APOTEK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "APOTEK_APP_ENV"
	EnvPort       = "APOTEK_APP_PORT"
	EnvDBDSN      = "APOTEK_DB_DSN"
	EnvDBHost     = "APOTEK_DB_HOST"
	EnvDBUser     = "APOTEK_DB_USER"
	EnvDBName     = "APOTEK_DB_NAME"
	EnvRedisURL   = "APOTEK_REDIS_URL"
	EnvJWTSecret  = "APOTEK_JWT_SECRET"
	EnvJWTIssuer  = "APOTEK_JWT_ISSUER"
	EnvJWTExpMins = "APOTEK_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
