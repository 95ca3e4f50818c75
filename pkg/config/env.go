package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "ECOMARKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "ECOMARKET_APP_ENV"
	EnvPort     = "ECOMARKET_APP_PORT"
	EnvLogLevel = "ECOMARKET_LOG_LEVEL"

	EnvDBDSN    = "ECOMARKET_DB_DSN"
	EnvDBDriver = "ECOMARKET_DB_DRIVER"
	EnvDBHost   = "ECOMARKET_DB_HOST"
	EnvDBUser   = "ECOMARKET_DB_USER"
	EnvDBName   = "ECOMARKET_DB_NAME"

	EnvRedisURL = "ECOMARKET_REDIS_URL"

	EnvAuthJWTSecret = "ECOMARKET_AUTH_JWT_SECRET"
	EnvAuthIssuer    = "ECOMARKET_AUTH_ISSUER"

	EnvCORSAllowedOrigins = "ECOMARKET_CORS_ALLOWED_ORIGINS"

	EnvStripeSecretKey     = "ECOMARKET_STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "ECOMARKET_STRIPE_WEBHOOK_SECRET"
	EnvStripeCurrency      = "ECOMARKET_STRIPE_CURRENCY"

	EnvGCPProjectID      = "ECOMARKET_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "ECOMARKET_PUBSUB_ORDERS_TOPIC"
)
