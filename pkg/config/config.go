package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	Idempotency  IdempotencyConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ECOMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"ECOMARKET_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ECOMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ECOMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ECOMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ECOMARKET_DB_DSN"`
	Driver string `envconfig:"ECOMARKET_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ECOMARKET_DB_HOST"`
	Port     int    `envconfig:"ECOMARKET_DB_PORT" default:"5432"`
	User     string `envconfig:"ECOMARKET_DB_USER"`
	Password string `envconfig:"ECOMARKET_DB_PASSWORD"`
	Name     string `envconfig:"ECOMARKET_DB_NAME"`
	SSLMode  string `envconfig:"ECOMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ECOMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ECOMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ECOMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ECOMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected (local dev only).
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ECOMARKET_REDIS_URL"`
	Address      string        `envconfig:"ECOMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"ECOMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"ECOMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ECOMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ECOMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ECOMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ECOMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ECOMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// AuthConfig holds the identity provider's token verification settings.
type AuthConfig struct {
	JWTSecret string        `envconfig:"ECOMARKET_AUTH_JWT_SECRET" required:"true"`
	Issuer    string        `envconfig:"ECOMARKET_AUTH_ISSUER" required:"true"`
	Audience  string        `envconfig:"ECOMARKET_AUTH_AUDIENCE"`
	ClockSkew time.Duration `envconfig:"ECOMARKET_AUTH_CLOCK_SKEW" default:"30s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ECOMARKET_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ECOMARKET_AUTO_MIGRATE" default:"false"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"ECOMARKET_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ECOMARKET_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"ECOMARKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"ECOMARKET_PUBSUB_ORDERS_TOPIC" default:"ecomarket-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ECOMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ECOMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ECOMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval converts the configured poll milliseconds into a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type StripeConfig struct {
	SecretKey     string        `envconfig:"ECOMARKET_STRIPE_SECRET_KEY"`
	WebhookSecret string        `envconfig:"ECOMARKET_STRIPE_WEBHOOK_SECRET"`
	Env           string        `envconfig:"ECOMARKET_STRIPE_ENV" default:"test"`
	Currency      string        `envconfig:"ECOMARKET_STRIPE_CURRENCY" default:"usd"`
	WebhookDedupe time.Duration `envconfig:"ECOMARKET_STRIPE_WEBHOOK_DEDUPE_TTL" default:"72h"`
}

// Configured reports whether a processor secret key is present.
func (s StripeConfig) Configured() bool {
	return strings.TrimSpace(s.SecretKey) != ""
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:ecomarket.db?_foreign_keys=on"
		return nil
	}

	var missing []string
	if db.Host == "" {
		missing = append(missing, EnvDBHost)
	}
	if db.User == "" {
		missing = append(missing, EnvDBUser)
	}
	if db.Name == "" {
		missing = append(missing, EnvDBName)
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
