package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the backend reads.
	EnvPrefix = "STORECHAIN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "STORECHAIN_DB_DSN"
	EnvDBHost = "STORECHAIN_DB_HOST"
	EnvDBUser = "STORECHAIN_DB_USER"
	EnvDBName = "STORECHAIN_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Carrier      CarrierConfig
	PayPal       PayPalConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"STORECHAIN_APP_ENV" required:"true"`
	Port         string `envconfig:"STORECHAIN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STORECHAIN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STORECHAIN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STORECHAIN_DB_DSN"`
	Driver string `envconfig:"STORECHAIN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STORECHAIN_DB_HOST"`
	LegacyPort     int    `envconfig:"STORECHAIN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STORECHAIN_DB_USER"`
	LegacyPassword string `envconfig:"STORECHAIN_DB_PASSWORD"`
	LegacyName     string `envconfig:"STORECHAIN_DB_NAME"`
	LegacySSLMode  string `envconfig:"STORECHAIN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STORECHAIN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STORECHAIN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STORECHAIN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STORECHAIN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STORECHAIN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STORECHAIN_REDIS_ADDR"`
	Password     string        `envconfig:"STORECHAIN_REDIS_PASSWORD"`
	DB           int           `envconfig:"STORECHAIN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STORECHAIN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STORECHAIN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STORECHAIN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STORECHAIN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STORECHAIN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STORECHAIN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STORECHAIN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STORECHAIN_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// CarrierConfig points at the external shipping-carrier API.
type CarrierConfig struct {
	BaseURL    string        `envconfig:"STORECHAIN_CARRIER_BASE_URL"`
	Token      string        `envconfig:"STORECHAIN_CARRIER_TOKEN"`
	ShopID     string        `envconfig:"STORECHAIN_CARRIER_SHOP_ID"`
	Timeout    time.Duration `envconfig:"STORECHAIN_CARRIER_TIMEOUT" default:"10s"`
	RetryCount int           `envconfig:"STORECHAIN_CARRIER_RETRY_COUNT" default:"2"`
}

// PayPalConfig points at the external payment processor used for capture lookups.
type PayPalConfig struct {
	BaseURL      string        `envconfig:"STORECHAIN_PAYPAL_BASE_URL" default:"https://api-m.sandbox.paypal.com"`
	ClientID     string        `envconfig:"STORECHAIN_PAYPAL_CLIENT_ID"`
	ClientSecret string        `envconfig:"STORECHAIN_PAYPAL_CLIENT_SECRET"`
	Timeout      time.Duration `envconfig:"STORECHAIN_PAYPAL_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	Topic        string        `envconfig:"STORECHAIN_OUTBOX_TOPIC" default:"storechain-order-events"`
	ProjectID    string        `envconfig:"STORECHAIN_OUTBOX_PROJECT_ID"`
	BatchSize    int           `envconfig:"STORECHAIN_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"STORECHAIN_OUTBOX_POLL_INTERVAL" default:"5s"`
	MaxAttempts  int           `envconfig:"STORECHAIN_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention    time.Duration `envconfig:"STORECHAIN_OUTBOX_RETENTION" default:"168h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STORECHAIN_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STORECHAIN_AUTO_MIGRATE" default:"false"`
}

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
