package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Checkout CheckoutConfig
	Lalamove LalamoveConfig
	Xendit   XenditConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TUPMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"TUPMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TUPMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TUPMARKET_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"TUPMARKET_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TUPMARKET_DB_DSN"`
	Driver string `envconfig:"TUPMARKET_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TUPMARKET_DB_HOST"`
	Port     int    `envconfig:"TUPMARKET_DB_PORT" default:"5432"`
	User     string `envconfig:"TUPMARKET_DB_USER"`
	Password string `envconfig:"TUPMARKET_DB_PASSWORD"`
	Name     string `envconfig:"TUPMARKET_DB_NAME"`
	SSLMode  string `envconfig:"TUPMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TUPMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TUPMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TUPMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TUPMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TUPMARKET_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"TUPMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TUPMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TUPMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TUPMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TUPMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CheckoutConfig carries settlement parameters that are policy, not code.
type CheckoutConfig struct {
	TaxRate       decimal.Decimal `envconfig:"TUPMARKET_CHECKOUT_TAX_RATE" default:"0.05"`
	Currency      string          `envconfig:"TUPMARKET_CHECKOUT_CURRENCY" default:"PHP"`
	PickupAddress string          `envconfig:"TUPMARKET_CHECKOUT_PICKUP_ADDRESS" required:"true"`
	PublicBaseURL string          `envconfig:"TUPMARKET_PUBLIC_BASE_URL" required:"true"`
}

type LalamoveConfig struct {
	APIKey      string `envconfig:"TUPMARKET_LALAMOVE_API_KEY" required:"true"`
	APISecret   string `envconfig:"TUPMARKET_LALAMOVE_API_SECRET" required:"true"`
	Market      string `envconfig:"TUPMARKET_LALAMOVE_MARKET" required:"true"`
	BaseURL     string `envconfig:"TUPMARKET_LALAMOVE_BASE_URL" required:"true"`
	ServiceType string `envconfig:"TUPMARKET_LALAMOVE_SERVICE_TYPE" default:"MOTORCYCLE"`
	Language    string `envconfig:"TUPMARKET_LALAMOVE_LANGUAGE" default:"en_PH"`
}

// XenditConfig is the single source for invoice-provider secrets; the
// callback token configured here is the one the webhook handler checks.
type XenditConfig struct {
	APISecret       string        `envconfig:"TUPMARKET_XENDIT_API_SECRET" required:"true"`
	CallbackToken   string        `envconfig:"TUPMARKET_XENDIT_CALLBACK_TOKEN" required:"true"`
	BaseURL         string        `envconfig:"TUPMARKET_XENDIT_BASE_URL" default:"https://api.xendit.co"`
	WebhookDedupTTL time.Duration `envconfig:"TUPMARKET_XENDIT_WEBHOOK_DEDUP_TTL" default:"48h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, val := range map[string]string{
		"TUPMARKET_DB_HOST": db.Host,
		"TUPMARKET_DB_USER": db.User,
		"TUPMARKET_DB_NAME": db.Name,
	} {
		if val == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either TUPMARKET_DB_DSN or %s are required", strings.Join(missing, ", "))
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
