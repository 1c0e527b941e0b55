package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"storefront/pkg/logkey"

	"github.com/joho/godotenv"
)

// Config is everything the storefront reads from the environment.
type Config struct {
	AppEnv         string
	GinMode        string
	HTTPAddr       string
	GRPCAddr       string
	EndpointPrefix string

	JWTSecret     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
	DemoUsername  string
	DemoPassword  string

	StoreDriver string
	SQLitePath  string
	DatabaseURL string
	RedisAddr   string

	KafkaBrokers        []string
	ConsulAddr          string
	ServiceName         string
	StripeKey           string
	StripeWebhookSecret string
	PaymentDriver       string

	CatalogLoadDelay      time.Duration
	PincodeCheckDelay     time.Duration
	PincodeCheckTimeout   time.Duration
	PaymentDelayCOD       time.Duration
	PaymentDelayOnline    time.Duration
	StatusRefreshInterval time.Duration
}

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	PaymentSimulated = "simulated"
	PaymentStripe    = "stripe"
)

// LoadEnv loads .env.local when APP_ENV is "local", mirroring how the
// services are run on a laptop.
func LoadEnv() {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development"
		os.Setenv("APP_ENV", appEnv)
	}
	if appEnv != "local" {
		return
	}
	if err := godotenv.Load(".env.local"); err != nil {
		slog.Warn(".env.local not loaded, relying on system environment", slog.String(logkey.ERROR, err.Error()))
		return
	}
	slog.Info("loaded .env.local for local development")
}

// Load reads the process environment into a Config and validates it.
func Load() (Config, error) {
	LoadEnv()

	cfg := Config{
		AppEnv:         getenv("APP_ENV", "development"),
		GinMode:        getenv("GIN_MODE", "debug"),
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:       getenv("GRPC_ADDR", ":5001"),
		EndpointPrefix: getenv("SERVICE_ENDPOINT_PREFIX", "/v1"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AdminUsername:  getenv("ADMIN_USERNAME", "admin"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		DemoUsername:   getenv("DEMO_USERNAME", "demo"),
		DemoPassword:   os.Getenv("DEMO_PASSWORD"),
		StoreDriver:    getenv("STORE_DRIVER", StoreSQLite),
		SQLitePath:     getenv("SQLITE_PATH", "storefront.db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		ConsulAddr:     os.Getenv("CONSUL_HTTP_ADDR"),
		ServiceName:    getenv("SERVICE_NAME", "storefront"),
		StripeKey:      os.Getenv("STRIPE_TEST_KEY"),
		PaymentDriver:  getenv("PAYMENT_PROVIDER", PaymentSimulated),
	}
	cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"TOKEN_TTL", 24 * time.Hour, &cfg.TokenTTL},
		{"CATALOG_LOAD_DELAY", 500 * time.Millisecond, &cfg.CatalogLoadDelay},
		{"PINCODE_CHECK_DELAY", 500 * time.Millisecond, &cfg.PincodeCheckDelay},
		{"PINCODE_CHECK_TIMEOUT", 3 * time.Second, &cfg.PincodeCheckTimeout},
		{"PAYMENT_DELAY_COD", time.Second, &cfg.PaymentDelayCOD},
		{"PAYMENT_DELAY_ONLINE", 2 * time.Second, &cfg.PaymentDelayOnline},
		{"STATUS_REFRESH_INTERVAL", 24 * time.Hour, &cfg.StatusRefreshInterval},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dest = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.PaymentDriver {
	case PaymentSimulated:
	case PaymentStripe:
		if c.StripeKey == "" {
			errs = append(errs, errors.New("STRIPE_TEST_KEY is required for the stripe payment provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentDriver))
	}
	if c.PincodeCheckTimeout <= 0 {
		errs = append(errs, errors.New("PINCODE_CHECK_TIMEOUT must be positive"))
	}
	if c.StatusRefreshInterval <= 0 {
		errs = append(errs, errors.New("STATUS_REFRESH_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
