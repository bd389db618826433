package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Cache     CacheConfig
	Store     StoreConfig
	Ledger    LedgerConfig
	Stock     StockConfig
	Precheck  PrecheckConfig
	Notify    NotifyConfig
	StockSync StockSyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	DrainGrace      time.Duration `envconfig:"SERVER_DRAIN_GRACE" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"fulfillment-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	AdminKeys   string `envconfig:"ADMIN_API_KEYS" default:""` // comma separated
}

// CacheConfig holds cooldown cache settings.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"fulfillment"`
}

// StoreConfig holds settings for products, orders and cooldowns.
type StoreConfig struct {
	Type string `envconfig:"STORE_DB_TYPE" default:"sqlite"` // sqlite or postgres
	Path string `envconfig:"STORE_DB_PATH" default:"./databases/store.db"`
	// PostgreSQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"5432"`
	Name     string `envconfig:"STORE_DB_NAME" default:"fulfillment"`
	User     string `envconfig:"STORE_DB_USER" default:"postgres"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`
}

// LedgerConfig holds settings for the antipublic ledger.
type LedgerConfig struct {
	Type string `envconfig:"LEDGER_DB_TYPE" default:"sqlite"` // sqlite or mysql
	Path string `envconfig:"LEDGER_DB_PATH" default:"./databases/antipublic.db"`
	// MySQL settings
	Host     string `envconfig:"LEDGER_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"LEDGER_DB_PORT" default:"3306"`
	Name     string `envconfig:"LEDGER_DB_NAME" default:"antipublic"`
	User     string `envconfig:"LEDGER_DB_USER" default:"root"`
	Password string `envconfig:"LEDGER_DB_PASS" default:""`
}

// StockConfig holds stock store and batching settings.
type StockConfig struct {
	Root        string        `envconfig:"STOCK_ROOT" default:"./stock"`
	OrdersDir   string        `envconfig:"ORDERS_DIR" default:"./orders"`
	Debounce    time.Duration `envconfig:"BATCH_DEBOUNCE" default:"1s"`
	MaxQuantity int           `envconfig:"MAX_ORDER_QUANTITY" default:"50"`
	CatalogFile string        `envconfig:"PRODUCT_CATALOG_FILE" default:""`
	ExemptUsers string        `envconfig:"COOLDOWN_EXEMPT_USERS" default:""` // comma separated
}

// PrecheckConfig holds validator service settings.
type PrecheckConfig struct {
	URL               string        `envconfig:"PRECHECK_URL" default:""`
	Threads           int           `envconfig:"PRECHECK_THREADS" default:"10"`
	Timeout           time.Duration `envconfig:"PRECHECK_TIMEOUT" default:"30s"`
	RequestsPerSecond float64       `envconfig:"PRECHECK_RPS" default:"50"`
}

// NotifyConfig holds notification settings.
type NotifyConfig struct {
	WebhookURL    string `envconfig:"NOTIFY_WEBHOOK_URL" default:""`
	LogWebhookURL string `envconfig:"PURCHASE_LOG_WEBHOOK_URL" default:""`
	// Per-order channels must start with one of these; others use WebhookURL.
	ChannelPrefixes string `envconfig:"NOTIFY_CHANNEL_PREFIXES" default:"https://discord.com/api/webhooks/,https://discordapp.com/api/webhooks/"`
}

// StockSyncConfig holds the periodic stock reconciliation settings.
type StockSyncConfig struct {
	Enabled  bool          `envconfig:"STOCK_SYNC_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"STOCK_SYNC_INTERVAL" default:"10m"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Name, s.SSLMode)
}

// DSN returns the MySQL data source name.
func (l *LedgerConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		l.User, l.Password, l.Host, l.Port, l.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// APIKeys returns the configured admin API keys.
func (a *AppConfig) APIKeys() []string {
	return splitList(a.AdminKeys)
}

// CooldownExemptUsers returns the users whose orders skip cooldowns.
func (s *StockConfig) CooldownExemptUsers() []string {
	return splitList(s.ExemptUsers)
}

// Prefixes returns the allowed per-order channel URL prefixes.
func (n *NotifyConfig) Prefixes() []string {
	return splitList(n.ChannelPrefixes)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, "|"), value)
}

func (c *Config) validate() error {
	var errs []error
	errs = append(errs,
		oneOf("STORE_DB_TYPE", c.Store.Type, "sqlite", "postgres", "postgresql"),
		oneOf("LEDGER_DB_TYPE", c.Ledger.Type, "sqlite", "mysql"),
		oneOf("CACHE_TYPE", c.Cache.Type, "memory", "redis"),
	)
	if c.Stock.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("BATCH_DEBOUNCE must be positive"))
	}
	if c.Stock.MaxQuantity <= 0 {
		errs = append(errs, fmt.Errorf("MAX_ORDER_QUANTITY must be positive"))
	}
	if c.Precheck.Threads <= 0 {
		errs = append(errs, fmt.Errorf("PRECHECK_THREADS must be positive"))
	}
	return errors.Join(errs...)
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
