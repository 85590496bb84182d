package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "MINISHOP"

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config is the full runtime configuration of the minishop binary.
type Config struct {
	HTTP         HTTPConfig         `mapstructure:"http"`
	Service      ServiceConfig      `mapstructure:"service"`
	Log          LogConfig          `mapstructure:"log"`
	Repository   RepositoryConfig   `mapstructure:"repository"`
	DB           DBConfig           `mapstructure:"db"`
	Chapa        ChapaConfig        `mapstructure:"chapa"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Reconciler   ReconcilerConfig   `mapstructure:"reconciler"`
	Store        StoreConfig        `mapstructure:"store"`
	Outbox       OutboxConfig       `mapstructure:"outbox"`
	Notification NotificationConfig `mapstructure:"notification"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes bounds JSON and webhook request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

type ServiceConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type RepositoryConfig struct {
	Backend string `mapstructure:"backend"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

type ChapaConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	SecretKey     string        `mapstructure:"secret_key"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	CallbackURL   string        `mapstructure:"callback_url"`
	ReturnURL     string        `mapstructure:"return_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`

	// AdminEmail and AdminPassword create or promote an admin at startup.
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

type ReconcilerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	Grace       time.Duration `mapstructure:"grace"`
	Expiry      time.Duration `mapstructure:"expiry"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
	BatchSize   int           `mapstructure:"batch_size"`
}

type StoreConfig struct {
	Name     string `mapstructure:"name"`
	Currency string `mapstructure:"currency"`
}

type OutboxConfig struct {
	QueueSize      int           `mapstructure:"queue_size"`
	Concurrency    int           `mapstructure:"concurrency"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
}

type NotificationConfig struct {
	// LogBody includes rendered email bodies in the log mailer output.
	LogBody bool `mapstructure:"log_body"`
}

func defaults() map[string]any {
	return map[string]any{
		"http.addr":             ":8080",
		"http.shutdown_timeout": 10 * time.Second,
		"http.max_body_bytes":   int64(1 << 20),

		"service.name": "minishop",
		"service.env":  "dev",

		"log.level": "info",
		"log.file":  "",

		"repository.backend": BackendMemory,

		"db.dsn":               "",
		"db.max_open_conns":    10,
		"db.max_idle_conns":    5,
		"db.conn_max_lifetime": 30 * time.Minute,
		"db.migrate_on_start":  false,

		"chapa.base_url":       "https://api.chapa.co",
		"chapa.secret_key":     "",
		"chapa.webhook_secret": "",
		"chapa.callback_url":   "",
		"chapa.return_url":     "",
		"chapa.timeout":        15 * time.Second,

		"auth.session_ttl":    7 * 24 * time.Hour,
		"auth.bcrypt_cost":    10,
		"auth.admin_email":    "",
		"auth.admin_password": "",

		"reconciler.enabled":      true,
		"reconciler.interval":     time.Minute,
		"reconciler.grace":        2 * time.Minute,
		"reconciler.expiry":       24 * time.Hour,
		"reconciler.base_backoff": 30 * time.Second,
		"reconciler.max_backoff":  30 * time.Minute,
		"reconciler.batch_size":   100,

		"store.name":     "Minishop",
		"store.currency": "ETB",

		"outbox.queue_size":      1024,
		"outbox.concurrency":     8,
		"outbox.handler_timeout": 30 * time.Second,

		"notification.log_body": false,
	}
}

// Load layers defaults, the optional YAML file at path and MINISHOP_* env vars,
// e.g. MINISHOP_DB_DSN or MINISHOP_CHAPA_SECRET_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Store.Currency = strings.ToUpper(strings.TrimSpace(cfg.Store.Currency))
	cfg.Repository.Backend = strings.ToLower(strings.TrimSpace(cfg.Repository.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var ErrInvalid = errors.New("config: invalid")

func (c *Config) Validate() error {
	switch c.Repository.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("%w: db.dsn is required for the postgres backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: repository.backend %q (want memory or postgres)", ErrInvalid, c.Repository.Backend)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr is required", ErrInvalid)
	}
	if len(c.Store.Currency) != 3 {
		return fmt.Errorf("%w: store.currency must be a 3 letter code", ErrInvalid)
	}
	if c.Reconciler.Enabled && c.Reconciler.Interval <= 0 {
		return fmt.Errorf("%w: reconciler.interval must be positive", ErrInvalid)
	}
	return nil
}
