package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	envPrefix  = "SETTLEMENT_"
	envFileVar = "SETTLEMENT_CONFIG_FILE"
)

type Config struct {
	Primary      Primary            `koanf:"primary"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Gateway      GatewayConfig      `koanf:"gateway"`
	Retry        RetryConfig        `koanf:"retry"`
	Logger       LoggerConfig       `koanf:"logger"`
	Redis        RedisConfig        `koanf:"redis"`
	Notification NotificationConfig `koanf:"notification"`
	Reconciler   ReconcilerConfig   `koanf:"reconciler"`
	Auth         AuthConfig         `koanf:"auth"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
	// MaxWebhookBytes caps the raw webhook body read by the handler.
	MaxWebhookBytes int64 `koanf:"max_webhook_bytes"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// GatewayConfig holds the Razorpay-style credentials. KeySecret signs checkout
// callbacks and WebhookSecret signs webhook deliveries.
type GatewayConfig struct {
	BaseURL         string        `koanf:"base_url" validate:"required"`
	KeyID           string        `koanf:"key_id" validate:"required"`
	KeySecret       string        `koanf:"key_secret" validate:"required"`
	WebhookSecret   string        `koanf:"webhook_secret" validate:"required"`
	Timeout         time.Duration `koanf:"timeout" validate:"required"`
	SignatureHeader string        `koanf:"signature_header"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	// StreamPrefix is joined with the channel name, e.g. "notifications:email".
	StreamPrefix string `koanf:"stream_prefix"`
	MaxLen       int64  `koanf:"max_len"`
}

type NotificationConfig struct {
	Workers         int           `koanf:"workers" validate:"required"`
	QueueSize       int           `koanf:"queue_size" validate:"required"`
	DeliveryTimeout time.Duration `koanf:"delivery_timeout" validate:"required"`
}

type ReconcilerConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Schedule  string        `koanf:"schedule"`
	OlderThan time.Duration `koanf:"older_than"`
	BatchSize int           `koanf:"batch_size"`
}

type AuthConfig struct {
	AdminJWTSecret string `koanf:"admin_jwt_secret" validate:"required"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.request_timeout":        "30s",
		"server.max_webhook_bytes":      int64(1 << 20),
		"gateway.signature_header":      "X-Razorpay-Signature",
		"retry.base_delay":              "500ms",
		"retry.max_retries":             3,
		"logger.level":                  "info",
		"redis.stream_prefix":           "notifications:",
		"redis.max_len":                 int64(10000),
		"notification.workers":          2,
		"notification.queue_size":       256,
		"notification.delivery_timeout": "5s",
		"reconciler.schedule":           "@every 5m",
		"reconciler.older_than":         "2m",
		"reconciler.batch_size":         50,
	}
}

// LoadConfig layers defaults, the optional YAML file named by
// SETTLEMENT_CONFIG_FILE and SETTLEMENT_* environment variables, in that order.
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logger.Error("failed to load config file", "path", path, "error", err)
			return nil, err
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		if s == envFileVar {
			return ""
		}
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if err := mainConfig.checkOptionalSections(); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

func (c *Config) checkOptionalSections() error {
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Reconciler.Enabled && c.Reconciler.Schedule == "" {
		return fmt.Errorf("reconciler.schedule is required when the reconciler is enabled")
	}
	return nil
}
