package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/MagnunAVF/affiliate-tracker/internal/logger"
)

const (
	ClickSinkDB   = "db"
	ClickSinkAMQP = "amqp"
)

type Database struct {
	Driver   string
	URL      string
	LogLevel string
	SlowLog  time.Duration
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type RabbitMQ struct {
	URL        string
	ClickQueue string
}

// Config is built once in main and passed down explicitly.
type Config struct {
	Port     string
	Database Database
	Redis    Redis
	RabbitMQ RabbitMQ
	Log      logger.Config

	SlugCacheTTL        time.Duration
	ClickSink           string
	ClickBatchSize      int
	ClickFlushInterval  time.Duration
	DetachedTaskTimeout time.Duration
	IPHashSalt          string
	NodeID              int64

	PostbackSecrets map[string]string
	DefaultCurrency string
	EventsMaxBatch  int
	AdminToken      string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env file, relying on env vars", "err", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("API_SERVICE_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("GORM_LOG_LEVEL", "warn")
	v.SetDefault("GORM_SLOW_THRESHOLD", "200ms")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SLUG_CACHE_TTL", "5m")
	v.SetDefault("CLICK_QUEUE_NAME", "click_events")
	v.SetDefault("CLICK_SINK", ClickSinkDB)
	v.SetDefault("CLICK_BATCH_SIZE", 100)
	v.SetDefault("CLICK_FLUSH_INTERVAL", "2s")
	v.SetDefault("DETACHED_TASK_TIMEOUT", "10s")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("DEFAULT_CURRENCY", "USD")
	v.SetDefault("EVENTS_MAX_BATCH", 100)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stdout")

	secrets, err := parseSecrets(v.GetString("POSTBACK_SECRETS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port: v.GetString("API_SERVICE_PORT"),
		Database: Database{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			URL:      v.GetString("DB_URL"),
			LogLevel: v.GetString("GORM_LOG_LEVEL"),
			SlowLog:  v.GetDuration("GORM_SLOW_THRESHOLD"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RabbitMQ: RabbitMQ{
			URL:        v.GetString("RABBITMQ_URL"),
			ClickQueue: v.GetString("CLICK_QUEUE_NAME"),
		},
		Log: logger.Config{
			Level:   v.GetString("LOG_LEVEL"),
			Format:  v.GetString("LOG_FORMAT"),
			Service: v.GetString("LOG_SERVICE"),
			Env:     firstNonEmpty(v.GetString("LOG_ENV"), v.GetString("APP_ENV")),
			Version: v.GetString("VERSION"),
			Output:  v.GetString("LOG_OUTPUT"),
		},
		SlugCacheTTL:        v.GetDuration("SLUG_CACHE_TTL"),
		ClickSink:           strings.ToLower(v.GetString("CLICK_SINK")),
		ClickBatchSize:      v.GetInt("CLICK_BATCH_SIZE"),
		ClickFlushInterval:  v.GetDuration("CLICK_FLUSH_INTERVAL"),
		DetachedTaskTimeout: v.GetDuration("DETACHED_TASK_TIMEOUT"),
		IPHashSalt:          v.GetString("IP_HASH_SALT"),
		NodeID:              v.GetInt64("NODE_ID"),
		PostbackSecrets:     secrets,
		DefaultCurrency:     strings.ToUpper(v.GetString("DEFAULT_CURRENCY")),
		EventsMaxBatch:      v.GetInt("EVENTS_MAX_BATCH"),
		AdminToken:          v.GetString("ADMIN_TOKEN"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.ClickSink {
	case ClickSinkDB, ClickSinkAMQP:
	default:
		return fmt.Errorf("unsupported CLICK_SINK %q", c.ClickSink)
	}
	if c.ClickBatchSize <= 0 {
		return fmt.Errorf("CLICK_BATCH_SIZE must be positive, got %d", c.ClickBatchSize)
	}
	if c.EventsMaxBatch <= 0 {
		return fmt.Errorf("EVENTS_MAX_BATCH must be positive, got %d", c.EventsMaxBatch)
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code, got %q", c.DefaultCurrency)
	}
	return nil
}

// parseSecrets reads "vendor=secret,vendor2=secret2". Vendor names are
// case-insensitive.
func parseSecrets(raw string) (map[string]string, error) {
	secrets := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		vendor, secret, ok := strings.Cut(pair, "=")
		vendor = strings.ToLower(strings.TrimSpace(vendor))
		secret = strings.TrimSpace(secret)
		if !ok || vendor == "" || secret == "" {
			return nil, fmt.Errorf("malformed POSTBACK_SECRETS entry %q", pair)
		}
		secrets[vendor] = secret
	}
	return secrets, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
