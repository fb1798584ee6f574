package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/profit"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EventsLog      = "log"
	EventsKafka    = "kafka"
	EventsRabbitMQ = "rabbitmq"
)

// Config holds every setting of the server, loaded from the environment.
type Config struct {
	ServerPort       string  `mapstructure:"SERVER_PORT"`
	DatabaseDriver   string  `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL      string  `mapstructure:"DATABASE_URL"`
	EventsBackend    string  `mapstructure:"EVENTS_BACKEND"`
	KafkaBrokers     string  `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic       string  `mapstructure:"KAFKA_TOPIC"`
	RabbitMQURL      string  `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange string  `mapstructure:"RABBITMQ_EXCHANGE"`
	RedisURL         string  `mapstructure:"REDIS_URL"`
	RedisLockPrefix  string  `mapstructure:"REDIS_LOCK_PREFIX"`
	LockTTLSeconds   int     `mapstructure:"LOCK_TTL_SECONDS"`
	MinProfit        float64 `mapstructure:"MIN_PROFIT"`
	MaxProfit        float64 `mapstructure:"MAX_PROFIT"`
	LogFormat        string  `mapstructure:"LOG_FORMAT"`
	LogLevel         string  `mapstructure:"LOG_LEVEL"`
	MetricsEnabled   bool    `mapstructure:"METRICS_ENABLED"`
}

var keys = []string{
	"SERVER_PORT", "DATABASE_DRIVER", "DATABASE_URL", "EVENTS_BACKEND",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "RABBITMQ_URL", "RABBITMQ_EXCHANGE",
	"REDIS_URL", "REDIS_LOCK_PREFIX", "LOCK_TTL_SECONDS", "MIN_PROFIT",
	"MAX_PROFIT", "LOG_FORMAT", "LOG_LEVEL", "METRICS_ENABLED",
}

// LoadConfig reads the environment, after loading an optional .env file
// from path. Values already set in the environment win over the file.
func LoadConfig(path string) (config Config, err error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err == nil {
		slog.Debug("loaded .env", "path", path)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DATABASE_DRIVER", DriverMemory)
	v.SetDefault("EVENTS_BACKEND", EventsLog)
	v.SetDefault("KAFKA_TOPIC", "ledger_events")
	v.SetDefault("RABBITMQ_EXCHANGE", "ledger_events")
	v.SetDefault("REDIS_LOCK_PREFIX", "ledger:lock")
	v.SetDefault("LOCK_TTL_SECONDS", 10)
	v.SetDefault("MIN_PROFIT", profit.DefaultMinProfit.InexactFloat64())
	v.SetDefault("MAX_PROFIT", profit.DefaultMaxProfit.InexactFloat64())
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METRICS_ENABLED", true)

	// Bind explicitly so Unmarshal sees variables that have no default.
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	config.DatabaseDriver = strings.ToLower(strings.TrimSpace(config.DatabaseDriver))
	config.EventsBackend = strings.ToLower(strings.TrimSpace(config.EventsBackend))
	config.RedisURL = strings.TrimSpace(config.RedisURL)

	switch config.DatabaseDriver {
	case DriverMemory, DriverPostgres, DriverSQLite:
	default:
		return config, errors.New("DATABASE_DRIVER must be one of memory, postgres, sqlite")
	}
	if config.DatabaseDriver != DriverMemory && strings.TrimSpace(config.DatabaseURL) == "" {
		return config, errors.New("DATABASE_URL is required for " + config.DatabaseDriver)
	}

	switch config.EventsBackend {
	case EventsLog, EventsKafka, EventsRabbitMQ:
	default:
		slog.Warn("unknown EVENTS_BACKEND; using log", "value", config.EventsBackend)
		config.EventsBackend = EventsLog
	}

	if config.MinProfit < 0 || config.MinProfit > config.MaxProfit {
		slog.Warn("invalid profit range; using defaults", "min", config.MinProfit, "max", config.MaxProfit)
		config.MinProfit = profit.DefaultMinProfit.InexactFloat64()
		config.MaxProfit = profit.DefaultMaxProfit.InexactFloat64()
	}
	if config.LockTTLSeconds <= 0 {
		config.LockTTLSeconds = 10
	}
	return config, nil
}

// ProfitConfig converts the configured range for the profit engine.
func (c Config) ProfitConfig() profit.Config {
	return profit.NewConfig(
		decimal.NewFromFloat(c.MinProfit),
		decimal.NewFromFloat(c.MaxProfit),
	)
}

func (c Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (c Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Logger builds the process logger from LOG_FORMAT and LOG_LEVEL.
func (c Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
