package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the complete configuration for the play sync service.
type AppConfig struct {
	Environment string        `mapstructure:"environment"`
	LogLevel    string        `mapstructure:"log_level"`
	ServiceName string        `mapstructure:"service_name"`
	MongoDB     MongoConfig   `mapstructure:"mongodb"`
	BGG         BGGConfig     `mapstructure:"bgg"`
	Sync        SyncConfig    `mapstructure:"sync"`
	Kafka       KafkaConfig   `mapstructure:"kafka"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type BGGConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type SyncConfig struct {
	UpdateDelayMinutes  int           `mapstructure:"update_delay_minutes"`
	IncrementalSpanDays int           `mapstructure:"incremental_span_days"`
	OnceDailyOnly       bool          `mapstructure:"once_daily_only"`
	RateLimitCooldown   time.Duration `mapstructure:"rate_limit_cooldown"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load loads configuration from an optional file and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	// Default values
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("mongodb.database", "board-game-stats")
	v.SetDefault("mongodb.connect_timeout", 10*time.Second)
	v.SetDefault("bgg.base_url", "https://www.boardgamegeek.com/xmlapi2")
	v.SetDefault("bgg.request_timeout", time.Minute)
	v.SetDefault("sync.update_delay_minutes", 30)
	v.SetDefault("sync.incremental_span_days", 7)
	v.SetDefault("sync.once_daily_only", false)
	v.SetDefault("sync.rate_limit_cooldown", 60*time.Second)
	v.SetDefault("sync.retry_delay", 3*time.Second)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("metrics.addr", ":8080")

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// Bind environment variables explicitly for nested structs so Unmarshal
	// picks them up
	v.BindEnv("service_name", "SERVICE_NAME")
	v.BindEnv("environment", "ENVIRONMENT")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("mongodb.uri", "MONGODB_URI")
	v.BindEnv("mongodb.database", "MONGODB_DATABASE")
	v.BindEnv("bgg.base_url", "BGG_BASE_URL")
	v.BindEnv("bgg.request_timeout", "BGG_REQUEST_TIMEOUT")
	v.BindEnv("sync.update_delay_minutes", "SYNC_UPDATE_DELAY_MINUTES")
	v.BindEnv("sync.incremental_span_days", "SYNC_INCREMENTAL_SPAN_DAYS")
	v.BindEnv("sync.once_daily_only", "SYNC_ONCE_DAILY_ONLY")
	v.BindEnv("sync.rate_limit_cooldown", "SYNC_RATE_LIMIT_COOLDOWN")
	v.BindEnv("sync.retry_delay", "SYNC_RETRY_DELAY")
	v.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("metrics.addr", "METRICS_ADDR")

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Brokers may arrive as a single comma-separated string from env
	brokers := v.GetString("kafka.brokers")
	if brokers != "" && len(config.Kafka.Brokers) == 0 {
		config.Kafka.Brokers = strings.Split(brokers, ",")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is usable.
func (c *AppConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service_name is required")
	}
	if c.MongoDB.URI == "" {
		return errors.New("mongodb.uri is required")
	}
	if c.MongoDB.Database == "" {
		return errors.New("mongodb.database is required")
	}
	if c.BGG.BaseURL == "" {
		return errors.New("bgg.base_url is required")
	}
	if c.Sync.UpdateDelayMinutes <= 0 {
		return errors.New("sync.update_delay_minutes must be positive")
	}
	if c.Sync.IncrementalSpanDays <= 0 {
		return errors.New("sync.incremental_span_days must be positive")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return errors.New("kafka.topic is required when kafka is enabled")
		}
	}
	return nil
}
