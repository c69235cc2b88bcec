package config

import (
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/compliance-gateway/internal/cache"
	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	OpenData OpenDataConfig `yaml:"opendata" mapstructure:"opendata"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Kafka    KafkaConfig    `yaml:"kafka" mapstructure:"kafka"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// OpenDataConfig configures the upstream open-data host and how it is called.
type OpenDataConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	AppToken      string `yaml:"app_token" mapstructure:"app_token"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MinIntervalMs int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	MaxBackoffMs  int    `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	MaxAttempts   int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelayMs  int    `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
}

// Timeout is the per-attempt request timeout.
func (c OpenDataConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// MinInterval is the limiter's base spacing between requests.
func (c OpenDataConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalMs) * time.Millisecond
}

// MaxBackoff caps the limiter's throttled interval.
func (c OpenDataConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMs) * time.Millisecond
}

// Retry returns the retry policy for transient failures.
func (c OpenDataConfig) Retry() resilience.RetryConfig {
	return resilience.FromRetryConfig(c.MaxAttempts, c.RetryDelayMs)
}

// CacheConfig configures the in-process cache and the optional Redis tier.
type CacheConfig struct {
	MaxEntries          int       `yaml:"max_entries" mapstructure:"max_entries"`
	RedisAddr           string    `yaml:"redis_addr" mapstructure:"redis_addr"`
	KeyPrefix           string    `yaml:"key_prefix" mapstructure:"key_prefix"`
	RedisPoolSize       int       `yaml:"redis_pool_size" mapstructure:"redis_pool_size"`
	RedisDialTimeoutMs  int       `yaml:"redis_dial_timeout_ms" mapstructure:"redis_dial_timeout_ms"`
	StaleRetentionHours int       `yaml:"stale_retention_hours" mapstructure:"stale_retention_hours"`
	TTL                 TTLConfig `yaml:"ttl" mapstructure:"ttl"`
}

// TTLConfig sets the expiry of each cache tier, in minutes.
type TTLConfig struct {
	VolatileMinutes int `yaml:"volatile_minutes" mapstructure:"volatile_minutes"`
	ShortMinutes    int `yaml:"short_minutes" mapstructure:"short_minutes"`
	MediumMinutes   int `yaml:"medium_minutes" mapstructure:"medium_minutes"`
	LongMinutes     int `yaml:"long_minutes" mapstructure:"long_minutes"`
}

// TTLPolicy converts the tier minutes into a cache.TTLPolicy.
func (c CacheConfig) TTLPolicy() cache.TTLPolicy {
	m := func(n int) time.Duration { return time.Duration(n) * time.Minute }
	return cache.TTLPolicy{
		Volatile: m(c.TTL.VolatileMinutes),
		Short:    m(c.TTL.ShortMinutes),
		Medium:   m(c.TTL.MediumMinutes),
		Long:     m(c.TTL.LongMinutes),
	}
}

// RedisOptions returns the Redis backend options for this config.
// Non-positive pool size and dial timeout keep the backend defaults.
func (c CacheConfig) RedisOptions() []cache.RedisOption {
	opts := []cache.RedisOption{
		cache.WithKeyPrefix(c.KeyPrefix),
		cache.WithStaleRetention(c.StaleRetention()),
	}
	if c.RedisPoolSize > 0 {
		opts = append(opts, cache.WithPoolSize(c.RedisPoolSize))
	}
	if c.RedisDialTimeoutMs > 0 {
		opts = append(opts, cache.WithDialTimeout(time.Duration(c.RedisDialTimeoutMs)*time.Millisecond))
	}
	return opts
}

// StaleRetention is how long expired Redis entries stay readable as stale.
func (c CacheConfig) StaleRetention() time.Duration {
	return time.Duration(c.StaleRetentionHours) * time.Hour
}

// StoreConfig configures the fetch-history database.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	RetentionDays int    `yaml:"retention_days" mapstructure:"retention_days"`
	MaxConns      int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns      int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// KafkaConfig configures fetch-event publishing. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without defaults are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{
		"opendata.app_token",
		"cache.redis_addr",
		"store.database_url",
		"kafka.brokers",
	} {
		_ = v.BindEnv(key)
	}

	// Defaults
	v.SetDefault("opendata.base_url", endpoint.DefaultBaseURL)
	v.SetDefault("opendata.user_agent", "compliance-gateway/1.0")
	v.SetDefault("opendata.timeout_secs", 30)
	v.SetDefault("opendata.min_interval_ms", 250)
	v.SetDefault("opendata.max_backoff_ms", 30000)
	v.SetDefault("opendata.max_attempts", 3)
	v.SetDefault("opendata.retry_delay_ms", 500)
	v.SetDefault("cache.max_entries", cache.DefaultMaxEntries)
	v.SetDefault("cache.key_prefix", "gateway:")
	v.SetDefault("cache.stale_retention_hours", 168)
	v.SetDefault("cache.redis_pool_size", 32)
	v.SetDefault("cache.redis_dial_timeout_ms", 2000)
	v.SetDefault("cache.ttl.volatile_minutes", 15)
	v.SetDefault("cache.ttl.short_minutes", 45)
	v.SetDefault("cache.ttl.medium_minutes", 120)
	v.SetDefault("cache.ttl.long_minutes", 1440)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.retention_days", 30)
	v.SetDefault("kafka.topic", "compliance.records.fetched")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is "fetch" for the
// one-shot commands and "serve" for the HTTP API.
func (c *Config) Validate(mode string) error {
	var errs []error

	switch mode {
	case "fetch":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, eris.New("server.port must be > 0 and <= 65535"))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.OpenData.BaseURL == "" {
		errs = append(errs, eris.New("opendata.base_url is required"))
	}
	if c.OpenData.MaxAttempts < 1 || c.OpenData.MaxAttempts > 10 {
		errs = append(errs, eris.New("opendata.max_attempts must be between 1 and 10"))
	}
	if c.OpenData.MinIntervalMs < 0 {
		errs = append(errs, eris.New("opendata.min_interval_ms must be >= 0"))
	}
	if c.OpenData.MaxBackoffMs > 0 && c.OpenData.MaxBackoffMs < c.OpenData.MinIntervalMs {
		errs = append(errs, eris.New("opendata.max_backoff_ms must be >= min_interval_ms"))
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, eris.New("cache.max_entries must be > 0"))
	}

	switch c.Store.Driver {
	case "", "none", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, eris.New("store.database_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, eris.Errorf("store.driver %q must be one of none, sqlite, postgres", c.Store.Driver))
	}

	if err := errors.Join(errs...); err != nil {
		return eris.Wrap(err, "config: invalid")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
