package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-gateway/internal/cache"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://data.cityofnewyork.us", cfg.OpenData.BaseURL)
	assert.Empty(t, cfg.OpenData.AppToken)
	assert.Equal(t, 30*time.Second, cfg.OpenData.Timeout())
	assert.Equal(t, 250*time.Millisecond, cfg.OpenData.MinInterval())
	assert.Equal(t, 30*time.Second, cfg.OpenData.MaxBackoff())
	assert.Equal(t, 3, cfg.OpenData.Retry().MaxAttempts)
	assert.Equal(t, cache.DefaultMaxEntries, cfg.Cache.MaxEntries)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.StaleRetention())
	assert.Equal(t, 32, cfg.Cache.RedisPoolSize)
	assert.Equal(t, 2000, cfg.Cache.RedisDialTimeoutMs)
	assert.Len(t, cfg.Cache.RedisOptions(), 4)
	assert.Equal(t, cache.DefaultTTLPolicy(), cfg.Cache.TTLPolicy())
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, 30, cfg.Store.RetentionDays)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "compliance.records.fetched", cfg.Kafka.Topic)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
opendata:
  app_token: tok-from-file
  min_interval_ms: 500
cache:
  redis_addr: localhost:6379
  ttl:
    long_minutes: 60
store:
  driver: sqlite
  database_url: gateway.db
kafka:
  brokers: [broker-1:9092, broker-2:9092]
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tok-from-file", cfg.OpenData.AppToken)
	assert.Equal(t, 500*time.Millisecond, cfg.OpenData.MinInterval())
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, time.Hour, cfg.Cache.TTLPolicy().Long)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 30*time.Second, cfg.OpenData.Timeout())
	assert.Equal(t, 45*time.Minute, cfg.Cache.TTLPolicy().Short)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("GATEWAY_STORE_DRIVER", "postgres")
	t.Setenv("GATEWAY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvWithoutDefault(t *testing.T) {
	chdirTemp(t)

	t.Setenv("GATEWAY_OPENDATA_APP_TOKEN", "tok-from-env")
	t.Setenv("GATEWAY_STORE_DATABASE_URL", "postgres://localhost/gateway")
	t.Setenv("GATEWAY_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-from-env", cfg.OpenData.AppToken)
	assert.Equal(t, "postgres://localhost/gateway", cfg.Store.DatabaseURL)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.OpenData.BaseURL = "https://data.cityofnewyork.us"
	cfg.OpenData.MaxAttempts = 3
	cfg.OpenData.MinIntervalMs = 250
	cfg.OpenData.MaxBackoffMs = 30000
	cfg.Cache.MaxEntries = 100
	cfg.Store.Driver = "none"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("fetch"))
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	assert.NoError(t, cfg.Validate("fetch"), "fetch ignores the server port")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidatePostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("fetch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/gateway"
	assert.NoError(t, cfg.Validate("fetch"))
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("fetch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := validDefaults()
	cfg.OpenData.BaseURL = ""
	cfg.OpenData.MaxAttempts = 0
	cfg.OpenData.MinIntervalMs = 1000
	cfg.OpenData.MaxBackoffMs = 500
	cfg.Cache.MaxEntries = 0

	err := cfg.Validate("fetch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opendata.base_url is required")
	assert.Contains(t, err.Error(), "opendata.max_attempts must be between 1 and 10")
	assert.Contains(t, err.Error(), "max_backoff_ms must be >= min_interval_ms")
	assert.Contains(t, err.Error(), "cache.max_entries must be > 0")
}

func TestCacheRedisOptionsSkipsUnset(t *testing.T) {
	c := CacheConfig{KeyPrefix: "gw:", StaleRetentionHours: 1}
	assert.Len(t, c.RedisOptions(), 2)

	c.RedisPoolSize = 8
	c.RedisDialTimeoutMs = 500
	assert.Len(t, c.RedisOptions(), 4)
}
