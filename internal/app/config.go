package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/charlesng35/callcache/pkg/validator"
)

// EnvPrefix is prepended to every environment override, e.g. CALLCACHE_SERVER_PORT.
const EnvPrefix = "CALLCACHE"

// Config represents the runtime configuration for callcache.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" json:"server"`
	Database    DatabaseConfig    `mapstructure:"database" json:"database"`
	Cache       CacheConfig       `mapstructure:"cache" json:"cache"`
	ValueCache  ValueCacheConfig  `mapstructure:"value_cache" json:"value_cache"`
	PageCache   PageCacheConfig   `mapstructure:"page_cache" json:"page_cache"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance" json:"maintenance"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring" json:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int             `mapstructure:"port" json:"port" validate:"min=1,max=65535"`
	LogLevel  string          `mapstructure:"log_level" json:"log_level"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig controls the store-backed fixed window limiter.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled" json:"enabled"`
	Requests int           `mapstructure:"requests" json:"requests" validate:"min=0"`
	Window   time.Duration `mapstructure:"window" json:"window" validate:"min=0"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver" json:"driver" validate:"oneof=sqlite postgres postgresql mysql"`
	Path     string       `mapstructure:"path" json:"path"`
	DSN      string       `mapstructure:"dsn" json:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres" json:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql" json:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	Database string `mapstructure:"database" json:"database"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	TLSMode  string `mapstructure:"tls_mode" json:"tls_mode"`
}

// CacheConfig selects and configures the key-value store backend.
type CacheConfig struct {
	// Backend is auto, redis, database or memory. auto prefers Redis when it is enabled and
	// reachable, and falls back to the database.
	Backend string           `mapstructure:"backend" json:"backend" validate:"oneof=auto redis database memory"`
	Redis   RedisCacheConfig `mapstructure:"redis" json:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" json:"enabled"`
	Address   string        `mapstructure:"address" json:"address"`
	Username  string        `mapstructure:"username" json:"username"`
	Password  string        `mapstructure:"password" json:"password"`
	DB        int           `mapstructure:"db" json:"db" validate:"min=0"`
	TLS       bool          `mapstructure:"tls" json:"tls"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
	KeyPrefix string        `mapstructure:"key_prefix" json:"key_prefix"`
}

// ValueCacheConfig configures the instrumented value cache.
type ValueCacheConfig struct {
	FlushOnStart bool `mapstructure:"flush_on_start" json:"flush_on_start"`
}

// PageCacheConfig configures the expiring page cache and its fetcher.
type PageCacheConfig struct {
	TTL          time.Duration `mapstructure:"ttl" json:"ttl" validate:"gt=0"`
	CachePrefix  string        `mapstructure:"cache_prefix" json:"cache_prefix" validate:"required"`
	CountPrefix  string        `mapstructure:"count_prefix" json:"count_prefix" validate:"required"`
	CounterMode  string        `mapstructure:"counter_mode" json:"counter_mode" validate:"oneof=total since_refresh"`
	CounterTTL   time.Duration `mapstructure:"counter_ttl" json:"counter_ttl" validate:"min=0"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" json:"fetch_timeout" validate:"min=0"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" json:"max_body_bytes" validate:"min=0"`
}

// MaintenanceConfig schedules background jobs.
type MaintenanceConfig struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled"`
	PurgeSchedule string `mapstructure:"purge_schedule" json:"purge_schedule"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus" json:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check" json:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
// config.yaml is searched in ./config and then in every supplied directory.
func LoadConfig(paths ...string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	return load(v)
}

// LoadConfigFile reads configuration from an explicit file, applying the same defaults and
// environment overrides as LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	config.normalise()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) normalise() {
	c.Server.LogLevel = strings.ToLower(strings.TrimSpace(c.Server.LogLevel))
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.PageCache.CounterMode = strings.ToLower(strings.TrimSpace(c.PageCache.CounterMode))
	c.Maintenance.PurgeSchedule = strings.TrimSpace(c.Maintenance.PurgeSchedule)
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "auto"
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if err := validator.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	if c.Cache.Backend == "redis" && !c.Cache.Redis.Enabled {
		return errors.New("config: invalid: cache.backend is redis but cache.redis.enabled is false")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests", 120)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/callcache.sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.postgres.enabled", false)
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.username", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.tls_mode", "")
	v.SetDefault("database.mysql.enabled", false)
	v.SetDefault("database.mysql.host", "")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.database", "")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.tls_mode", "")

	v.SetDefault("cache.backend", "auto")
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.key_prefix", "")

	v.SetDefault("value_cache.flush_on_start", false)

	v.SetDefault("page_cache.ttl", "10s")
	v.SetDefault("page_cache.cache_prefix", "cached")
	v.SetDefault("page_cache.count_prefix", "count")
	v.SetDefault("page_cache.counter_mode", "total")
	v.SetDefault("page_cache.counter_ttl", "0s")
	v.SetDefault("page_cache.fetch_timeout", "30s")
	v.SetDefault("page_cache.max_body_bytes", 10<<20)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.purge_schedule", "@every 1m")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
