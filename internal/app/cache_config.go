package app

import (
	"strings"

	"github.com/charlesng35/callcache/internal/cache"
	"github.com/charlesng35/callcache/internal/database"
	"github.com/charlesng35/callcache/internal/pagecache"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:   strings.TrimSpace(c.Redis.Address),
		Username:  strings.TrimSpace(c.Redis.Username),
		Password:  c.Redis.Password,
		DB:        c.Redis.DB,
		TLS:       c.Redis.TLS,
		Timeout:   c.Redis.Timeout,
		KeyPrefix: c.Redis.KeyPrefix,
	}
}

// ConnectionConfig converts the database section into database.Config, picking the host
// settings of the selected driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var auth DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = c.Postgres
	case "mysql":
		auth = c.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = auth.Password
	dbCfg.TLSMode = strings.ToLower(strings.TrimSpace(auth.TLSMode))
	return dbCfg
}

// Options converts the page cache section into pagecache.Options.
func (c PageCacheConfig) Options() (pagecache.Options, error) {
	mode, err := pagecache.ParseCounterMode(c.CounterMode)
	if err != nil {
		return pagecache.Options{}, err
	}
	return pagecache.Options{
		TTL:         c.TTL,
		CachePrefix: c.CachePrefix,
		CountPrefix: c.CountPrefix,
		CounterMode: mode,
		CounterTTL:  c.CounterTTL,
	}, nil
}
