package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// applicationName identifies store connections in pg_stat_activity.
const applicationName = "callcache"

func serverGormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
}

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), serverGormConfig())
}

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), serverGormConfig())
}

func requireCredentials(driver string, cfg Config) error {
	if cfg.User == "" || cfg.Name == "" {
		return fmt.Errorf("%s configuration requires user and database name", driver)
	}
	return nil
}

// buildPostgresDSN renders a keyword/value DSN. Sessions run in UTC because the store
// compares expiry deadlines written in UTC.
func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if err := requireCredentials("postgres", cfg); err != nil {
		return "", err
	}

	sslMode := cfg.TLSMode
	if sslMode == "" {
		sslMode = "disable"
	}

	params := []string{
		"host=" + hostOrDefault(cfg.Host, "localhost"),
		fmt.Sprintf("port=%d", portOrDefault(cfg.Port, 5432)),
		"user=" + cfg.User,
		"dbname=" + cfg.Name,
	}
	if cfg.Password != "" {
		params = append(params, "password="+cfg.Password)
	}
	params = append(params,
		"sslmode="+sslMode,
		"application_name="+applicationName,
		"TimeZone=UTC",
	)
	return strings.Join(params, " "), nil
}

// buildMySQLDSN renders a go-sql-driver DSN with times parsed as UTC.
func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if err := requireCredentials("mysql", cfg); err != nil {
		return "", err
	}

	user := cfg.User
	if cfg.Password != "" {
		user += ":" + cfg.Password
	}

	query := []string{"charset=utf8mb4", "loc=UTC", "parseTime=True"}
	switch cfg.TLSMode {
	case "", "disable":
	case "require":
		query = append(query, "tls=true")
	default:
		query = append(query, "tls="+cfg.TLSMode)
	}

	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s",
		user,
		hostOrDefault(cfg.Host, "127.0.0.1"),
		portOrDefault(cfg.Port, 3306),
		cfg.Name,
		strings.Join(query, "&"),
	), nil
}

func hostOrDefault(host, fallback string) string {
	if host == "" {
		return fallback
	}
	return host
}

func portOrDefault(port, fallback int) int {
	if port <= 0 {
		return fallback
	}
	return port
}

var errNilDB = errors.New("nil database handle")
