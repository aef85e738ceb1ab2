// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database drivers accepted in DB_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (dev, test, prod)
	Port           string // HTTP port to listen on
	LogLevel       string // zerolog level name
	DBDriver       string // mysql or sqlite
	DBUser         string
	DBPass         string // optional
	DBHost         string
	DBPort         string
	DBName         string
	SQLitePath     string // database file when DBDriver is sqlite
	JWTSecret      string // secret used to sign admin JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // cost used by calendarctl hash-password

	AdminUsername     string
	AdminPasswordHash string // bcrypt hash of the admin password

	AMQPURL         string // empty disables event publishing
	ConsumerEnabled bool   // run the audit consumer inside the server
	AuditLogPath    string // where the audit consumer appends lines
	MetricsEnabled  bool
}

// Load reads configuration values from environment variables. Every missing
// or malformed required variable is reported in the returned error.
func Load() (Config, error) {
	var l loader
	cfg := Config{
		Env:               envStr("APP_ENV", "dev"),
		Port:              envStr("APP_PORT", "8080"),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		DBDriver:          strings.ToLower(envStr("DB_DRIVER", DriverSQLite)),
		DBPass:            os.Getenv("DB_PASS"),
		SQLitePath:        envStr("SQLITE_PATH", "data/calendar.db"),
		JWTSecret:         l.must("JWT_SECRET"),
		AccessTTLMin:      l.mustInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:    l.mustInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:        l.mustInt("BCRYPT_COST", 12),
		AdminUsername:     envStr("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: l.must("ADMIN_PASSWORD_HASH"),
		AMQPURL:           os.Getenv("AMQP_URL"),
		ConsumerEnabled:   envBool("AUDIT_CONSUMER_ENABLED", false),
		AuditLogPath:      envStr("AUDIT_LOG_PATH", "logs/booking.log"),
		MetricsEnabled:    envBool("METRICS_ENABLED", true),
	}

	l.database(&cfg)
	return cfg, errors.Join(l.errs...)
}

// LoadDatabase reads only what is needed to reach the booking store and the
// broker. The admin CLI uses it so it runs without the HTTP secrets.
func LoadDatabase() (Config, error) {
	var l loader
	cfg := Config{
		Env:          envStr("APP_ENV", "dev"),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		DBDriver:     strings.ToLower(envStr("DB_DRIVER", DriverSQLite)),
		DBPass:       os.Getenv("DB_PASS"),
		SQLitePath:   envStr("SQLITE_PATH", "data/calendar.db"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AuditLogPath: envStr("AUDIT_LOG_PATH", "logs/booking.log"),
	}
	l.database(&cfg)
	return cfg, errors.Join(l.errs...)
}

func (l *loader) database(cfg *Config) {
	switch cfg.DBDriver {
	case DriverMySQL:
		cfg.DBUser = l.must("DB_USER")
		cfg.DBHost = l.must("DB_HOST")
		cfg.DBPort = l.must("DB_PORT")
		cfg.DBName = l.must("DB_NAME")
	case DriverSQLite:
	default:
		l.errs = append(l.errs, fmt.Errorf("unsupported DB_DRIVER: %q", cfg.DBDriver))
	}
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "development" }

type loader struct{ errs []error }

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// mustInt falls back to def when key is unset but rejects values that are
// not integers.
func (l *loader) mustInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}
