package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Options configure Open. Zero values fall back to the defaults below.
type Options struct {
	Pool PoolConfig
	// SlowThreshold is the query duration logged as slow.
	SlowThreshold time.Duration
	Logger        *slog.Logger
}

// DefaultPool is used when Options.Pool is zero.
var DefaultPool = PoolConfig{
	MaxOpenConns:    20,
	MaxIdleConns:    10,
	ConnMaxLifetime: 5 * time.Minute,
}

const defaultSlowThreshold = 500 * time.Millisecond

// Init opens the preparation store with default options.
func Init(databaseURL string, logger *slog.Logger) (*gorm.DB, error) {
	return Open(databaseURL, Options{Logger: logger})
}

// Open connects to Postgres, pinning the session time zone to UTC.
func Open(databaseURL string, opts Options) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	opts = opts.withDefaults()

	dsn, err := ensureTimezoneUTC(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(opts.Logger, opts.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.Pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.Pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.Pool.ConnMaxLifetime)

	return db, nil
}

func (o Options) withDefaults() Options {
	if o.Pool == (PoolConfig{}) {
		o.Pool = DefaultPool
	}
	if o.SlowThreshold <= 0 {
		o.SlowThreshold = defaultSlowThreshold
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// slogWriter feeds gorm's logger into slog at warn level.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "gorm")
}

func newGormLogger(logger *slog.Logger, slow time.Duration) gormlogger.Interface {
	return gormlogger.New(slogWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Ping checks the connection within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not configured")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close gracefully closes the database connection
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// ensureTimezoneUTC ensures the database URL has TimeZone=UTC parameter
func ensureTimezoneUTC(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	if q.Get("TimeZone") == "" {
		q.Set("TimeZone", "UTC")
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
