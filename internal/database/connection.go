package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/smarttransit/busticket-web/internal/config"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// DB interface defines database operations
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
	DriverName() string
	Ping() error
	Close() error
}

// SQLDB implements the DB interface using sqlx
type SQLDB struct {
	*sqlx.DB
}

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// driverName maps a session store kind to its database/sql driver
func driverName(store string) (string, error) {
	switch store {
	case config.SessionStorePostgres:
		return "postgres", nil
	case config.SessionStoreMySQL:
		return "mysql", nil
	case config.SessionStoreSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported session store driver: %s", store)
	}
}

// prepareDSN adds the driver parameters the session repository relies on
func prepareDSN(driver, dsn string) string {
	withParam := func(dsn, key, param string) string {
		if strings.Contains(dsn, key) {
			return dsn
		}
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		return dsn + separator + param
	}

	switch driver {
	case "postgres":
		// Connection poolers (Supavisor, pgbouncer) reject the extended protocol
		// for unnamed statements
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			return withParam(dsn, "prefer_simple_protocol", "prefer_simple_protocol=true")
		}
	case "mysql":
		// DATETIME columns scan into time.Time only with parseTime
		return withParam(dsn, "parseTime", "parseTime=true")
	case "sqlite":
		return withParam(dsn, "_pragma=busy_timeout", "_pragma=busy_timeout(5000)")
	}
	return dsn
}

// NewConnection creates a new database connection for the given session store
func NewConnection(store string, cfg config.DatabaseConfig) (DB, error) {
	// Parse and validate connection string
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	driver, err := driverName(store)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driver, prepareDSN(driver, cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	if driver == "sqlite" {
		// SQLite allows a single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLDB{DB: db}, nil
}
