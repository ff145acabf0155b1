// Package store is the SQL persistence layer for users, disposals and the
// global impact aggregate. It runs on PostgreSQL through pgx or on SQLite
// through the pure-Go modernc driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// Register the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	// Register the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/rshade/descartecerto/internal/config"
	"github.com/rshade/descartecerto/internal/logging"
)

// database/sql driver names.
const (
	driverPgx    = "pgx"
	driverSQLite = "sqlite"
)

const pingTimeout = 5 * time.Second

// ErrUnsupportedDriver is returned by Open for an unknown database driver.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

//nolint:gochecknoinits // sqlx has no built-in bind type for modernc's driver name.
func init() {
	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
}

// Store implements impact.Store on a SQL database.
type Store struct {
	db     *sqlx.DB
	sqlite bool
}

// Open connects to the database described by cfg, applies pool settings and
// verifies the connection. SQLite is limited to a single connection so that
// every transaction is serialized.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	var (
		driverName string
		dsn        = cfg.DSN
		sqlite     bool
	)
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		driverName = driverPgx
	case config.DriverSQLite:
		driverName = driverSQLite
		dsn = sqliteDSN(cfg.DSN)
		sqlite = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.Driver, err)
	}

	if sqlite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging %s database: %w", cfg.Driver, err)
	}

	log := logging.FromContext(ctx)
	log.Debug().
		Ctx(ctx).
		Str("component", "store").
		Str("driver", cfg.Driver).
		Msg("database connection established")

	return &Store{db: db, sqlite: sqlite}, nil
}

// sqliteDSN adds the connection parameters the store relies on unless the
// DSN already sets them: a busy timeout, foreign keys, a parseable time
// format and BEGIN IMMEDIATE transactions.
func sqliteDSN(dsn string) string {
	params := []struct{ key, value string }{
		{"_pragma=busy_timeout", "_pragma=busy_timeout(5000)"},
		{"_pragma=foreign_keys", "_pragma=foreign_keys(1)"},
		{"_time_format=", "_time_format=sqlite"},
		{"_txlock=", "_txlock=immediate"},
	}

	var extra []string
	for _, p := range params {
		if !strings.Contains(dsn, p.key) {
			extra = append(extra, p.value)
		}
	}
	if len(extra) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(extra, "&")
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the connection pool, mainly for tests.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// withTx runs fn in a transaction, committing on success and rolling back on
// any error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
