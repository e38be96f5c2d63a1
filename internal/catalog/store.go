// Package catalog is the offer catalog storage used by the ingestion API.
//
// It runs on Postgres (pgx) in production and on SQLite for local runs and
// tests. Optional tables are detected once when the store is opened.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/law-makers/adscout/internal/retry"
	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned by lookups that match no row
	ErrNotFound = errors.New("catalog: not found")
)

// Capabilities tells which optional tables this deployment has
type Capabilities struct {
	Niches  bool
	Metrics bool
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the catalog database handle
type Store struct {
	db     *sql.DB
	d      dialect
	caps   Capabilities
	logger zerolog.Logger
	now    func() time.Time
}

// Open connects to the catalog, waiting for the database with exponential
// backoff, and detects the optional tables.
func Open(ctx context.Context, driver, dsn string, logger zerolog.Logger) (*Store, error) {
	d, err := newDialect(driver)
	if err != nil {
		return nil, err
	}
	dsn, err = prepareDSN(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// one writer at a time; also keeps :memory: databases on a single connection
		db.SetMaxOpenConns(1)
	}

	err = retry.WithRetry(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
		return classifyPing(db.PingContext(ctx))
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to catalog: %w", err)
	}

	s := &Store{db: db, d: d, logger: logger, now: time.Now}
	if err := s.Refresh(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the database/sql driver name in use
func (s *Store) Driver() string {
	return s.d.driver
}

// Capabilities returns the optional tables detected by the last Refresh
func (s *Store) Capabilities() Capabilities {
	return s.caps
}

// Refresh re-detects the optional tables, e.g. after Migrate
func (s *Store) Refresh(ctx context.Context) error {
	niches, err := s.tableExists(ctx, "niches")
	if err != nil {
		return err
	}
	metrics, err := s.tableExists(ctx, "offer_scalability_metrics")
	if err != nil {
		return err
	}
	s.caps = Capabilities{Niches: niches, Metrics: metrics}

	if !niches {
		s.logger.Warn().Msg("niches table not found, offers will be stored without a niche")
	}
	if !metrics {
		s.logger.Warn().Msg("offer_scalability_metrics table not found, metrics sync disabled")
	}
	return nil
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.d.tableExistsQuery(), name).Scan(&n); err != nil {
		return false, fmt.Errorf("inspect schema for %s: %w", name, err)
	}
	return n > 0, nil
}

// InTx runs fn inside a transaction, committing when fn returns nil
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	tx := &Tx{tx: sqlTx, s: s}

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Tx is a catalog transaction
type Tx struct {
	tx *sql.Tx
	s  *Store
}

func (t *Tx) q() querier { return t.tx }

// classifyPing marks connection errors that waiting will not fix: bad
// credentials (class 28) and a missing database (3D000).
func classifyPing(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (strings.HasPrefix(pgErr.Code, "28") || pgErr.Code == "3D000") {
		return retry.Permanent(err)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint failure on either backend
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
