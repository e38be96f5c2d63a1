package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// dialect hides the few differences between Postgres and SQLite
type dialect struct {
	driver string
}

func newDialect(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
		return dialect{driver: driver}, nil
	}
	return dialect{}, fmt.Errorf("unsupported catalog driver %q", driver)
}

func (d dialect) postgres() bool { return d.driver == DriverPostgres }

// rebind rewrites ? placeholders to $n for Postgres. Queries must not contain
// literal question marks.
func (d dialect) rebind(query string) string {
	if !d.postgres() {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) timestampType() string {
	if d.postgres() {
		return "TIMESTAMPTZ"
	}
	return "TIMESTAMP"
}

func (d dialect) floatType() string {
	if d.postgres() {
		return "DOUBLE PRECISION"
	}
	return "REAL"
}

func (d dialect) tableExistsQuery() string {
	if d.postgres() {
		return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
	}
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
}

// prepareDSN creates the parent directory of file-backed SQLite databases
// and turns on the pragmas the catalog relies on.
func prepareDSN(driver, dsn string) (string, error) {
	if driver != DriverSQLite {
		return dsn, nil
	}
	if strings.Contains(dsn, "?") {
		return dsn, nil
	}

	const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return "file::memory:?" + pragmas, nil
	}

	path := strings.TrimPrefix(dsn, "file:")
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create db directory: %w", err)
		}
	}
	return "file:" + path + "?" + pragmas + "&_pragma=journal_mode(WAL)", nil
}
