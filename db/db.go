// ABOUTME: Database connection management and initialization
// ABOUTME: Opens SQLite (WAL, XDG path) or Postgres stores and runs migrations
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects the SQL flavour of the underlying connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Store wraps a database handle with the dialect it was opened with.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// DefaultPath returns the XDG-compliant SQLite location.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "pulse", "pulse.db")
}

// OpenDatabase opens (and migrates) a SQLite store at path.
func OpenDatabase(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite (avoid database locked errors)
	sqlDB.SetMaxOpenConns(1)

	store := &Store{db: sqlDB, dialect: DialectSQLite, now: time.Now}
	if err := Migrate(store); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return store, nil
}

// OpenPostgres opens (and migrates) a Postgres store. When resolver is non-nil
// it replaces the driver's host lookup.
func OpenPostgres(ctx context.Context, dsn string, resolver *Resolver) (*Store, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if resolver != nil {
		cfg.LookupFunc = resolver.Lookup
	}

	sqlDB := stdlib.OpenDB(*cfg)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{db: sqlDB, dialect: DialectPostgres, now: time.Now}
	if err := Migrate(store); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return store, nil
}

// Open picks the backend from url: empty or a file path means SQLite,
// postgres:// or postgresql:// means Postgres.
func Open(ctx context.Context, url, sqlitePath string, resolver *Resolver) (*Store, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return OpenPostgres(ctx, url, resolver)
	}
	if url != "" {
		sqlitePath = strings.TrimPrefix(url, "sqlite://")
	}
	if sqlitePath == "" {
		sqlitePath = DefaultPath()
	}
	return OpenDatabase(sqlitePath)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for tests and ad-hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// SetClock overrides the store's notion of now (created_at, updated_at).
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// rebind rewrites ? placeholders into the $n form Postgres expects.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
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

func (s *Store) exec(ctx context.Context, q execer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// utc normalizes timestamps before they reach the driver so that SQLite's
// textual comparison matches chronological order.
func utc(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return utc(*t)
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
