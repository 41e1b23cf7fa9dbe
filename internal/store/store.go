package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"corisa-backend/internal/config"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// Store persists schema snapshots and instrumentation events in SQLite or PostgreSQL.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// New opens and pings the configured database. The memory driver has no
// backing store and is rejected.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	if cfg.IsMemory() {
		return nil, fmt.Errorf("open database: driver %q has no backing store", cfg.Driver)
	}
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, ok := dialect.(SQLiteDialect); ok && cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open(dialect.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{DB: db, Dialect: dialect}
	if err := s.configure(ctx, cfg); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure(ctx context.Context, cfg config.DatabaseConfig) error {
	switch s.Dialect.(type) {
	case SQLiteDialect:
		// one writer; WAL keeps readers unblocked
		s.DB.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := s.DB.ExecContext(ctx, pragma); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
	default:
		if cfg.PoolSize > 0 {
			s.DB.SetMaxOpenConns(cfg.PoolSize)
			s.DB.SetMaxIdleConns(cfg.PoolSize)
		}
		s.DB.SetConnMaxIdleTime(5 * time.Minute)
	}
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.Dialect.Name(), err)
	}
	return nil
}

func (s *Store) Close() {
	s.DB.Close()
}

// row is one result row keyed by column name.
type row map[string]any

func (s *Store) queryRows(ctx context.Context, query string, args ...any) ([]row, error) {
	rs, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.Dialect.MapError(err)
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	var out []row
	for rs.Next() {
		cells := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, err
		}
		r := make(row, len(cols))
		for i, c := range cols {
			r[c] = cells[i]
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) (row, error) {
	rows, err := s.queryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.Dialect.MapError(err)
	}
	return res.RowsAffected()
}

// Column decoding. Drivers disagree on how TEXT, timestamps and numbers come
// back, so each accessor accepts every shape either driver produces.

func (r row) str(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case [16]byte:
		return uuid.UUID(v).String()
	default:
		return fmt.Sprint(v)
	}
}

func (r row) optStr(col string) *string {
	if r[col] == nil {
		return nil
	}
	v := r.str(col)
	return &v
}

func (r row) integer(col string) int {
	switch v := r[col].(type) {
	case int64:
		return int(v)
	case int32:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (r row) optFloat(col string) *float64 {
	var f float64
	switch v := r[col].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return nil
	}
	return &f
}

var timeLayouts = []string{sqliteTimeLayout, time.RFC3339Nano, time.RFC3339}

func (r row) timestamp(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v.UTC()
	case string, []byte:
		text := r.str(col)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}
