package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresDialect targets PostgreSQL through the pgx database/sql driver.
type PostgresDialect struct{}

func (PostgresDialect) Name() string       { return "postgres" }
func (PostgresDialect) DriverName() string { return "pgx" }
func (PostgresDialect) Args() *Args        { return &Args{prefix: "$"} }

func (PostgresDialect) Types() ColumnTypes {
	return ColumnTypes{ID: "UUID", JSON: "JSONB", Float: "DOUBLE PRECISION", Time: "TIMESTAMPTZ", Now: "now()"}
}

func (PostgresDialect) TimeParam(t time.Time) any { return t.UTC() }

func (PostgresDialect) OlderThan(col string, args *Args, days int) string {
	return fmt.Sprintf("%s < now() - make_interval(days => %s)", col, args.Add(days))
}

func (PostgresDialect) MapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}
