package store

import (
	"fmt"
	"strconv"
	"time"
)

// Dialect is the per-database surface the store needs: placeholders, column
// types, time encoding and error classification.
type Dialect interface {
	Name() string
	DriverName() string

	// Args starts an empty argument list using the dialect's placeholder style.
	Args() *Args

	// Types names the column types used by the system table migrations.
	Types() ColumnTypes

	// TimeParam encodes t so it compares correctly against the database clock.
	TimeParam(t time.Time) any

	// OlderThan renders a predicate matching rows whose col is more than days old.
	OlderThan(col string, args *Args, days int) string

	// MapError wraps driver errors that correspond to a store sentinel.
	MapError(err error) error
}

// ColumnTypes holds the handful of column types that differ between databases.
type ColumnTypes struct {
	ID    string
	JSON  string
	Float string
	Time  string
	Now   string
}

// Args collects positional query arguments.
type Args struct {
	prefix string
	values []any
}

// Add appends v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.values = append(a.values, v)
	return a.prefix + strconv.Itoa(len(a.values))
}

// Values returns the collected arguments in placeholder order.
func (a *Args) Values() []any { return a.values }

// Len reports how many arguments have been added.
func (a *Args) Len() int { return len(a.values) }

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return SQLiteDialect{}, nil
	case "postgres", "postgresql", "pgx":
		return PostgresDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}
