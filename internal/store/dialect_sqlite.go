package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// sqlite extended result codes for constraint failures.
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// SQLiteDialect targets modernc.org/sqlite.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string       { return "sqlite" }
func (SQLiteDialect) DriverName() string { return "sqlite" }
func (SQLiteDialect) Args() *Args        { return &Args{prefix: "?"} }

func (SQLiteDialect) Types() ColumnTypes {
	return ColumnTypes{ID: "TEXT", JSON: "TEXT", Float: "REAL", Time: "TEXT", Now: "(datetime('now'))"}
}

// TimeParam matches the layout datetime('now') produces so text comparison orders correctly.
func (SQLiteDialect) TimeParam(t time.Time) any {
	return t.UTC().Format(sqliteTimeLayout)
}

func (SQLiteDialect) OlderThan(col string, args *Args, days int) string {
	return fmt.Sprintf("%s < datetime('now', %s)", col, args.Add(fmt.Sprintf("-%d days", days)))
}

func (SQLiteDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		if c := coded.Code(); c == sqliteConstraintUnique || c == sqliteConstraintPrimaryKey {
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}

const sqliteTimeLayout = "2006-01-02 15:04:05"
