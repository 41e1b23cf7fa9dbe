package store

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Migration is one numbered, forward-only change to the system tables.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// Migrations lists the system table migrations rendered for d, oldest first.
func Migrations(d Dialect) []Migration {
	t := d.Types()
	return []Migration{
		{
			Version: 1,
			Name:    "snapshots",
			Statements: []string{
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS _snapshots (
    id          %s PRIMARY KEY,
    revision    INTEGER NOT NULL UNIQUE,
    source      TEXT NOT NULL,
    document    %s NOT NULL,
    plan        %s,
    report      %s,
    created_at  %s NOT NULL DEFAULT %s
)`, t.ID, t.JSON, t.JSON, t.JSON, t.Time, t.Now),
				"CREATE INDEX IF NOT EXISTS idx_snapshots_revision ON _snapshots (revision DESC)",
			},
		},
		{
			Version: 2,
			Name:    "events",
			Statements: []string{
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS _events (
    id              %s PRIMARY KEY,
    trace_id        TEXT NOT NULL,
    span_id         TEXT NOT NULL,
    parent_span_id  TEXT,
    event_type      TEXT NOT NULL,
    source          TEXT NOT NULL,
    component       TEXT NOT NULL,
    action          TEXT NOT NULL,
    entity          TEXT,
    record_id       TEXT,
    user_id         TEXT,
    duration_ms     %s,
    status          TEXT,
    metadata        %s,
    created_at      %s NOT NULL DEFAULT %s
)`, t.ID, t.Float, t.JSON, t.Time, t.Now),
				"CREATE INDEX IF NOT EXISTS idx_events_trace ON _events (trace_id)",
				"CREATE INDEX IF NOT EXISTS idx_events_created ON _events (created_at DESC)",
				"CREATE INDEX IF NOT EXISTS idx_events_type_source ON _events (event_type, source)",
			},
		},
	}
}

// Bootstrap applies every pending migration, each in its own transaction,
// and records it in _migrations.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS _migrations (version INTEGER PRIMARY KEY, name TEXT NOT NULL, applied_at %s NOT NULL DEFAULT %s)",
		s.Dialect.Types().Time, s.Dialect.Types().Now)); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range Migrations(s.Dialect) {
		if applied[m.Version] {
			continue
		}
		if err := s.runMigration(ctx, m); err != nil {
			return err
		}
		log.Printf("Applied migration %d (%s)", m.Version, m.Name)
	}
	return nil
}

func (s *Store) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.queryRows(ctx, "SELECT version FROM _migrations")
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	versions := make(map[int]bool, len(rows))
	for _, r := range rows {
		versions[r.integer("version")] = true
	}
	return versions, nil
}

func (s *Store) runMigration(ctx context.Context, m Migration) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.Version, err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %s: %w", m.Version, m.Name, firstLine(stmt), err)
		}
	}
	args := s.Dialect.Args()
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO _migrations (version, name) VALUES (%s, %s)", args.Add(m.Version), args.Add(m.Name)),
		args.Values()...); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.Version, err)
	}
	return nil
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return strings.TrimSpace(stmt[:i])
	}
	return stmt
}
