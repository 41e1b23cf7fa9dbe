package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"corisa-backend/internal/config"
	"corisa-backend/internal/instrument"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := New(ctx, config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "test"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return s
}

func TestMapError_PG_UniqueViolation(t *testing.T) {
	dialect := PostgresDialect{}
	pgErr := &pgconn.PgError{
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint \"_snapshots_revision_key\"",
		ConstraintName: "_snapshots_revision_key",
	}
	mapped := dialect.MapError(fmt.Errorf("exec: %w", pgErr))

	if !errors.Is(mapped, ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation, got: %v", mapped)
	}
	var extracted *pgconn.PgError
	if !errors.As(mapped, &extracted) {
		t.Fatal("expected pgconn.PgError to still be extractable via errors.As")
	}
}

func TestMapError_OtherAndNil(t *testing.T) {
	for _, d := range []Dialect{PostgresDialect{}, SQLiteDialect{}} {
		err := fmt.Errorf("some other error")
		if mapped := d.MapError(err); mapped != err {
			t.Fatalf("%s: expected same error back, got: %v", d.Name(), mapped)
		}
		if mapped := d.MapError(nil); mapped != nil {
			t.Fatalf("%s: expected nil, got: %v", d.Name(), mapped)
		}
	}
}

func TestArgs_Placeholders(t *testing.T) {
	pg, err := DialectFor("postgres")
	if err != nil {
		t.Fatalf("postgres dialect: %v", err)
	}
	if ph := pg.Args().Add("a"); ph != "$1" {
		t.Fatalf("expected $1, got %s", ph)
	}
	sq, _ := DialectFor("sqlite")
	args := sq.Args()
	args.Add("a")
	if ph := args.Add("b"); ph != "?2" {
		t.Fatalf("expected ?2, got %s", ph)
	}
	if args.Len() != 2 || len(args.Values()) != 2 {
		t.Fatalf("expected 2 args, got %d", args.Len())
	}
	if _, err := DialectFor("mysql"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOlderThan(t *testing.T) {
	args := SQLiteDialect{}.Args()
	if got := (SQLiteDialect{}).OlderThan("created_at", args, 7); got != "created_at < datetime('now', ?1)" {
		t.Fatalf("unexpected sqlite predicate: %s", got)
	}
	if args.Values()[0] != "-7 days" {
		t.Fatalf("unexpected sqlite arg: %v", args.Values()[0])
	}
	args = PostgresDialect{}.Args()
	if got := (PostgresDialect{}).OlderThan("created_at", args, 7); got != "created_at < now() - make_interval(days => $1)" {
		t.Fatalf("unexpected postgres predicate: %s", got)
	}
}

func TestBootstrap_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	versions, err := s.appliedVersions(ctx)
	if err != nil {
		t.Fatalf("applied versions: %v", err)
	}
	if len(versions) != len(Migrations(s.Dialect)) {
		t.Fatalf("expected %d applied migrations, got %v", len(Migrations(s.Dialect)), versions)
	}
}

func TestNew_MemoryDriverRejected(t *testing.T) {
	if _, err := New(context.Background(), config.DatabaseConfig{Driver: "memory"}); err == nil {
		t.Fatal("expected error for memory driver")
	}
}

func TestSnapshots_SaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestSnapshot(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty table, got: %v", err)
	}

	for rev := 1; rev <= 3; rev++ {
		snap := &Snapshot{
			Revision: rev,
			Source:   "plan",
			Document: json.RawMessage(fmt.Sprintf(`{"app":{"name":"v%d"}}`, rev)),
			Report:   json.RawMessage(`{"applied":1}`),
		}
		if err := s.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("save revision %d: %v", rev, err)
		}
		if snap.ID == "" {
			t.Fatal("expected generated snapshot id")
		}
	}

	latest, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Revision != 3 {
		t.Fatalf("expected revision 3, got %d", latest.Revision)
	}
	if string(latest.Document) != `{"app":{"name":"v3"}}` {
		t.Fatalf("unexpected document: %s", latest.Document)
	}
	if latest.Plan != nil {
		t.Fatalf("expected nil plan, got %s", latest.Plan)
	}
	if time.Since(latest.CreatedAt) > time.Minute {
		t.Fatalf("unexpected created_at: %v", latest.CreatedAt)
	}

	second, err := s.GetSnapshot(ctx, 2)
	if err != nil {
		t.Fatalf("get revision 2: %v", err)
	}
	if string(second.Document) != `{"app":{"name":"v2"}}` {
		t.Fatalf("unexpected document: %s", second.Document)
	}
	if _, err := s.GetSnapshot(ctx, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}

	list, err := s.ListSnapshots(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Revision != 3 || list[1].Revision != 2 {
		t.Fatalf("expected revisions [3 2], got %+v", list)
	}
	if list[0].Document != nil {
		t.Fatal("expected list entries without documents")
	}
}

func TestSnapshots_DuplicateRevision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	snap := Snapshot{Revision: 1, Source: "import", Document: json.RawMessage(`{}`)}
	if err := s.SaveSnapshot(ctx, &snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	dup := Snapshot{Revision: 1, Source: "import", Document: json.RawMessage(`{}`)}
	if err := s.SaveSnapshot(ctx, &dup); !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation, got: %v", err)
	}
}

func TestEvents_InsertListDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parent := "span-1"
	dur := 12.5
	ok := "ok"
	now := time.Now().UTC()
	events := []instrument.Event{
		{ID: "e1", TraceID: "t1", SpanID: "span-1", EventType: "system", Source: "http", Component: "handler", Action: "request", DurationMs: &dur, Status: &ok, CreatedAt: now},
		{ID: "e2", TraceID: "t1", SpanID: "span-2", ParentSpanID: &parent, EventType: "system", Source: "engine", Component: "commit", Action: "apply", Metadata: map[string]any{"applied": 2}, CreatedAt: now.Add(time.Second)},
		{ID: "e3", TraceID: "t2", SpanID: "span-3", EventType: "business", Source: "business", Component: "api", Action: "plan.committed", CreatedAt: now.AddDate(0, 0, -30)},
	}
	if err := s.InsertEvents(ctx, events); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, total, err := s.ListEvents(ctx, instrument.EventFilter{TraceID: "t1", Ascending: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("expected 2 events, got %d (total %d)", len(got), total)
	}
	if got[0].ID != "e1" || got[1].ID != "e2" {
		t.Fatalf("expected ascending order e1,e2, got %s,%s", got[0].ID, got[1].ID)
	}
	if got[0].DurationMs == nil || *got[0].DurationMs != 12.5 {
		t.Fatalf("expected duration 12.5, got %v", got[0].DurationMs)
	}
	if got[1].ParentSpanID == nil || *got[1].ParentSpanID != "span-1" {
		t.Fatalf("expected parent span-1, got %v", got[1].ParentSpanID)
	}
	if got[1].Metadata["applied"] != float64(2) {
		t.Fatalf("expected metadata applied=2, got %v", got[1].Metadata)
	}

	deleted, err := s.DeleteEventsOlderThan(ctx, 7)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted event, got %d", deleted)
	}
	_, total, err = s.ListEvents(ctx, instrument.EventFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 remaining events, got %d", total)
	}
}
