package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Snapshot is one committed revision of the schema document.
type Snapshot struct {
	ID        string          `json:"id"`
	Revision  int             `json:"revision"`
	Source    string          `json:"source"`
	Document  json.RawMessage `json:"document,omitempty"`
	Plan      json.RawMessage `json:"plan,omitempty"`
	Report    json.RawMessage `json:"report,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SaveSnapshot inserts snap, filling in its ID and CreatedAt when unset.
// A revision that already exists yields ErrUniqueViolation.
func (s *Store) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	args := s.Dialect.Args()
	query := fmt.Sprintf(
		"INSERT INTO _snapshots (id, revision, source, document, plan, report, created_at) VALUES (%s, %s, %s, %s, %s, %s, %s)",
		args.Add(snap.ID), args.Add(snap.Revision), args.Add(snap.Source), args.Add(string(snap.Document)),
		args.Add(rawParam(snap.Plan)), args.Add(rawParam(snap.Report)), args.Add(s.Dialect.TimeParam(snap.CreatedAt)),
	)
	if _, err := s.exec(ctx, query, args.Values()...); err != nil {
		return fmt.Errorf("save snapshot %d: %w", snap.Revision, err)
	}
	return nil
}

// LatestSnapshot returns the snapshot with the highest revision, or ErrNotFound.
func (s *Store) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	r, err := s.queryRow(ctx, "SELECT "+snapshotColumns+" FROM _snapshots ORDER BY revision DESC LIMIT 1")
	if err != nil {
		return nil, err
	}
	return snapshotFromRow(r)
}

// GetSnapshot returns the snapshot for revision, or ErrNotFound.
func (s *Store) GetSnapshot(ctx context.Context, revision int) (*Snapshot, error) {
	args := s.Dialect.Args()
	r, err := s.queryRow(ctx,
		"SELECT "+snapshotColumns+" FROM _snapshots WHERE revision = "+args.Add(revision), args.Values()...)
	if err != nil {
		return nil, err
	}
	return snapshotFromRow(r)
}

// ListSnapshots returns up to limit snapshots, newest first, without their documents.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	args := s.Dialect.Args()
	rows, err := s.queryRows(ctx,
		"SELECT id, revision, source, plan, report, created_at FROM _snapshots ORDER BY revision DESC LIMIT "+args.Add(limit),
		args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	result := make([]Snapshot, 0, len(rows))
	for _, r := range rows {
		snap, err := snapshotFromRow(r)
		if err != nil {
			return nil, err
		}
		result = append(result, *snap)
	}
	return result, nil
}

const snapshotColumns = "id, revision, source, document, plan, report, created_at"

func snapshotFromRow(r row) (*Snapshot, error) {
	snap := &Snapshot{
		ID:        r.str("id"),
		Revision:  r.integer("revision"),
		Source:    r.str("source"),
		CreatedAt: r.timestamp("created_at"),
	}
	for col, dst := range map[string]*json.RawMessage{"document": &snap.Document, "plan": &snap.Plan, "report": &snap.Report} {
		raw, err := rawJSON(r[col])
		if err != nil {
			return nil, fmt.Errorf("snapshot %d %s: %w", snap.Revision, col, err)
		}
		*dst = raw
	}
	return snap, nil
}

func rawParam(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// rawJSON accepts a JSON column as text or as a value the driver already decoded.
func rawJSON(v any) (json.RawMessage, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return json.RawMessage(val), nil
	case []byte:
		return json.RawMessage(val), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}
