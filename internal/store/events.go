package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"corisa-backend/internal/instrument"
)

var _ instrument.EventSink = (*Store)(nil)

var eventColumns = []string{
	"id", "trace_id", "span_id", "parent_span_id", "event_type", "source", "component", "action",
	"entity", "record_id", "user_id", "duration_ms", "status", "metadata", "created_at",
}

// InsertEvents writes a batch of events in one statement.
func (s *Store) InsertEvents(ctx context.Context, events []instrument.Event) error {
	if len(events) == 0 {
		return nil
	}

	args := s.Dialect.Args()
	placeholders := make([]string, 0, len(events))
	for _, e := range events {
		var metaJSON any
		if e.Metadata != nil {
			b, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("encode event metadata: %w", err)
			}
			metaJSON = string(b)
		}
		ph := []string{
			args.Add(e.ID), args.Add(e.TraceID), args.Add(e.SpanID), args.Add(e.ParentSpanID),
			args.Add(e.EventType), args.Add(e.Source), args.Add(e.Component), args.Add(e.Action),
			args.Add(e.Entity), args.Add(e.RecordID), args.Add(e.UserID), args.Add(e.DurationMs),
			args.Add(e.Status), args.Add(metaJSON), args.Add(s.Dialect.TimeParam(e.CreatedAt)),
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
	}

	query := fmt.Sprintf("INSERT INTO _events (%s) VALUES %s",
		strings.Join(eventColumns, ","), strings.Join(placeholders, ","))
	if _, err := s.exec(ctx, query, args.Values()...); err != nil {
		return fmt.Errorf("insert events: %w", err)
	}
	return nil
}

// ListEvents returns one page of events matching filter and the total match count.
func (s *Store) ListEvents(ctx context.Context, filter instrument.EventFilter) ([]instrument.Event, int, error) {
	args := s.Dialect.Args()
	var conditions []string
	for col, v := range map[string]string{
		"source":     filter.Source,
		"component":  filter.Component,
		"action":     filter.Action,
		"event_type": filter.EventType,
		"trace_id":   filter.TraceID,
		"status":     filter.Status,
	} {
		if v != "" {
			conditions = append(conditions, fmt.Sprintf("%s = %s", col, args.Add(v)))
		}
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countRow, err := s.queryRow(ctx, "SELECT COUNT(*) AS count FROM _events"+whereClause, args.Values()...)
	if err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	total := countRow.integer("count")

	orderBy := "created_at DESC"
	if filter.Ascending {
		orderBy = "created_at ASC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	dataSQL := fmt.Sprintf("SELECT %s FROM _events%s ORDER BY %s LIMIT %s OFFSET %s",
		strings.Join(eventColumns, ", "), whereClause, orderBy, args.Add(limit), args.Add(filter.Offset))

	rows, err := s.queryRows(ctx, dataSQL, args.Values()...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	events := make([]instrument.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, eventFromRow(r))
	}
	return events, total, nil
}

// DeleteEventsOlderThan removes events created more than days ago.
func (s *Store) DeleteEventsOlderThan(ctx context.Context, days int) (int64, error) {
	args := s.Dialect.Args()
	n, err := s.exec(ctx, "DELETE FROM _events WHERE "+s.Dialect.OlderThan("created_at", args, days), args.Values()...)
	if err != nil {
		return 0, fmt.Errorf("delete old events: %w", err)
	}
	return n, nil
}

func eventFromRow(r row) instrument.Event {
	e := instrument.Event{
		ID:           r.str("id"),
		TraceID:      r.str("trace_id"),
		SpanID:       r.str("span_id"),
		ParentSpanID: r.optStr("parent_span_id"),
		EventType:    r.str("event_type"),
		Source:       r.str("source"),
		Component:    r.str("component"),
		Action:       r.str("action"),
		Entity:       r.optStr("entity"),
		RecordID:     r.optStr("record_id"),
		UserID:       r.optStr("user_id"),
		DurationMs:   r.optFloat("duration_ms"),
		Status:       r.optStr("status"),
		CreatedAt:    r.timestamp("created_at"),
	}
	if raw, err := rawJSON(r["metadata"]); err == nil && len(raw) > 0 {
		var meta map[string]any
		if json.Unmarshal(raw, &meta) == nil {
			e.Metadata = meta
		}
	}
	return e
}
