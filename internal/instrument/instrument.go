package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Instrumenter opens spans and records one-shot business events.
type Instrumenter interface {
	StartSpan(ctx context.Context, source, component, action string) (context.Context, Span)
	EmitBusinessEvent(ctx context.Context, action, entity, recordID string, metadata map[string]any)
}

// Span is a timed unit of work. End records it; later calls are ignored.
type Span interface {
	End()
	SetStatus(status string)
	SetMetadata(key string, value any)
	SetEntity(entity, recordID string)
	TraceID() string
	SpanID() string
}

// Event is one recorded span or business event.
type Event struct {
	ID           string         `json:"id"`
	TraceID      string         `json:"trace_id"`
	SpanID       string         `json:"span_id"`
	ParentSpanID *string        `json:"parent_span_id"`
	EventType    string         `json:"event_type"`
	Source       string         `json:"source"`
	Component    string         `json:"component"`
	Action       string         `json:"action"`
	Entity       *string        `json:"entity"`
	RecordID     *string        `json:"record_id"`
	UserID       *string        `json:"user_id"`
	DurationMs   *float64       `json:"duration_ms"`
	Status       *string        `json:"status"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

const (
	EventSystem   = "system"
	EventBusiness = "business"
)

// EventFilter narrows an event listing. Empty fields match everything.
type EventFilter struct {
	Source    string
	Component string
	Action    string
	EventType string
	TraceID   string
	Status    string
	Limit     int
	Offset    int
	Ascending bool
}

// Matches reports whether e passes every non-empty field of f.
func (f EventFilter) Matches(e Event) bool {
	status := ""
	if e.Status != nil {
		status = *e.Status
	}
	pairs := [][2]string{
		{f.Source, e.Source},
		{f.Component, e.Component},
		{f.Action, e.Action},
		{f.EventType, e.EventType},
		{f.TraceID, e.TraceID},
		{f.Status, status},
	}
	for _, p := range pairs {
		if p[0] != "" && p[0] != p[1] {
			return false
		}
	}
	return true
}

// EventSink persists flushed events. The SQL store and MemorySink implement it.
type EventSink interface {
	InsertEvents(ctx context.Context, events []Event) error
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, int, error)
	DeleteEventsOlderThan(ctx context.Context, days int) (int64, error)
}

// Tracer is the buffered Instrumenter installed per request by Middleware.
type Tracer struct {
	buffer *EventBuffer
}

func NewInstrumenter(buffer *EventBuffer) *Tracer {
	return &Tracer{buffer: buffer}
}

// StartSpan opens a span under the context's current span and returns a
// context in which the new span is the parent.
func (t *Tracer) StartSpan(ctx context.Context, source, component, action string) (context.Context, Span) {
	s := &span{
		buffer: t.buffer,
		start:  time.Now(),
		event: Event{
			TraceID:      GetTraceID(ctx),
			SpanID:       uuid.NewString(),
			ParentSpanID: optional(scopeOf(ctx).parentSpanID),
			EventType:    EventSystem,
			Source:       source,
			Component:    component,
			Action:       action,
			UserID:       optional(GetUserID(ctx)),
		},
	}
	return withScope(ctx, func(sc *scope) { sc.parentSpanID = s.event.SpanID }), s
}

// EmitBusinessEvent records an event with no duration under the current span.
func (t *Tracer) EmitBusinessEvent(ctx context.Context, action, entity, recordID string, metadata map[string]any) {
	t.buffer.Enqueue(Event{
		ID:           uuid.NewString(),
		TraceID:      GetTraceID(ctx),
		SpanID:       uuid.NewString(),
		ParentSpanID: optional(scopeOf(ctx).parentSpanID),
		EventType:    EventBusiness,
		Source:       "business",
		Component:    "api",
		Action:       action,
		Entity:       optional(entity),
		RecordID:     optional(recordID),
		UserID:       optional(GetUserID(ctx)),
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	})
}

type span struct {
	mu     sync.Mutex
	buffer *EventBuffer
	start  time.Time
	event  Event
	ended  bool
}

func (s *span) TraceID() string { return s.event.TraceID }
func (s *span) SpanID() string  { return s.event.SpanID }

func (s *span) SetStatus(status string) {
	s.mu.Lock()
	s.event.Status = &status
	s.mu.Unlock()
}

func (s *span) SetMetadata(key string, value any) {
	s.mu.Lock()
	if s.event.Metadata == nil {
		s.event.Metadata = map[string]any{}
	}
	s.event.Metadata[key] = value
	s.mu.Unlock()
}

func (s *span) SetEntity(entity, recordID string) {
	s.mu.Lock()
	s.event.Entity = &entity
	if recordID != "" {
		s.event.RecordID = &recordID
	}
	s.mu.Unlock()
}

func (s *span) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	e := s.event
	s.mu.Unlock()

	ms := float64(time.Since(s.start).Microseconds()) / 1000
	e.ID = uuid.NewString()
	e.DurationMs = &ms
	e.CreatedAt = s.start.UTC()
	s.buffer.Enqueue(e)
}

// Nop discards spans and events. GetInstrumenter falls back to it.
var Nop Instrumenter = nop{}

type nop struct{}

func (nop) StartSpan(ctx context.Context, _, _, _ string) (context.Context, Span) { return ctx, nop{} }
func (nop) EmitBusinessEvent(context.Context, string, string, string, map[string]any) {}
func (nop) End()                                                                    {}
func (nop) SetStatus(string)                                                        {}
func (nop) SetMetadata(string, any)                                                 {}
func (nop) SetEntity(string, string)                                                {}
func (nop) TraceID() string                                                         { return "" }
func (nop) SpanID() string                                                          { return "" }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
