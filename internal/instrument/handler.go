package instrument

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"corisa-backend/internal/engine"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// EventHandler serves the recorded events over HTTP.
type EventHandler struct {
	sink EventSink
}

func NewEventHandler(sink EventSink) *EventHandler {
	return &EventHandler{sink: sink}
}

// RegisterEventRoutes mounts the event endpoints under /api/_admin/_events.
func RegisterEventRoutes(app fiber.Router, h *EventHandler, middleware ...fiber.Handler) {
	g := app.Group("/api/_admin/_events", middleware...)
	g.Post("/", h.Emit)
	g.Get("/", h.List)
	g.Get("/trace/:traceId", h.GetTrace)
}

type emitRequest struct {
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	RecordID string         `json:"record_id"`
	Metadata map[string]any `json:"metadata"`
}

// Emit records a client-supplied business event in the caller's trace.
func (h *EventHandler) Emit(c *fiber.Ctx) error {
	var req emitRequest
	if err := c.BodyParser(&req); err != nil {
		return engine.InvalidPayloadError("Invalid JSON body")
	}
	if req.Action == "" {
		return engine.ValidationError([]engine.ErrorDetail{{Field: "action", Rule: "required", Message: "action is required"}})
	}

	ctx := c.UserContext()
	GetInstrumenter(ctx).EmitBusinessEvent(ctx, req.Action, req.Entity, req.RecordID, req.Metadata)
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}

type listQuery struct {
	Source    string `query:"source"`
	Component string `query:"component"`
	Action    string `query:"action"`
	EventType string `query:"event_type"`
	TraceID   string `query:"trace_id"`
	Status    string `query:"status"`
	Sort      string `query:"sort"`
	Page      int    `query:"page"`
	PerPage   int    `query:"per_page"`
}

// List pages through events, newest first unless sort=created_at.
func (h *EventHandler) List(c *fiber.Ctx) error {
	var q listQuery
	if err := c.QueryParser(&q); err != nil {
		return engine.InvalidPayloadError(fmt.Sprintf("Invalid query: %v", err))
	}
	q.Page = max(q.Page, 1)
	switch {
	case q.PerPage < 1:
		q.PerPage = defaultPageSize
	case q.PerPage > maxPageSize:
		q.PerPage = maxPageSize
	}

	events, total, err := h.sink.ListEvents(c.UserContext(), EventFilter{
		Source:    q.Source,
		Component: q.Component,
		Action:    q.Action,
		EventType: q.EventType,
		TraceID:   q.TraceID,
		Status:    q.Status,
		Limit:     q.PerPage,
		Offset:    (q.Page - 1) * q.PerPage,
		Ascending: q.Sort == "created_at",
	})
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	return c.JSON(fiber.Map{
		"data":       events,
		"pagination": fiber.Map{"page": q.Page, "per_page": q.PerPage, "total": total},
	})
}

// GetTrace returns every event of one trace as a flat list and as a span tree.
func (h *EventHandler) GetTrace(c *fiber.Ctx) error {
	traceID := c.Params("traceId")
	events, _, err := h.sink.ListEvents(c.UserContext(), EventFilter{TraceID: traceID, Ascending: true})
	if err != nil {
		return fmt.Errorf("get trace %s: %w", traceID, err)
	}
	if len(events) == 0 {
		return engine.NotFoundError("Trace", traceID)
	}

	t := BuildTrace(events)
	return c.JSON(fiber.Map{"data": fiber.Map{
		"trace_id":          traceID,
		"root_span":         t.Root,
		"spans":             events,
		"total_duration_ms": t.Root.DurationMs,
		"error_count":       t.Errors,
	}})
}
