package instrument

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"corisa-backend/internal/config"
	"corisa-backend/internal/engine"
)

func TestSpan_EndEnqueuesOnce(t *testing.T) {
	sink := NewMemorySink(0)
	buf := NewEventBuffer(sink, 100, 10000)
	defer buf.Stop()

	inst := NewInstrumenter(buf)
	ctx := WithTraceID(context.Background(), "trace-1")
	ctx, root := inst.StartSpan(ctx, "engine", "commit", "plan")
	_, child := inst.StartSpan(ctx, "engine", "apply", "operations")
	child.SetEntity("pages", "home")
	child.End()
	child.End()
	root.SetStatus("ok")
	root.End()

	if buf.Len() != 2 {
		t.Fatalf("expected 2 buffered events, got %d", buf.Len())
	}
	buf.Flush()

	events, total, err := sink.ListEvents(context.Background(), EventFilter{TraceID: "trace-1", Ascending: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 events, got %d", total)
	}
	for _, e := range events {
		if e.ID == "" || e.CreatedAt.IsZero() {
			t.Fatalf("expected id and created_at, got %+v", e)
		}
	}

	rootNode := BuildTrace(events).Root
	if rootNode == nil || rootNode.SpanID != root.SpanID() {
		t.Fatalf("expected root span %s, got %+v", root.SpanID(), rootNode)
	}
	if len(rootNode.Children) != 1 || *rootNode.Children[0].Entity != "pages" {
		t.Fatalf("expected one child on pages, got %+v", rootNode.Children)
	}
}

func TestGetInstrumenter_DefaultsToNoop(t *testing.T) {
	inst := GetInstrumenter(context.Background())
	if inst != Nop {
		t.Fatalf("expected Nop, got %T", inst)
	}
	_, span := inst.StartSpan(context.Background(), "a", "b", "c")
	span.End()
	if span.TraceID() != "" {
		t.Fatal("expected empty trace id from noop span")
	}
}

func TestEventBuffer_RetriesFailedBatch(t *testing.T) {
	sink := &flakySink{MemorySink: NewMemorySink(0), failures: 1}
	buf := NewEventBuffer(sink, 2, 10000)

	for i := 0; i < 5; i++ {
		buf.Enqueue(Event{ID: string(rune('a' + i)), CreatedAt: time.Now()})
	}
	buf.Stop()
	buf.Stop()

	if buf.Len() != 0 {
		t.Fatalf("expected empty buffer after stop, got %d", buf.Len())
	}
	if sink.failures != 0 || sink.batches < 3 {
		t.Fatalf("expected one failure then at least 3 batches, got failures=%d batches=%d", sink.failures, sink.batches)
	}
	_, total, _ := sink.ListEvents(context.Background(), EventFilter{})
	if total != 5 {
		t.Fatalf("expected 5 stored events, got %d", total)
	}
}

type flakySink struct {
	*MemorySink
	failures int
	batches  int
}

func (s *flakySink) InsertEvents(ctx context.Context, events []Event) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.batches++
	return s.MemorySink.InsertEvents(ctx, events)
}

func TestBuildTrace_OrphansAndErrors(t *testing.T) {
	missing, rootID, errStatus := "gone", "r", "error"
	events := []Event{
		{SpanID: "r"},
		{SpanID: "a", ParentSpanID: &rootID, Status: &errStatus},
		{SpanID: "b", ParentSpanID: &missing},
		{SpanID: "c"},
	}
	tr := BuildTrace(events)
	if tr.Root == nil || tr.Root.SpanID != "r" {
		t.Fatalf("expected root r, got %+v", tr.Root)
	}
	if len(tr.Root.Children) != 3 {
		t.Fatalf("expected child a plus orphans b and c under root, got %d", len(tr.Root.Children))
	}
	if tr.Errors != 1 {
		t.Fatalf("expected 1 error span, got %d", tr.Errors)
	}
	if BuildTrace(nil).Root != nil {
		t.Fatal("expected nil root for empty trace")
	}
}

func TestMemorySink_CapacityAndRetention(t *testing.T) {
	sink := NewMemorySink(3)
	ctx := context.Background()
	now := time.Now().UTC()
	var batch []Event
	for i := 0; i < 5; i++ {
		batch = append(batch, Event{ID: string(rune('a' + i)), Source: "engine", CreatedAt: now.Add(time.Duration(i) * time.Second)})
	}
	batch[2].CreatedAt = now.AddDate(0, 0, -10)
	if err := sink.InsertEvents(ctx, batch); err != nil {
		t.Fatalf("insert: %v", err)
	}

	events, total, _ := sink.ListEvents(ctx, EventFilter{})
	if total != 3 {
		t.Fatalf("expected capacity to cap at 3, got %d", total)
	}
	if events[0].ID != "e" {
		t.Fatalf("expected newest first, got %s", events[0].ID)
	}

	CleanupOldEvents(ctx, sink, 7)
	_, total, _ = sink.ListEvents(ctx, EventFilter{})
	if total != 2 {
		t.Fatalf("expected 2 events after cleanup, got %d", total)
	}

	page, total, _ := sink.ListEvents(ctx, EventFilter{Limit: 1, Offset: 1})
	if total != 2 || len(page) != 1 || page[0].ID != "d" {
		t.Fatalf("unexpected page: %+v (total %d)", page, total)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	sink := NewMemorySink(0)
	buf := NewEventBuffer(sink, 100, 10000)
	defer buf.Stop()

	app := fiber.New(fiber.Config{ErrorHandler: engine.ErrorHandler})
	app.Use(Middleware(config.InstrumentationConfig{Enabled: true, SamplingRate: 1}, buf))
	h := NewEventHandler(sink)
	app.Post("/_events", h.Emit)
	app.Get("/_events", h.List)
	app.Get("/_events/trace/:traceId", h.GetTrace)

	req := httptest.NewRequest("POST", "/_events", strings.NewReader(`{"action":"schema.exported","entity":"schema"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Trace-ID", "trace-http")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Trace-ID") != "trace-http" {
		t.Fatalf("expected trace header to propagate, got %q", resp.Header.Get("X-Trace-ID"))
	}

	bad := httptest.NewRequest("POST", "/_events", strings.NewReader(`{}`))
	bad.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(bad)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422 for missing action, got %d", resp.StatusCode)
	}

	buf.Flush()

	resp, err = app.Test(httptest.NewRequest("GET", "/_events/trace/trace-http", nil))
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	var trace struct {
		Data struct {
			RootSpan TraceNode `json:"root_span"`
			Spans    []Event   `json:"spans"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &trace); err != nil {
		t.Fatalf("decode trace: %v", err)
	}
	if len(trace.Data.Spans) != 2 {
		t.Fatalf("expected request span and business event, got %d", len(trace.Data.Spans))
	}
	if trace.Data.RootSpan.Source != "http" || len(trace.Data.RootSpan.Children) != 1 {
		t.Fatalf("expected http root with one child, got %+v", trace.Data.RootSpan)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/_events/trace/missing", nil))
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/_events?event_type=business", nil))
	body, _ = io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"action":"schema.exported"`) {
		t.Fatalf("expected business event in listing, got %s", body)
	}
}
