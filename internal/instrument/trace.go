package instrument

// TraceNode is one span in a trace waterfall.
type TraceNode struct {
	Event
	Children []*TraceNode `json:"children"`
}

// Trace is a set of events linked by parent span id.
type Trace struct {
	Root   *TraceNode
	Errors int
}

// BuildTrace links events into a tree. Spans whose parent is missing hang off
// the root, which is the earliest parentless event (or the first event).
func BuildTrace(events []Event) Trace {
	var t Trace
	if len(events) == 0 {
		return t
	}
	nodes := make(map[string]*TraceNode, len(events))
	order := make([]*TraceNode, 0, len(events))
	for _, e := range events {
		n := &TraceNode{Event: e, Children: []*TraceNode{}}
		nodes[e.SpanID] = n
		order = append(order, n)
		if e.Status != nil && *e.Status == "error" {
			t.Errors++
		}
	}

	var orphans []*TraceNode
	for _, n := range order {
		parent := ""
		if n.ParentSpanID != nil {
			parent = *n.ParentSpanID
		}
		switch p, ok := nodes[parent]; {
		case ok && p != n:
			p.Children = append(p.Children, n)
		case t.Root == nil && parent == "":
			t.Root = n
		default:
			orphans = append(orphans, n)
		}
	}
	if t.Root == nil {
		t.Root, orphans = orphans[0], orphans[1:]
	}
	for _, n := range orphans {
		if n != t.Root {
			t.Root.Children = append(t.Root.Children, n)
		}
	}
	return t
}
