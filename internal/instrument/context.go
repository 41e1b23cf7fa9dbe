package instrument

import "context"

// scope is the per-request tracing state carried in a context. Each With*
// helper stores a modified copy so parent contexts are never mutated.
type scope struct {
	traceID      string
	parentSpanID string
	userID       string
	inst         Instrumenter
}

type scopeKey struct{}

func scopeOf(ctx context.Context) scope {
	if sc, ok := ctx.Value(scopeKey{}).(scope); ok {
		return sc
	}
	return scope{}
}

func withScope(ctx context.Context, edit func(*scope)) context.Context {
	sc := scopeOf(ctx)
	edit(&sc)
	return context.WithValue(ctx, scopeKey{}, sc)
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withScope(ctx, func(sc *scope) { sc.traceID = traceID })
}

func GetTraceID(ctx context.Context) string { return scopeOf(ctx).traceID }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withScope(ctx, func(sc *scope) { sc.userID = userID })
}

// GetUserID returns the authenticated subject, or "".
func GetUserID(ctx context.Context) string { return scopeOf(ctx).userID }

func WithInstrumenter(ctx context.Context, inst Instrumenter) context.Context {
	return withScope(ctx, func(sc *scope) { sc.inst = inst })
}

// GetInstrumenter returns the context's instrumenter, or Nop.
func GetInstrumenter(ctx context.Context) Instrumenter {
	if inst := scopeOf(ctx).inst; inst != nil {
		return inst
	}
	return Nop
}
