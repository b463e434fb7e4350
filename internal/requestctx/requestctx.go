// Package requestctx carries per-request identity through context so log
// lines written deep in a handler can be attributed to a request and actor.
package requestctx

import (
	"context"
	"log/slog"
	"sync"
)

type ctxKey struct{}

// Trace is shared by every context derived from the request's root context.
// Middleware further down the chain fills in the actor once it is known.
type Trace struct {
	mu        sync.RWMutex
	requestID string
	tenantID  string
	actorID   string
}

// Start attaches a fresh trace for requestID.
func Start(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, &Trace{requestID: requestID})
}

func from(ctx context.Context) *Trace {
	trace, _ := ctx.Value(ctxKey{}).(*Trace)
	return trace
}

func GetRequestID(ctx context.Context) string {
	trace := from(ctx)
	if trace == nil {
		return ""
	}
	trace.mu.RLock()
	defer trace.mu.RUnlock()
	return trace.requestID
}

// SetActor records the authenticated tenant and user. No-op without a trace.
func SetActor(ctx context.Context, tenantID, actorID string) {
	trace := from(ctx)
	if trace == nil {
		return
	}
	trace.mu.Lock()
	trace.tenantID = tenantID
	trace.actorID = actorID
	trace.mu.Unlock()
}

// Attrs returns the known identity as slog attributes, omitting empty ones.
func Attrs(ctx context.Context) []any {
	trace := from(ctx)
	if trace == nil {
		return nil
	}
	trace.mu.RLock()
	defer trace.mu.RUnlock()
	attrs := make([]any, 0, 3)
	if trace.requestID != "" {
		attrs = append(attrs, slog.String("requestId", trace.requestID))
	}
	if trace.tenantID != "" {
		attrs = append(attrs, slog.String("tenantId", trace.tenantID))
	}
	if trace.actorID != "" {
		attrs = append(attrs, slog.String("actorId", trace.actorID))
	}
	return attrs
}
