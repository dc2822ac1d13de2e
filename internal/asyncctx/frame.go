// Package asyncctx implements the ambient {request, span} frame that
// crosses suspension points. Go has no implicit continuation-local
// storage, so the frame is carried explicitly on context.Context — the
// idiomatic Go analogue of state inherited across suspension and
// resumption.
package asyncctx

import "context"

type frameKey struct{}

// Frame is the {request, span} mapping attached to a logical task.
// Request and Span are stored as `any` here to avoid a dependency on
// the tracer package; tracer does the type assertion back to its own
// *Request/*Span.
type Frame struct {
	Request any
	Span    any
}

// WithNewFrame returns a context carrying a fresh, empty frame — used
// once per transaction and per top-level instrument call.
func WithNewFrame(ctx context.Context) context.Context {
	return context.WithValue(ctx, frameKey{}, &Frame{})
}

// FromContext returns the current frame, or (Frame{}, false) if ctx
// carries none.
func FromContext(ctx context.Context) (Frame, bool) {
	f, ok := ctx.Value(frameKey{}).(*Frame)
	if !ok {
		return Frame{}, false
	}
	return *f, true
}

// WithRequest returns ctx with the frame's Request slot set to req. If
// ctx carries no frame yet, a new one is created.
func WithRequest(ctx context.Context, req any) context.Context {
	f, ok := ctx.Value(frameKey{}).(*Frame)
	if !ok {
		return context.WithValue(ctx, frameKey{}, &Frame{Request: req})
	}
	return context.WithValue(ctx, frameKey{}, &Frame{Request: req, Span: f.Span})
}

// WithSpan returns ctx with the frame's Span slot set to span (the
// innermost open span). Passing nil restores "no open span", which is
// what happens when a span closes and its parent (or absence) is
// restored.
func WithSpan(ctx context.Context, span any) context.Context {
	f, ok := ctx.Value(frameKey{}).(*Frame)
	if !ok {
		return context.WithValue(ctx, frameKey{}, &Frame{Span: span})
	}
	return context.WithValue(ctx, frameKey{}, &Frame{Request: f.Request, Span: span})
}

// Get returns the current value for key ("request" or "span"), mainly
// for callers working generically; typed callers should prefer
// FromContext directly.
func Get(ctx context.Context, key string) (any, bool) {
	f, ok := FromContext(ctx)
	if !ok {
		return nil, false
	}
	switch key {
	case "request":
		if f.Request == nil {
			return nil, false
		}
		return f.Request, true
	case "span":
		if f.Span == nil {
			return nil, false
		}
		return f.Span, true
	default:
		return nil, false
	}
}

// Bind captures ctx and returns a function that, called with no
// arguments, yields it back — the minimal form of a bind-the-current-
// frame-into-a-continuation contract translated to Go: since Go has no
// implicit thread-locals to restore, callers thread the returned
// context explicitly into whatever continuation they schedule.
func Bind(ctx context.Context) func() context.Context {
	return func() context.Context { return ctx }
}
