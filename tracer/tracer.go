// Package tracer implements the request/span tracing engine: starting
// and stopping requests and spans, maintaining the current
// request/span in an ambient context, filtering/ignoring paths, and
// flushing framed telemetry to the agent connection with
// at-most-once-per-message semantics.
package tracer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/scoutapp/scout-apm-go/config"
	"github.com/scoutapp/scout-apm-go/internal/agentconn"
	"github.com/scoutapp/scout-apm-go/internal/asyncctx"
	"github.com/scoutapp/scout-apm-go/internal/protocol"
	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
)

// Sender is the capability the engine requires of its agent
// connection: ordered fire-and-forget delivery. Registration happens once, before a Tracer exists, directly through
// *agentconn.Conn.Send; every steady-state tracing message after that
// is fire-and-forget, which is all this engine needs. *agentconn.Conn
// satisfies this.
type Sender interface {
	SendAsync(msgType protocol.Discriminator, body any) error
}

// Tracer is the tracing engine. It is constructed once an agent
// connection is established (Register already sent); the facade
// package owns the NoAgentPresent gate for calls made before that.
type Tracer struct {
	conn     Sender
	logger   scoutlog.Logger
	ignore   []string
	scrubber config.PathScrubber
	uriRep   config.URIReporting
	monitor  bool

	bus *eventBus

	syncRequest atomic.Pointer[Request]
	syncSpan    atomic.Pointer[Span]
}

// New builds a Tracer bound to conn, configured from rec's trace
// controls (Ignore, URIReporting, Monitor). scrubber may be nil; path
// filtering then passes the input through unchanged for Path/FilteredParams.
func New(conn Sender, rec config.Record, scrubber config.PathScrubber, logger scoutlog.Logger) *Tracer {
	if logger == nil {
		logger = scoutlog.Noop
	}
	t := &Tracer{
		conn:     conn,
		logger:   logger,
		ignore:   rec.Ignore,
		scrubber: scrubber,
		uriRep:   rec.URIReporting,
		monitor:  rec.Monitor,
		bus:      newEventBus(),
	}
	if src, ok := conn.(interface{ Events() <-chan agentconn.Event }); ok {
		go t.forwardAgentEvents(src.Events())
	}
	return t
}

func (t *Tracer) forwardAgentEvents(events <-chan agentconn.Event) {
	for ev := range events {
		switch ev.Type {
		case agentconn.Connected:
			t.bus.emit(EventAgentConnected, ev)
		case agentconn.Disconnected:
			t.bus.emit(EventAgentDisconnected, ev)
		case agentconn.ErrorReceived:
			t.bus.emit(EventAgentError, ev)
		}
	}
}

// Subscribe registers fn against evt.
func (t *Tracer) Subscribe(evt EventType, fn func(any)) { t.bus.Subscribe(evt, fn) }

// IgnoresPath reports whether path matches any configured ignore
// prefix, emitting IgnoredPathDetected when it does.
func (t *Tracer) IgnoresPath(path string) bool {
	for _, prefix := range t.ignore {
		if strings.HasPrefix(path, prefix) {
			t.bus.emit(EventIgnoredPathDetected, path)
			return true
		}
	}
	return false
}

// FilterRequestPath dispatches on the configured URIReporting policy:
// FilteredParams and Path delegate to the PathScrubber; None passes
// the input through unchanged.
func (t *Tracer) FilterRequestPath(path string) string {
	if t.scrubber == nil {
		return path
	}
	switch t.uriRep {
	case config.FilteredParams:
		return t.scrubber.ScrubPathParams(path)
	case config.Path:
		return t.scrubber.ScrubPath(path)
	default:
		return path
	}
}

// GetCurrentRequest returns the request held by ctx's ambient frame,
// if any.
func (t *Tracer) GetCurrentRequest(ctx context.Context) (*Request, bool) {
	v, ok := asyncctx.Get(ctx, "request")
	if !ok {
		return nil, false
	}
	req, ok := v.(*Request)
	return req, ok
}

// GetCurrentSpan returns the innermost open span held by ctx's ambient
// frame, if any.
func (t *Tracer) GetCurrentSpan(ctx context.Context) (*Span, bool) {
	v, ok := asyncctx.Get(ctx, "span")
	if !ok {
		return nil, false
	}
	span, ok := v.(*Span)
	return span, ok
}

// Transaction is the asynchronous top-level entry point. It pushes a
// fresh ambient frame holding a new Request, invokes fn with that
// frame's context and a done callback, and finishes the request once
// done is called (or fn returns, whichever happens first — satisfied
// here by calling done unconditionally after fn returns, guarded by
// sync.Once so an explicit done() call inside fn is harmless).
//
// name is advisory: it decides whether the request is ignored (via
// IgnoresPath) but is never attached to the StartRequest or
// FinishRequest body.
func (t *Tracer) Transaction(ctx context.Context, name string, fn func(ctx context.Context, done func())) {
	req := t.newRequest(name)
	t.dispatch(req.Ignored(), req.ID, protocol.StartRequest, protocol.StartRequestBody{
		RequestID: req.ID,
		Timestamp: formatTime(req.StartedAt),
	})

	fctx := asyncctx.WithRequest(asyncctx.WithNewFrame(ctx), req)

	var once sync.Once
	done := func() { once.Do(func() { t.finishRequest(req) }) }
	fn(fctx, done)
	done()
}

// TransactionSync is the synchronous variant, using the fallback
// fields rather than the ambient context.
func (t *Tracer) TransactionSync(name string, fn func(r *Request)) {
	req := t.newRequest(name)
	t.dispatch(req.Ignored(), req.ID, protocol.StartRequest, protocol.StartRequestBody{
		RequestID: req.ID,
		Timestamp: formatTime(req.StartedAt),
	})

	prevReq := t.syncRequest.Swap(req)
	defer t.syncRequest.Store(prevReq)

	fn(req)
	t.finishRequest(req)
}

// Instrument starts a child span of the current parent — the ambient
// span if one is open, else the ambient request. If ctx carries
// neither, it auto-creates a Transaction named after operation and
// runs this same call inside it, so the pair finish together.
func (t *Tracer) Instrument(ctx context.Context, operation string, fn func(ctx context.Context, done func())) {
	if req, ok := t.GetCurrentRequest(ctx); ok {
		parentSpan, hasSpan := t.GetCurrentSpan(ctx)
		var parentID *string
		if hasSpan {
			id := parentSpan.ID
			parentID = &id
		}
		span := t.startSpan(req, parentID, operation)
		sctx := asyncctx.WithSpan(ctx, span)

		var once sync.Once
		done := func() { once.Do(func() { t.stopSpan(span) }) }
		fn(sctx, done)
		done()
		return
	}

	t.Transaction(ctx, operation, func(tctx context.Context, reqDone func()) {
		t.Instrument(tctx, operation, fn)
		reqDone()
	})
}

// InstrumentSync is the synchronous variant. Precedence for the
// parent: parentOverride, then the synchronous fallback span/request,
// then ctx's ambient span/request. Reading the ambient span/request
// needs a context, so one is threaded in explicitly.
func (t *Tracer) InstrumentSync(ctx context.Context, operation string, parentOverride any, fn func(s *Span)) {
	parent := parentOverride
	if parent == nil {
		if s := t.syncSpan.Load(); s != nil {
			parent = s
		}
	}
	if parent == nil {
		if r := t.syncRequest.Load(); r != nil {
			parent = r
		}
	}
	if parent == nil {
		if s, ok := t.GetCurrentSpan(ctx); ok {
			parent = s
		}
	}
	if parent == nil {
		if r, ok := t.GetCurrentRequest(ctx); ok {
			parent = r
		}
	}
	if parent == nil {
		t.TransactionSync(operation, func(r *Request) {
			t.InstrumentSync(ctx, operation, r, fn)
		})
		return
	}

	var req *Request
	var parentID *string
	switch p := parent.(type) {
	case *Request:
		req = p
	case *Span:
		req = t.requestFor(p)
		id := p.ID
		parentID = &id
	}

	span := t.startSpan(req, parentID, operation)
	prevSpan := t.syncSpan.Swap(span)
	defer t.syncSpan.Store(prevSpan)

	fn(span)
	t.stopSpan(span)
}

// requestFor recovers the owning Request for a span created through
// this Tracer; spans keep only RequestID on the wire shape, but the Go
// object graph keeps the pointer for synchronous fallback chaining.
func (t *Tracer) requestFor(s *Span) *Request { return s.parentRequest }

// AddContext attaches a tag to the current or given parent. parent may
// be a *Request, a *Span, or nil — in
// which case the ambient span (preferred) or request in ctx is used.
func (t *Tracer) AddContext(ctx context.Context, name string, value any, parent any) {
	p := parent
	if p == nil {
		if s, ok := t.GetCurrentSpan(ctx); ok {
			p = s
		} else if r, ok := t.GetCurrentRequest(ctx); ok {
			p = r
		}
	}
	switch v := p.(type) {
	case *Request:
		t.tagRequest(v, name, value)
	case *Span:
		t.tagSpan(v, name, value)
	default:
		t.logger.Log(scoutlog.Warn, "tracer: addContext called with no current request or span")
	}
}

func (t *Tracer) newRequest(name string) *Request {
	return &Request{
		ID:        "req-" + uuid.NewString(),
		StartedAt: time.Now().UTC(),
		tracer:    t,
		ignored:   t.IgnoresPath(name),
	}
}

func (t *Tracer) finishRequest(req *Request) {
	if !req.markStopped() {
		return
	}
	if req.onStop != nil {
		req.onStop()
	}
	t.dispatch(req.Ignored(), req.ID, protocol.FinishRequest, protocol.StartRequestBody{
		RequestID: req.ID,
		Timestamp: formatTime(req.StoppedAt),
	})
	if !req.Ignored() {
		t.bus.emit(EventRequestSent, req.ID)
	}
}

func (t *Tracer) startSpan(req *Request, parentID *string, operation string) *Span {
	span := &Span{
		ID:            "span-" + uuid.NewString(),
		RequestID:     req.ID,
		ParentID:      parentID,
		Operation:     operation,
		StartedAt:     time.Now().UTC(),
		tracer:        t,
		ignored:       req.Ignored(),
		parentRequest: req,
	}
	t.dispatch(span.Ignored(), req.ID, protocol.StartSpan, protocol.StartSpanBody{
		RequestID: req.ID,
		SpanID:    span.ID,
		ParentID:  parentID,
		Operation: operation,
		Timestamp: formatTime(span.StartedAt),
	})
	return span
}

func (t *Tracer) stopSpan(span *Span) {
	if !span.markStopped() {
		return
	}
	if span.onStop != nil {
		span.onStop()
	}
	t.dispatch(span.Ignored(), span.RequestID, protocol.StopSpan, protocol.StopSpanBody{
		RequestID: span.RequestID,
		SpanID:    span.ID,
		Timestamp: formatTime(span.StoppedAt),
	})
}

func (t *Tracer) tagRequest(req *Request, name string, value any) {
	t.dispatch(req.Ignored(), req.ID, protocol.TagRequest, protocol.TagRequestBody{
		RequestID: req.ID,
		Tag:       name,
		Value:     value,
		Timestamp: formatTime(time.Now().UTC()),
	})
}

func (t *Tracer) tagSpan(span *Span, name string, value any) {
	t.dispatch(span.Ignored(), span.RequestID, protocol.TagSpan, protocol.TagSpanBody{
		RequestID: span.RequestID,
		SpanID:    span.ID,
		Tag:       name,
		Value:     value,
		Timestamp: formatTime(time.Now().UTC()),
	})
}

// dispatch is the single funnel every wire-affecting operation goes
// through: ignored requests/spans emit IgnoredRequestProcessingSkipped
// instead of sending; otherwise the message is sent fire-and-forget,
// with send failures logged and never propagated into the caller.
func (t *Tracer) dispatch(ignored bool, requestID string, msgType protocol.Discriminator, body any) {
	if ignored {
		t.bus.emit(EventIgnoredRequestProcessingSkipped, requestID)
		return
	}
	if !t.monitor {
		t.logger.Log(scoutlog.Warn, fmt.Sprintf("tracer: monitoring disabled, dropping %s", msgType))
		return
	}
	if err := t.conn.SendAsync(msgType, body); err != nil {
		t.logger.Log(scoutlog.Warn, fmt.Sprintf("tracer: %s failed: %v", msgType, err))
	}
}

func formatTime(ts time.Time) string { return ts.UTC().Format(protocol.TimeFormat) }
