package tracer

import (
	"sync"
	"time"
)

// Request is one top-level traced transaction. Children are spans
// created against it; parenthood among spans is recorded by ParentID
// only, never by a direct child list.
type Request struct {
	ID        string
	StartedAt time.Time
	StoppedAt time.Time

	onStop func()
	tracer *Tracer

	mu      sync.Mutex
	ignored bool
	stopped bool
}

// Ignored reports whether this request skips all wire emission.
func (r *Request) Ignored() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ignored
}

func (r *Request) markStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.stopped = true
	r.StoppedAt = time.Now().UTC()
	return true
}

// Tag attaches name/value to the request, flushed as TagRequest unless
// the request is ignored.
func (r *Request) Tag(name string, value any) {
	r.tracer.tagRequest(r, name, value)
}

// Span starts a child span of this request directly, bypassing the
// ambient-context plumbing Instrument uses; useful when the caller
// already holds the parent explicitly.
func (r *Request) Span(operation string) *Span {
	return r.tracer.startSpan(r, nil, operation)
}
