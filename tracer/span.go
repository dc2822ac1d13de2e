package tracer

import (
	"sync"
	"time"
)

// Span is one instrumented sub-operation within a request. ParentID
// names another span in the same request, or is nil when the request
// itself is the parent.
type Span struct {
	ID        string
	RequestID string
	ParentID  *string
	Operation string
	StartedAt time.Time
	StoppedAt time.Time

	onStop func()
	tracer *Tracer

	// parentRequest backs InstrumentSync's parent-chaining: the wire
	// shape only needs RequestID, but the synchronous fallback path
	// needs the owning *Request itself.
	parentRequest *Request

	mu      sync.Mutex
	ignored bool
	stopped bool
}

// Ignored reports whether this span skips all wire emission —
// inherited from its owning request at creation time.
func (s *Span) Ignored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ignored
}

func (s *Span) markStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.stopped = true
	s.StoppedAt = time.Now().UTC()
	return true
}

// Tag attaches name/value to the span, flushed as TagSpan unless the
// span is ignored.
func (s *Span) Tag(name string, value any) {
	s.tracer.tagSpan(s, name, value)
}
