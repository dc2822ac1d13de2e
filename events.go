package scout

import "sync"

// EventType discriminates the events Instance publishes. Values other than
// Shutdown mirror the tracer package's own discriminators one-for-one,
// so subscribers see the same vocabulary regardless of which layer
// they subscribe through.
type EventType string

const (
	EventShutdown                        EventType = "Shutdown"
	EventRequestSent                     EventType = "RequestSent"
	EventIgnoredPathDetected             EventType = "IgnoredPathDetected"
	EventIgnoredRequestProcessingSkipped EventType = "IgnoredRequestProcessingSkipped"
	EventAgentConnected                  EventType = "AgentConnected"
	EventAgentDisconnected                EventType = "AgentDisconnected"
	EventAgentError                      EventType = "AgentError"
)

type eventBus struct {
	mu          sync.Mutex
	subscribers map[EventType][]func(any)
}

func newEventBus() *eventBus {
	return &eventBus{subscribers: make(map[EventType][]func(any))}
}

func (b *eventBus) Subscribe(evt EventType, fn func(any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[evt] = append(b.subscribers[evt], fn)
}

func (b *eventBus) emit(evt EventType, payload any) {
	b.mu.Lock()
	fns := make([]func(any), len(b.subscribers[evt]))
	copy(fns, b.subscribers[evt])
	b.mu.Unlock()
	for _, fn := range fns {
		fn(payload)
	}
}
