// Package scout is the public facade over the configuration resolver,
// core-agent lifecycle manager, and tracing engine: one Instance per
// embedding process, constructed from a partial configuration and a
// set of functional options.
package scout

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scoutapp/scout-apm-go/config"
	"github.com/scoutapp/scout-apm-go/internal/lifecycle"
	"github.com/scoutapp/scout-apm-go/internal/protocol"
	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
	"github.com/scoutapp/scout-apm-go/tracer"
)

// Instance is the embedding application's single entry point. It owns
// the config Resolver, the lifecycle Manager, and — once Setup
// succeeds — a Tracer.
type Instance struct {
	resolver *config.Resolver
	manager  *lifecycle.Manager
	logger   scoutlog.Logger
	settings startSettings
	bus      *eventBus

	ignore []string
	uriRep config.URIReporting

	mu     sync.Mutex
	tracer *tracer.Tracer
}

var activeInstance atomic.Pointer[Instance]

// Active returns the process-wide instance registered by the first
// successful Setup call, if any.
func Active() (*Instance, bool) {
	p := activeInstance.Load()
	if p == nil {
		return nil, false
	}
	return p, true
}

// New builds an Instance from a partial Node-source configuration
// plus functional options. It does not contact the agent; call Setup
// for that.
func New(initial map[string]any, opts ...StartOption) *Instance {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	resolver := config.NewResolver(initial, s.logger)
	rec := resolver.Snapshot()

	metaFn := func() protocol.ApplicationEventBody {
		meta := ApplicationMetadata{
			ServerTime:      time.Now().UTC(),
			Language:        "go",
			LanguageVersion: runtime.Version(),
			Hostname:        rec.Hostname,
			Framework:       rec.Framework,
			FrameworkVersion: rec.FrameworkVersion,
			ApplicationName: rec.Name,
		}
		if s.appMeta != nil {
			meta = s.appMeta()
			if meta.ServerTime.IsZero() {
				meta.ServerTime = time.Now().UTC()
			}
		}
		return protocol.ApplicationEventBody{
			EventType:  protocol.EventScoutMetadata,
			EventValue: meta.KeyValues(),
			Source:     "go",
			Timestamp:  meta.ServerTime.UTC().Format(protocol.TimeFormat),
		}
	}

	manager := lifecycle.New(resolver, s.downloader, metaFn, s.logger, lifecycle.WithStatsInterval(s.statisticsInterval))

	return &Instance{
		resolver: resolver,
		manager:  manager,
		logger:   s.logger,
		settings: s,
		bus:      newEventBus(),
		ignore:   rec.Ignore,
		uriRep:   rec.URIReporting,
	}
}

// Setup connects to (or launches) the core agent, registers, and
// starts the stats ticker. Concurrent callers share one
// initialization. On success this Instance becomes the process-wide
// active instance iff none is registered yet.
func (in *Instance) Setup(ctx context.Context) error {
	if err := in.manager.Setup(ctx); err != nil {
		return err
	}
	in.armTracer()
	activeInstance.CompareAndSwap(nil, in)
	return nil
}

// TrySetup is the non-blocking variant, failing fast with
// ErrInstanceNotReady if another call's setup is still in progress.
func (in *Instance) TrySetup(ctx context.Context) error {
	if err := in.manager.TrySetup(ctx); err != nil {
		return err
	}
	in.armTracer()
	activeInstance.CompareAndSwap(nil, in)
	return nil
}

func (in *Instance) armTracer() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.tracer != nil {
		return
	}
	t := tracer.New(in.manager.Conn(), in.resolver.Snapshot(), in.settings.scrubber, in.logger)
	t.Subscribe(tracer.EventRequestSent, func(v any) { in.bus.emit(EventRequestSent, v) })
	t.Subscribe(tracer.EventIgnoredPathDetected, func(v any) { in.bus.emit(EventIgnoredPathDetected, v) })
	t.Subscribe(tracer.EventIgnoredRequestProcessingSkipped, func(v any) { in.bus.emit(EventIgnoredRequestProcessingSkipped, v) })
	t.Subscribe(tracer.EventAgentConnected, func(v any) { in.bus.emit(EventAgentConnected, v) })
	t.Subscribe(tracer.EventAgentDisconnected, func(v any) { in.bus.emit(EventAgentDisconnected, v) })
	t.Subscribe(tracer.EventAgentError, func(v any) { in.bus.emit(EventAgentError, v) })
	in.tracer = t
}

// Shutdown reverses Setup: stops the ticker, disconnects, optionally
// stops the agent process, clears the active instance, and emits
// Shutdown. Idempotent.
func (in *Instance) Shutdown(ctx context.Context) error {
	if in.manager.IsShutdown() {
		return nil
	}
	err := in.manager.Shutdown(ctx)
	activeInstance.CompareAndSwap(in, nil)
	in.bus.emit(EventShutdown, nil)
	return err
}

// HasAgent reports whether the lifecycle manager has reached Ready.
func (in *Instance) HasAgent() bool { return in.manager.State() == lifecycle.Ready }

// IsShutdown reports whether Shutdown has completed.
func (in *Instance) IsShutdown() bool { return in.manager.IsShutdown() }

// SlowRequestThresholdMs returns the configured slow-request
// threshold; the core itself makes no sampling decision from it.
func (in *Instance) SlowRequestThresholdMs() int { return in.settings.slowRequestThresholdMs }

func (in *Instance) currentTracer() *tracer.Tracer {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.manager.State() != lifecycle.Ready {
		return nil
	}
	return in.tracer
}

// Transaction starts an asynchronous top-level request. Returns
// ErrNoAgentPresent if called before Setup has reached Ready.
func (in *Instance) Transaction(ctx context.Context, name string, fn func(ctx context.Context, done func())) error {
	t := in.currentTracer()
	if t == nil {
		return ErrNoAgentPresent
	}
	t.Transaction(ctx, name, fn)
	return nil
}

// TransactionSync is the synchronous variant of Transaction.
func (in *Instance) TransactionSync(name string, fn func(r *tracer.Request)) error {
	t := in.currentTracer()
	if t == nil {
		return ErrNoAgentPresent
	}
	t.TransactionSync(name, fn)
	return nil
}

// Instrument starts a child span of the current request/span ambient
// in ctx.
func (in *Instance) Instrument(ctx context.Context, operation string, fn func(ctx context.Context, done func())) error {
	t := in.currentTracer()
	if t == nil {
		return ErrNoAgentPresent
	}
	t.Instrument(ctx, operation, fn)
	return nil
}

// InstrumentSync is the synchronous variant of Instrument.
func (in *Instance) InstrumentSync(ctx context.Context, operation string, parent any, fn func(s *tracer.Span)) error {
	t := in.currentTracer()
	if t == nil {
		return ErrNoAgentPresent
	}
	t.InstrumentSync(ctx, operation, parent, fn)
	return nil
}

// AddContext attaches a tag to the current or given parent. A missing
// agent is logged, not surfaced — tags are best-effort telemetry, not
// control flow.
func (in *Instance) AddContext(ctx context.Context, name string, value any, parent any) {
	t := in.currentTracer()
	if t == nil {
		in.logger.Log(scoutlog.Warn, "scout: addContext called with no agent present")
		return
	}
	t.AddContext(ctx, name, value, parent)
}

// GetCurrentRequest returns the request held by ctx's ambient frame.
func (in *Instance) GetCurrentRequest(ctx context.Context) (*tracer.Request, bool) {
	t := in.currentTracer()
	if t == nil {
		return nil, false
	}
	return t.GetCurrentRequest(ctx)
}

// GetCurrentSpan returns the innermost open span held by ctx's ambient
// frame.
func (in *Instance) GetCurrentSpan(ctx context.Context) (*tracer.Span, bool) {
	t := in.currentTracer()
	if t == nil {
		return nil, false
	}
	return t.GetCurrentSpan(ctx)
}

// IgnoresPath reports whether path matches a configured ignore prefix.
// Available even before Setup, since it is a pure function of
// configuration.
func (in *Instance) IgnoresPath(path string) bool {
	for _, prefix := range in.ignore {
		if strings.HasPrefix(path, prefix) {
			in.bus.emit(EventIgnoredPathDetected, path)
			return true
		}
	}
	return false
}

// FilterRequestPath scrubs path per the configured URIReporting
// policy.
func (in *Instance) FilterRequestPath(path string) string {
	if in.settings.scrubber == nil {
		return path
	}
	switch in.uriRep {
	case config.FilteredParams:
		return in.settings.scrubber.ScrubPathParams(path)
	case config.Path:
		return in.settings.scrubber.ScrubPath(path)
	default:
		return path
	}
}

// Subscribe registers fn against evt. Shutdown and IgnoredPathDetected
// (emitted by IgnoresPath) fire even before Setup; the rest only fire
// once Setup has armed the tracer.
func (in *Instance) Subscribe(evt EventType, fn func(any)) {
	in.bus.Subscribe(evt, fn)
}

// Recover is the Go mapping of a process-wide uncaught-panic handler:
// Go has no global panic hook, so callers defer this in each goroutine
// they instrument. It tags the current request with error=true, then
// re-panics so the panic still propagates.
func (in *Instance) Recover(ctx context.Context) {
	if r := recover(); r != nil {
		if req, ok := in.GetCurrentRequest(ctx); ok {
			req.Tag("error", true)
		}
		panic(r)
	}
}
