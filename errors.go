package scout

import (
	"errors"

	"github.com/scoutapp/scout-apm-go/config"
	"github.com/scoutapp/scout-apm-go/internal/agentconn"
	"github.com/scoutapp/scout-apm-go/internal/lifecycle"
)

// Error taxonomy. Each aliases the sentinel its owning
// package already defines, so errors.Is works whether the caller holds
// the internal or the facade error value; ErrNoAgentPresent and
// ErrMonitoringDisabled have no internal-package equivalent and are
// declared here directly.
var (
	// ErrNotSupported is returned when writing to a read-only config source.
	ErrNotSupported = config.ErrNotSupported
	// ErrInvalidConfiguration is returned when setup cannot proceed because
	// required configuration (e.g. a socket path in attach-mode) is absent.
	ErrInvalidConfiguration = lifecycle.ErrInvalidConfiguration
	// ErrNoAgentPresent is returned when a tracing operation is invoked
	// before setup has completed.
	ErrNoAgentPresent = errors.New("scout: no agent present")
	// ErrDisconnected is returned when a send is attempted after shutdown.
	ErrDisconnected = agentconn.ErrDisconnected
	// ErrMonitoringDisabled names the monitor=false condition. No code
	// path returns it: with monitor=false the tracer drops each send and
	// logs a warning instead.
	ErrMonitoringDisabled = errors.New("scout: monitoring is disabled")
	// ErrConnectionFailed is returned when the agent socket is unreachable.
	ErrConnectionFailed = agentconn.ErrConnectionFailed
	// ErrInstanceNotReady is returned by the non-blocking setup variant
	// while setup is still in progress.
	ErrInstanceNotReady = lifecycle.ErrInstanceNotReady
	// ErrUnknownSocketType is returned when a socketPath is neither a Unix
	// path nor a tcp:// URL.
	ErrUnknownSocketType = agentconn.ErrUnknownSocketType
)
