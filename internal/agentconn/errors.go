package agentconn

import "errors"

var (
	// ErrConnectionFailed is returned when the agent socket is unreachable.
	ErrConnectionFailed = errors.New("agentconn: connection to core agent failed")
	// ErrDisconnected is returned when a send is attempted after shutdown.
	ErrDisconnected = errors.New("agentconn: connection is disconnected")
	errUnknownSocketType = errors.New("agentconn: unknown socket type")
)

// ErrUnknownSocketType is returned when a socketPath is neither a Unix
// path nor a tcp:// URL.
var ErrUnknownSocketType = errUnknownSocketType
