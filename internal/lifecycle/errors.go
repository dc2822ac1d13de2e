package lifecycle

import "errors"

var (
	// ErrInvalidConfiguration is returned when setup cannot proceed
	// because required configuration (e.g. a socket path in
	// attach-mode) is absent.
	ErrInvalidConfiguration = errors.New("lifecycle: invalid configuration")
	// ErrInstanceNotReady is returned by TrySetup while setup is still
	// in progress on another call.
	ErrInstanceNotReady = errors.New("lifecycle: instance is not ready")
)
