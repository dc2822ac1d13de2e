package lifecycle

import (
	"context"
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/scoutapp/scout-apm-go/config"
	"github.com/scoutapp/scout-apm-go/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDownloader struct {
	path  string
	calls atomic.Int32
}

func (f *fakeDownloader) Fetch(_ context.Context, _ string, _ DownloadOptions) (string, error) {
	f.calls.Add(1)
	return f.path, nil
}

// startFakeAgentListener accepts connections and answers every frame
// with a Success response, mirroring the agentconn package's own test
// fake.
func startFakeAgentListener(t *testing.T) (addr string, registrations *int32) {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "agent.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	var count int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				for {
					env, err := protocol.Decode(conn)
					if err != nil {
						return
					}
					if env.Type == protocol.Register {
						atomic.AddInt32(&count, 1)
					}
					frame, _ := protocol.Encode(env.Type, protocol.ResponseBody{Result: protocol.ResultSuccess})
					if _, err := conn.Write(frame); err != nil {
						return
					}
				}
			}()
		}
	}()
	return sockPath, &count
}

func newTestResolver(t *testing.T, socketPath string) *config.Resolver {
	t.Helper()
	return config.NewResolver(map[string]any{
		"name":            "demo",
		"key":             "K",
		"monitor":         true,
		"coreAgentLaunch": false,
		"socketPath":      socketPath,
	}, nil)
}

func TestSetupReachesReadyAgainstFakeAgent(t *testing.T) {
	sockPath, registrations := startFakeAgentListener(t)
	r := newTestResolver(t, sockPath)
	m := New(r, &fakeDownloader{}, nil, nil)

	require.NoError(t, m.Setup(context.Background()))
	assert.Equal(t, Ready, m.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(registrations))

	require.NoError(t, m.Shutdown(context.Background()))
	assert.True(t, m.IsShutdown())
}

func TestSetupIsIdempotentUnderConcurrency(t *testing.T) {
	sockPath, registrations := startFakeAgentListener(t)
	r := newTestResolver(t, sockPath)
	m := New(r, &fakeDownloader{}, nil, nil)

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() { errs <- m.Setup(context.Background()) }()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(registrations))
	_ = m.Shutdown(context.Background())
}

func TestTrySetupFailsFastWhileInProgress(t *testing.T) {
	sockPath, _ := startFakeAgentListener(t)
	r := newTestResolver(t, sockPath)
	m := New(r, &fakeDownloader{}, nil, nil)

	done := make(chan error, 1)
	go func() { done <- m.Setup(context.Background()) }()

	// If the goroutine's Setup has already marked setupStarted, TrySetup
	// returns ErrInstanceNotReady or the completed result without
	// blocking; if not, TrySetup runs the setup itself and succeeds.
	err := m.TrySetup(context.Background())
	if err != nil {
		assert.ErrorIs(t, err, ErrInstanceNotReady)
	}
	require.NoError(t, <-done)
}

func TestSetupFailsInvalidConfigurationWhenNoAgentListening(t *testing.T) {
	dir := t.TempDir()
	r := config.NewResolver(map[string]any{
		"name":            "demo",
		"key":             "K",
		"coreAgentLaunch": false,
		"socketPath":      filepath.Join(dir, "missing.sock"),
	}, nil)
	m := New(r, &fakeDownloader{}, nil, nil)

	err := m.Setup(context.Background())
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Equal(t, Failed, m.State())
}

func TestShutdownIsIdempotent(t *testing.T) {
	sockPath, _ := startFakeAgentListener(t)
	r := newTestResolver(t, sockPath)
	m := New(r, &fakeDownloader{}, nil, nil)
	require.NoError(t, m.Setup(context.Background()))

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
}
