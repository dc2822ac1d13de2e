package scout

import (
	"context"
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/scoutapp/scout-apm-go/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFakeAgent(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "agent.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

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
					frame, _ := protocol.Encode(env.Type, protocol.ResponseBody{Result: protocol.ResultSuccess})
					if _, err := conn.Write(frame); err != nil {
						return
					}
				}
			}()
		}
	}()
	return sockPath
}

func TestTransactionBeforeSetupReturnsNoAgentPresent(t *testing.T) {
	in := New(map[string]any{"name": "demo", "key": "K"})
	err := in.Transaction(context.Background(), "T", func(_ context.Context, done func()) { done() })
	assert.ErrorIs(t, err, ErrNoAgentPresent)
}

func TestIgnoresPathWorksBeforeSetup(t *testing.T) {
	in := New(map[string]any{"ignore": []string{"/health"}})
	assert.True(t, in.IgnoresPath("/health/live"))
	assert.False(t, in.IgnoresPath("/api"))
}

func TestSetupBecomesActiveAndRunsTransaction(t *testing.T) {
	sockPath := startFakeAgent(t)
	in := New(map[string]any{
		"name":            "demo",
		"key":             "K",
		"monitor":         true,
		"coreAgentLaunch": false,
		"socketPath":      sockPath,
	})

	require.NoError(t, in.Setup(context.Background()))
	assert.True(t, in.HasAgent())

	active, ok := Active()
	assert.True(t, ok)
	assert.Same(t, in, active)

	var ranInside bool
	require.NoError(t, in.Transaction(context.Background(), "T", func(_ context.Context, done func()) {
		ranInside = true
		done()
	}))
	assert.True(t, ranInside)

	require.NoError(t, in.Shutdown(context.Background()))
	assert.True(t, in.IsShutdown())
}

func TestShutdownEmitsShutdownEvent(t *testing.T) {
	sockPath := startFakeAgent(t)
	in := New(map[string]any{
		"name": "demo", "key": "K", "monitor": true,
		"coreAgentLaunch": false, "socketPath": sockPath,
	})
	require.NoError(t, in.Setup(context.Background()))

	var fired atomic.Bool
	in.Subscribe(EventShutdown, func(any) { fired.Store(true) })
	require.NoError(t, in.Shutdown(context.Background()))
	assert.True(t, fired.Load())
}
