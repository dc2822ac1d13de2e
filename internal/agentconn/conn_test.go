package agentconn

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"github.com/scoutapp/scout-apm-go/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent is a minimal in-process stand-in for the core agent: it
// accepts one connection and echoes back a Success response for every
// frame it reads, recording each received discriminator. It spins up a
// real net.Listen("unix", ...) rather than mocking the socket layer.
type fakeAgent struct {
	ln       net.Listener
	received chan protocol.Discriminator
}

func newFakeAgent(t *testing.T) *fakeAgent {
	t.Helper()
	dir := t.TempDir()
	ln, err := net.Listen("unix", filepath.Join(dir, "agent.sock"))
	require.NoError(t, err)
	fa := &fakeAgent{ln: ln, received: make(chan protocol.Discriminator, 64)}
	go fa.serve()
	return fa
}

func (fa *fakeAgent) serve() {
	conn, err := fa.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		env, err := protocol.Decode(conn)
		if err != nil {
			return
		}
		fa.received <- env.Type
		frame, _ := protocol.Encode(env.Type, protocol.ResponseBody{Result: protocol.ResultSuccess})
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

func (fa *fakeAgent) path() string {
	return fa.ln.Addr().String()
}

func (fa *fakeAgent) close() { _ = fa.ln.Close() }

func TestConnectSendReceivesResponse(t *testing.T) {
	fa := newFakeAgent(t)
	defer fa.close()

	c := New("unix", fa.path(), nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()

	body, err := c.Send(context.Background(), protocol.Register, protocol.RegisterBody{App: "demo", Key: "K", APIVersion: "1.0"})
	require.NoError(t, err)
	assert.True(t, body.Succeeded())
	assert.Equal(t, protocol.Register, <-fa.received)
}

func TestSendAsyncPreservesOrder(t *testing.T) {
	fa := newFakeAgent(t)
	defer fa.close()

	c := New("unix", fa.path(), nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()

	require.NoError(t, c.SendAsync(protocol.StartSpan, protocol.StartSpanBody{SpanID: "span-1"}))
	require.NoError(t, c.SendAsync(protocol.StopSpan, protocol.StopSpanBody{SpanID: "span-1"}))

	assert.Equal(t, protocol.StartSpan, <-fa.received)
	assert.Equal(t, protocol.StopSpan, <-fa.received)
}

func TestSendAfterDisconnectFails(t *testing.T) {
	fa := newFakeAgent(t)
	defer fa.close()

	c := New("unix", fa.path(), nil)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Disconnect())

	_, err := c.Send(context.Background(), protocol.Register, protocol.RegisterBody{})
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	fa := newFakeAgent(t)
	defer fa.close()

	c := New("unix", fa.path(), nil)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Disconnect())
}

func TestConnectFailsWhenUnreachable(t *testing.T) {
	dir := t.TempDir()
	c := New("unix", filepath.Join(dir, "nothing.sock"), nil)
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestProbeExistsUnix(t *testing.T) {
	fa := newFakeAgent(t)
	defer fa.close()
	assert.True(t, ProbeExists("unix", fa.path()))

	dir := t.TempDir()
	assert.False(t, ProbeExists("unix", filepath.Join(dir, "missing.sock")))
}

// TestConcurrentSendAsyncRacingDisconnectNeverPanics guards against the
// TOCTOU between the closed.Load() guard and the queue send: many
// senders racing one Disconnect call must never hit a closed-channel
// send panic, whichever side of the race each one lands on.
func TestConcurrentSendAsyncRacingDisconnectNeverPanics(t *testing.T) {
	fa := newFakeAgent(t)
	defer fa.close()

	c := New("unix", fa.path(), nil)
	require.NoError(t, c.Connect(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.SendAsync(protocol.StartSpan, protocol.StartSpanBody{SpanID: "span-race"})
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Disconnect()
	}()
	wg.Wait()
}

func TestResolveEndpointExplicitTCP(t *testing.T) {
	network, address, err := parseSocketPath("tcp://localhost:6590")
	require.NoError(t, err)
	assert.Equal(t, "tcp", network)
	assert.Equal(t, "localhost:6590", address)
}

func TestResolveEndpointExplicitUnix(t *testing.T) {
	network, address, err := parseSocketPath("/tmp/a.sock")
	require.NoError(t, err)
	assert.Equal(t, "unix", network)
	assert.Equal(t, "/tmp/a.sock", address)
}
