// Package lifecycle owns the core-agent state machine: choosing
// launch-vs-attach, spawning the agent process, connecting, and
// registering the application.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scoutapp/scout-apm-go/config"
	"github.com/scoutapp/scout-apm-go/internal/agentconn"
	"github.com/scoutapp/scout-apm-go/internal/protocol"
	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
	"github.com/scoutapp/scout-apm-go/internal/statsticker"
)

// BinaryName is the core agent's executable name within its
// version/triple-named directory.
const BinaryName = "core-agent"

// Manager drives the lifecycle state machine and owns the resulting
// agent connection.
type Manager struct {
	resolver   *config.Resolver
	record     config.Record
	downloader Downloader
	logger     scoutlog.Logger
	metadata   func() protocol.ApplicationEventBody

	state atomic.Int32

	mu           sync.Mutex
	setupStarted bool
	setupDone    chan struct{}
	setupErr     error

	conn         *agentconn.Conn
	cmd          *exec.Cmd
	ticker       *statsticker.Ticker
	statsInterval time.Duration
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithStatsInterval overrides the stats ticker's default sampling
// interval.
func WithStatsInterval(d time.Duration) Option {
	return func(m *Manager) { m.statsInterval = d }
}

// New builds a Manager from the given resolver. A nil downloader is
// valid only when the resolved coreAgentLaunch is false (attach-mode
// never needs to fetch a binary).
func New(resolver *config.Resolver, downloader Downloader, metadataFn func() protocol.ApplicationEventBody, logger scoutlog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = scoutlog.Noop
	}
	m := &Manager{resolver: resolver, record: resolver.Snapshot(), downloader: downloader, metadata: metadataFn, logger: logger, statsInterval: statsticker.DefaultInterval}
	for _, opt := range opts {
		opt(m)
	}
	m.state.Store(int32(Uninitialized))
	return m
}

// State returns the manager's current lifecycle state.
func (m *Manager) State() State { return State(m.state.Load()) }

// Setup orchestrates the path to Ready. Concurrent callers share a
// single initialization: the first caller runs it, the rest block on
// the same result.
func (m *Manager) Setup(ctx context.Context) error {
	m.mu.Lock()
	if m.setupStarted {
		done := m.setupDone
		m.mu.Unlock()
		<-done
		return m.setupErr
	}
	m.setupStarted = true
	m.setupDone = make(chan struct{})
	m.mu.Unlock()

	err := m.doSetup(ctx)

	m.mu.Lock()
	m.setupErr = err
	m.mu.Unlock()
	close(m.setupDone)
	return err
}

// TrySetup is the non-blocking variant: it fails fast with
// ErrInstanceNotReady if another call's setup is still in progress,
// rather than waiting for it.
func (m *Manager) TrySetup(ctx context.Context) error {
	m.mu.Lock()
	if m.setupStarted {
		select {
		case <-m.setupDone:
			err := m.setupErr
			m.mu.Unlock()
			return err
		default:
			m.mu.Unlock()
			return ErrInstanceNotReady
		}
	}
	m.mu.Unlock()
	return m.Setup(ctx)
}

func (m *Manager) doSetup(ctx context.Context) error {
	m.state.Store(int32(Connecting))

	network, address, err := m.launchOrAttach(ctx)
	if err != nil {
		m.state.Store(int32(Failed))
		return err
	}

	conn := agentconn.New(network, address, m.logger)
	if err := conn.Connect(ctx); err != nil {
		m.state.Store(int32(Failed))
		return err
	}
	m.conn = conn

	if m.record.Name == "" || m.record.Key == "" {
		m.logger.Log(scoutlog.Warn, "lifecycle: name or key is empty")
	}

	if _, err := conn.Send(ctx, protocol.Register, protocol.RegisterBody{
		App:        m.record.Name,
		Key:        m.record.Key,
		APIVersion: m.record.APIVersion,
	}); err != nil {
		m.state.Store(int32(Failed))
		return err
	}

	if m.metadata != nil {
		if err := conn.SendAsync(protocol.ApplicationEvent, m.metadata()); err != nil {
			m.logger.Log(scoutlog.Warn, fmt.Sprintf("lifecycle: metadata event failed: %v", err))
		}
	}

	if ticker, err := statsticker.New(m.statsInterval, conn, m.logger); err == nil {
		m.ticker = ticker
		// Background, not ctx: ctx is Setup's call-scoped context (callers
		// commonly wrap it in a timeout) and must not bound how long this
		// long-lived background sampler runs. Ticker.Stop (called from
		// Shutdown) is what ends it.
		m.ticker.Start(context.Background())
	} else {
		m.logger.Log(scoutlog.Warn, fmt.Sprintf("lifecycle: stats ticker unavailable: %v", err))
	}

	m.state.Store(int32(Ready))
	return nil
}

// launchOrAttach spawns (and resolves the endpoint from) a freshly
// downloaded agent binary, or probes for one already listening.
func (m *Manager) launchOrAttach(ctx context.Context) (network, address string, err error) {
	version := config.NewAgentVersion(m.record.CoreAgentVersion)
	explicit, _ := m.resolver.ExplicitSocketPath()
	derived := m.record.CoreAgentDir + "/" + m.record.CoreAgentFullName + "/" + BinaryName + ".sock"
	network, address, err = agentconn.ResolveEndpoint(explicit, version, derived)
	if err != nil {
		return "", "", err
	}

	if !m.record.CoreAgentLaunch {
		if !agentconn.ProbeExists(network, address) {
			return "", "", fmt.Errorf("lifecycle: no agent listening at %s %s: %w", network, address, ErrInvalidConfiguration)
		}
		return network, address, nil
	}

	binPath, err := m.downloader.Fetch(ctx, m.record.CoreAgentVersion, DownloadOptions{
		CacheDir:         m.record.CoreAgentDir,
		DownloadURL:      m.record.DownloadURL,
		DisallowDownload: !m.record.CoreAgentDownload,
	})
	if err != nil {
		return "", "", fmt.Errorf("lifecycle: fetch core agent: %w", err)
	}
	if err := os.Chmod(binPath, os.FileMode(m.record.CoreAgentPermissions)); err != nil {
		m.logger.Log(scoutlog.Warn, fmt.Sprintf("lifecycle: chmod core agent binary: %v", err))
	}

	args := []string{"start", "--socket", address, "--log-level", levelArg(m.record.CoreAgentLogLevel)}
	cmd := exec.CommandContext(context.Background(), binPath, args...)
	if err := cmd.Start(); err != nil {
		return "", "", fmt.Errorf("lifecycle: spawn core agent: %w", err)
	}
	m.cmd = cmd

	return network, address, nil
}

// Shutdown reverses Setup: stop the ticker, disconnect, optionally
// stop the spawned process, and move to Closed. Idempotent.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.transitionToShuttingDown() {
		return nil
	}
	if m.ticker != nil {
		m.ticker.Stop()
	}
	var err error
	if m.conn != nil {
		if m.record.AllowShutdown {
			err = m.conn.StopProcess()
		} else {
			err = m.conn.Disconnect()
		}
	}
	if m.cmd != nil && m.record.AllowShutdown {
		_ = m.cmd.Process.Kill()
	}
	m.state.Store(int32(Closed))
	return err
}

func (m *Manager) transitionToShuttingDown() bool {
	for {
		cur := State(m.state.Load())
		if cur == Closed || cur == ShuttingDown {
			return false
		}
		if m.state.CompareAndSwap(int32(cur), int32(ShuttingDown)) {
			return true
		}
	}
}

// IsShutdown reports whether Shutdown has completed.
func (m *Manager) IsShutdown() bool { return State(m.state.Load()) == Closed }

// Conn returns the established agent connection, or nil before Setup
// completes.
func (m *Manager) Conn() *agentconn.Conn { return m.conn }

func levelArg(l scoutlog.Level) string { return l.String() }
