// Package statsticker periodically samples process RSS and CPU and
// emits ApplicationEvent messages for them.
package statsticker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scoutapp/scout-apm-go/internal/protocol"
	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
	"github.com/shirou/gopsutil/v3/process"
)

// DefaultInterval is the default tick period.
const DefaultInterval = 60 * time.Second

// Sender is the capability the ticker needs of the agent connection:
// fire-and-forget delivery of an ApplicationEvent.
type Sender interface {
	SendAsync(msgType protocol.Discriminator, body any) error
}

// Ticker periodically samples the current process and emits one
// MemoryUsageMB and one CPUUtilizationPercent ApplicationEvent per
// tick. It self-disables when Sender is absent at tick time.
type Ticker struct {
	interval time.Duration
	logger   scoutlog.Logger
	sender   Sender
	proc     *process.Process

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New builds a Ticker sampling the current OS process. sender may be
// nil initially and attached later via SetSender; a nil sender at tick
// time causes the ticker to self-disable.
func New(interval time.Duration, sender Sender, logger scoutlog.Logger) (*Ticker, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = scoutlog.Noop
	}
	proc, err := process.NewProcess(int32(currentPID()))
	if err != nil {
		return nil, fmt.Errorf("statsticker: resolve process handle: %w", err)
	}
	return &Ticker{interval: interval, sender: sender, logger: logger, proc: proc}, nil
}

// SetSender attaches (or replaces) the destination for sampled events.
func (t *Ticker) SetSender(s Sender) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sender = s
}

// Start begins the periodic sampling loop in a background goroutine.
func (t *Ticker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancel = cancel
	t.stopped = make(chan struct{})
	t.mu.Unlock()

	go func() {
		defer close(t.stopped)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.tick()
			}
		}
	}()
}

// Stop halts the sampling loop and waits for it to exit.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	stopped := t.stopped
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

func (t *Ticker) tick() {
	t.mu.Lock()
	sender := t.sender
	cancel := t.cancel
	t.mu.Unlock()
	if sender == nil {
		t.logger.Log(scoutlog.Debug, "statsticker: no connection present, disabling ticker")
		if cancel != nil {
			cancel()
		}
		return
	}

	now := time.Now().UTC().Format(protocol.TimeFormat)

	if memInfo, err := t.proc.MemoryInfo(); err == nil {
		rssMB := float64(memInfo.RSS) / (1024 * 1024)
		_ = sender.SendAsync(protocol.ApplicationEvent, protocol.ApplicationEventBody{
			EventValue: rssMB,
			EventType:  protocol.EventMemoryUsageMB,
			Source:     "statsticker",
			Timestamp:  now,
		})
	} else {
		t.logger.Log(scoutlog.Warn, fmt.Sprintf("statsticker: memory sample failed: %v", err))
	}

	if cpuPct, err := t.proc.Percent(0); err == nil {
		_ = sender.SendAsync(protocol.ApplicationEvent, protocol.ApplicationEventBody{
			EventValue: cpuPct,
			EventType:  protocol.EventCPUUtilizationPercent,
			Source:     "statsticker",
			Timestamp:  now,
		})
	} else {
		t.logger.Log(scoutlog.Warn, fmt.Sprintf("statsticker: cpu sample failed: %v", err))
	}
}
