package statsticker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/scoutapp/scout-apm-go/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu    sync.Mutex
	types []protocol.Discriminator
}

func (r *recordingSender) SendAsync(msgType protocol.Discriminator, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, msgType)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.types)
}

func TestTickerEmitsMemoryAndCPUEvents(t *testing.T) {
	sender := &recordingSender{}
	tk, err := New(10*time.Millisecond, sender, nil)
	require.NoError(t, err)
	tk.Start(context.Background())
	defer tk.Stop()

	require.Eventually(t, func() bool { return sender.count() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestTickerSelfDisablesWithoutSender(t *testing.T) {
	tk, err := New(10*time.Millisecond, nil, nil)
	require.NoError(t, err)
	tk.Start(context.Background())
	defer tk.Stop()
	time.Sleep(30 * time.Millisecond)
	// No sender attached: nothing to assert on besides "did not panic".
	assert.True(t, true)
}
