// Package agentconn owns the single socket connection to the external
// core agent process: framing, FIFO-serialized send/receive, ordered
// fire-and-forget delivery, and connection-state events.
package agentconn

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scoutapp/scout-apm-go/internal/protocol"
	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
)

// EventType discriminates the connection-state events Conn surfaces.
type EventType string

const (
	Connected     EventType = "Connected"
	Disconnected  EventType = "Disconnected"
	ErrorReceived EventType = "ErrorReceived"
)

// Event is one connection-state notification.
type Event struct {
	Type EventType
	Err  error
}

// DefaultConnectTimeout is the default timeout imposed on Connect.
const DefaultConnectTimeout = 5 * time.Second

// Conn owns one socket (Unix or TCP) to the core agent. All sends
// serialize through an internal FIFO queue drained by a single writer
// goroutine, which also reads the matching response off the same
// half-duplex pipe — this is what gives Send "at most one outstanding
// request" and SendAsync "submission order preserved" simultaneously.
type Conn struct {
	network string
	address string
	logger  scoutlog.Logger

	mu     sync.Mutex
	conn   net.Conn
	queue  chan writeItem
	events chan Event
	closed atomic.Bool
	done   chan struct{}
}

type writeItem struct {
	frame  []byte
	result chan sendResult // nil for fire-and-forget sends
}

type sendResult struct {
	typ  protocol.Discriminator
	body protocol.ResponseBody
	err  error
}

// New constructs a Conn for the given resolved network/address
// ("unix"/"tcp", per ResolveEndpoint). It does not dial until Connect
// is called.
func New(network, address string, logger scoutlog.Logger) *Conn {
	if logger == nil {
		logger = scoutlog.Noop
	}
	return &Conn{
		network: network,
		address: address,
		logger:  logger,
		queue:   make(chan writeItem, 256),
		events:  make(chan Event, 32),
		done:    make(chan struct{}),
	}
}

// Events returns the channel of connection-state notifications.
func (c *Conn) Events() <-chan Event { return c.events }

// Connect opens the socket, failing with ErrConnectionFailed if the
// endpoint is unreachable within ctx or DefaultConnectTimeout.
func (c *Conn) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, c.network, c.address)
	if err != nil {
		c.emit(Event{Type: ErrorReceived, Err: err})
		return fmt.Errorf("agentconn: dial %s %s: %w: %w", c.network, c.address, err, ErrConnectionFailed)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop()
	c.emit(Event{Type: Connected})
	return nil
}

// Send serializes msg through the write queue and blocks for its
// matching response.
func (c *Conn) Send(ctx context.Context, msgType protocol.Discriminator, body any) (protocol.ResponseBody, error) {
	if c.closed.Load() {
		return protocol.ResponseBody{}, ErrDisconnected
	}
	frame, err := protocol.Encode(msgType, body)
	if err != nil {
		return protocol.ResponseBody{}, err
	}
	resultCh := make(chan sendResult, 1)
	select {
	case c.queue <- writeItem{frame: frame, result: resultCh}:
	case <-c.done:
		return protocol.ResponseBody{}, ErrDisconnected
	case <-ctx.Done():
		return protocol.ResponseBody{}, ctx.Err()
	}
	select {
	case res := <-resultCh:
		return res.body, res.err
	case <-ctx.Done():
		return protocol.ResponseBody{}, ctx.Err()
	}
}

// SendAsync enqueues msg for fire-and-forget delivery; delivery order
// relative to other SendAsync and Send calls on this Conn is preserved.
// Delivery failures are logged, never surfaced; the returned error
// only reports a message that could not be encoded or a Conn that is
// already disconnected.
func (c *Conn) SendAsync(msgType protocol.Discriminator, body any) error {
	if c.closed.Load() {
		return ErrDisconnected
	}
	frame, err := protocol.Encode(msgType, body)
	if err != nil {
		return err
	}
	select {
	case c.queue <- writeItem{frame: frame}:
		return nil
	case <-c.done:
		return ErrDisconnected
	default:
		c.logger.Log(scoutlog.Warn, "agentconn: send queue full, dropping message")
		return nil
	}
}

// writeLoop is the single writer goroutine: it writes each queued
// frame and reads back the one matching response before moving to the
// next item, which is what keeps the connection half-duplex-safe. The
// queue is never closed — only the writer ever reads it, so it owns
// draining; senders learn of shutdown solely through done, never
// through a closed-channel send.
func (c *Conn) writeLoop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	for {
		select {
		case item := <-c.queue:
			c.process(conn, item)
		case <-c.done:
			c.drain(conn)
			return
		}
	}
}

// drain flushes whatever was already enqueued before done fired, so a
// transaction that won its race against Disconnect still gets sent.
func (c *Conn) drain(conn net.Conn) {
	for {
		select {
		case item := <-c.queue:
			c.process(conn, item)
		default:
			return
		}
	}
}

func (c *Conn) process(conn net.Conn, item writeItem) {
	if _, err := conn.Write(item.frame); err != nil {
		c.deliver(item, sendResult{err: fmt.Errorf("agentconn: write: %w", err)})
		c.emit(Event{Type: ErrorReceived, Err: err})
		if item.result == nil {
			c.logger.Log(scoutlog.Warn, fmt.Sprintf("agentconn: async send failed: write: %v", err))
		}
		return
	}
	typ, body, err := protocol.DecodeResponse(conn)
	if err != nil {
		c.deliver(item, sendResult{err: fmt.Errorf("agentconn: read response: %w", err)})
		c.emit(Event{Type: ErrorReceived, Err: err})
		if item.result == nil {
			c.logger.Log(scoutlog.Warn, fmt.Sprintf("agentconn: async send failed: read response: %v", err))
		}
		return
	}
	c.deliver(item, sendResult{typ: typ, body: body})
	if item.result == nil && !body.Succeeded() {
		c.logger.Log(scoutlog.Warn, fmt.Sprintf("agentconn: async send failed: %s", body.Message))
	}
}

func (c *Conn) deliver(item writeItem, res sendResult) {
	if item.result != nil {
		item.result <- res
	}
}

func (c *Conn) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}

// Disconnect drains in-flight work and closes the socket. Safe to call
// more than once.
func (c *Conn) Disconnect() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.emit(Event{Type: Disconnected})
	return err
}

// StopProcess closes the connection exactly as Disconnect does; it
// sends no exit request to the agent process. The lifecycle manager
// calls it only when allowShutdown is set, and separately kills an
// agent process it spawned itself.
func (c *Conn) StopProcess() error {
	return c.Disconnect()
}
