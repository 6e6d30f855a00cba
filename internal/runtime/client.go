package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/wirebridge/internal/bridge"
	"github.com/danmuck/wirebridge/internal/channel"
	"github.com/danmuck/wirebridge/internal/observability"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

var (
	ErrWriterRequired = errors.New("runtime: writer required")
	ErrAlreadyStarted = errors.New("runtime: client already started")
	ErrWriterPanic    = errors.New("runtime: writer panicked")
	ErrShortWrite     = errors.New("runtime: short write")
)

const (
	reasonContextDone = "context done"
	reasonWriteFailed = "write failed"
	reasonWriterExit  = "writer exited"
)

type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

// Client owns the outbound queue and stop signal for one connection and
// drains the queue into its writer until stop is observed.
type Client struct {
	cfg    Config
	w      io.Writer
	queue  *channel.Queue
	stop   *channel.StopSignal
	reg    *bridge.Registry
	bridge *bridge.Bridge
	log    zerolog.Logger

	wg      conc.WaitGroup
	started atomic.Bool
	startAt atomic.Int64

	errMu sync.Mutex
	err   error

	enqueued     atomic.Uint64
	written      atomic.Uint64
	bytesWritten atomic.Uint64
	writeErrors  atomic.Uint64
	stopRequests atomic.Uint64
}

// New builds the client's channels and registers their sending ends with
// reg. A nil reg gets a fresh registry.
func New(cfg Config, w io.Writer, reg *bridge.Registry) (*Client, error) {
	if w == nil {
		return nil, ErrWriterRequired
	}
	cfg = cfg.WithDefaults()
	if reg == nil {
		reg = bridge.NewRegistry()
	}

	c := &Client{
		cfg:   cfg,
		w:     w,
		queue: channel.NewQueue(cfg.QueueCapacity, cfg.EnqueuePolicy, cfg.EnqueueTimeout),
		stop:  channel.NewStopSignal(),
		reg:   reg,
		log:   observability.Component("runtime").With().Str("client_id", cfg.ClientID).Logger(),
	}
	out := outboundHandle{c: c}
	stop := stopHandle{c: c}

	if err := reg.RegisterOutbound(out); err != nil {
		c.queue.Close()
		return nil, fmt.Errorf("register outbound: %w", err)
	}
	if err := reg.RegisterStop(stop); err != nil {
		c.queue.Close()
		return nil, fmt.Errorf("register stop: %w", err)
	}
	b, err := bridge.Bind(out, stop)
	if err != nil {
		c.queue.Close()
		return nil, err
	}
	c.bridge = b
	return c, nil
}

func (c *Client) ID() string {
	return c.cfg.ClientID
}

func (c *Client) Registry() *bridge.Registry {
	return c.reg
}

// Bridge returns a bound bridge for in-process callers.
func (c *Client) Bridge() *bridge.Bridge {
	return c.bridge
}

// Done is closed once stop has been signaled.
func (c *Client) Done() <-chan struct{} {
	return c.stop.Done()
}

// Start launches the writer. Cancelling ctx is treated as a stop request.
func (c *Client) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	c.startAt.Store(time.Now().UnixNano())
	c.log.Info().
		Int("queue_capacity", c.queue.Cap()).
		Str("enqueue_policy", string(c.queue.Policy())).
		Msg("client started")
	c.wg.Go(func() {
		c.writeLoop(ctx)
	})
	return nil
}

// Wait blocks until the writer exits and returns the first write failure.
func (c *Client) Wait() error {
	if r := c.wg.WaitAndRecover(); r != nil {
		c.setErr(fmt.Errorf("%w: %v", ErrWriterPanic, r.Value))
		c.log.Error().Interface("panic", r.Value).Msg("writer panicked")
	}
	return c.Err()
}

func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	defer func() {
		c.queue.Close()
		_ = c.stop.SignalWithReason(reasonWriterExit)
	}()

	ctxDone := ctx.Done()
	for {
		select {
		case <-ctxDone:
			ctxDone = nil
			_ = c.stop.SignalWithReason(reasonContextDone)
		case <-c.stop.Done():
			c.shutdown(c.cfg.DrainOnStop)
			return
		case buf := <-c.queue.C():
			if err := c.write(buf); err != nil {
				c.setErr(err)
				_ = c.stop.SignalWithReason(reasonWriteFailed)
				c.shutdown(false)
				return
			}
		}
	}
}

func (c *Client) shutdown(drain bool) {
	c.queue.Close()
	drained := 0
	if drain {
	loop:
		for {
			select {
			case buf := <-c.queue.C():
				if err := c.write(buf); err != nil {
					c.setErr(err)
					break loop
				}
				drained++
			default:
				break loop
			}
		}
	}
	c.log.Info().
		Str("reason", c.stop.Reason()).
		Int("drained", drained).
		Int("dropped", c.queue.Len()).
		Msg("client stopped")
}

func (c *Client) write(buf []byte) error {
	if dw, ok := c.w.(deadlineWriter); ok && c.cfg.WriteTimeout > 0 {
		if err := dw.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			c.writeErrors.Add(1)
			return err
		}
	}
	n, err := c.w.Write(buf)
	if err == nil && n < len(buf) {
		err = fmt.Errorf("%w: wrote=%d len=%d", ErrShortWrite, n, len(buf))
	}
	if n > 0 {
		c.bytesWritten.Add(uint64(n))
	}
	if err != nil {
		c.writeErrors.Add(1)
		c.log.Error().Err(err).Int("len", len(buf)).Msg("write to peer failed")
		return err
	}
	c.written.Add(1)
	observability.RecordWrite(n)
	return nil
}

// outboundHandle is the outbound end registered with the bridge.
type outboundHandle struct{ c *Client }

func (h outboundHandle) Enqueue(buf []byte) error {
	if err := h.c.queue.Enqueue(buf); err != nil {
		return err
	}
	h.c.enqueued.Add(1)
	return nil
}

// stopHandle is the stop end registered with the bridge.
type stopHandle struct{ c *Client }

func (h stopHandle) Signal() error {
	h.c.stopRequests.Add(1)
	return h.c.stop.SignalWithReason("stop requested")
}

func (h stopHandle) Signaled() bool {
	return h.c.stop.Signaled()
}
