package runtime

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/wirebridge/internal/bridge"
	"github.com/danmuck/wirebridge/internal/channel"
	"github.com/danmuck/wirebridge/internal/testutil/testlog"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var errPeerGone = errors.New("peer gone")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errPeerGone }

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) / 2, nil }

type panicWriter struct{}

func (panicWriter) Write([]byte) (int, error) { panic("writer exploded") }

func waitDone(t *testing.T, c *Client) error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- c.Wait() }()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("client did not stop")
		return nil
	}
}

func TestClientWritesInOrderAndStops(t *testing.T) {
	testlog.Start(t)
	out := &syncBuffer{}
	reg := bridge.NewRegistry()
	c, err := New(Config{ClientID: "client.a"}, out, reg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	sb := reg.SendBridge()
	var want strings.Builder
	for i := 0; i < 20; i++ {
		line := "line-" + string(rune('a'+i)) + "\n"
		want.WriteString(line)
		if err := sb.Send([]byte(line)); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if err := reg.StopBridge().Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := reg.StopBridge().Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if err := waitDone(t, c); err != nil {
		t.Fatalf("wait: %v", err)
	}

	if got := out.String(); got != want.String() {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want.String())
	}
	stats := c.Stats()
	if stats.ClientID != "client.a" || stats.Enqueued != 20 || stats.Written != 20 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.BytesWritten != uint64(want.Len()) {
		t.Fatalf("unexpected bytes written: %d", stats.BytesWritten)
	}
	if stats.StopRequests != 2 || !stats.Stopped || stats.StopReason != "stop requested" {
		t.Fatalf("unexpected stop stats: %+v", stats)
	}
	if stats.StartedAt.IsZero() || stats.Uptime(time.Now()) <= 0 {
		t.Fatalf("expected start time recorded")
	}
}

func TestClientWriteFailureStopsAndFailsLaterSends(t *testing.T) {
	testlog.Start(t)
	c, err := New(DefaultConfig(), failingWriter{}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Bridge().Send([]byte("doomed")); err != nil {
		t.Fatalf("first send should be accepted: %v", err)
	}
	if err := waitDone(t, c); !errors.Is(err, errPeerGone) {
		t.Fatalf("expected peer error, got %v", err)
	}

	err = c.Bridge().Send([]byte("after"))
	if !errors.Is(err, bridge.ErrSendFailed) || !errors.Is(err, channel.ErrClosed) {
		t.Fatalf("expected ErrSendFailed wrapping ErrClosed, got %v", err)
	}
	if err := c.Bridge().Stop(); err != nil {
		t.Fatalf("stop after failure: %v", err)
	}
	stats := c.Stats()
	if stats.WriteErrors != 1 || stats.StopReason != reasonWriteFailed {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestClientContextCancelStops(t *testing.T) {
	testlog.Start(t)
	c, err := New(DefaultConfig(), &syncBuffer{}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
	if err := waitDone(t, c); err != nil {
		t.Fatalf("wait: %v", err)
	}
	select {
	case <-c.Done():
	default:
		t.Fatalf("expected done after cancel")
	}
	if reason := c.Stats().StopReason; reason != reasonContextDone {
		t.Fatalf("unexpected reason: %q", reason)
	}
}

func TestClientDrainsQueuedBuffersOnStop(t *testing.T) {
	testlog.Start(t)
	out := &syncBuffer{}
	cfg := DefaultConfig()
	cfg.DrainOnStop = true
	c, err := New(cfg, out, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	for _, msg := range []string{"one;", "two;", "three;"} {
		if err := c.Bridge().Send([]byte(msg)); err != nil {
			t.Fatalf("send %q: %v", msg, err)
		}
	}
	if err := c.Bridge().Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := waitDone(t, c); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := out.String(); got != "one;two;three;" {
		t.Fatalf("unexpected drained output: %q", got)
	}
}

func TestClientRegistrationIsOncePerRegistry(t *testing.T) {
	testlog.Start(t)
	reg := bridge.NewRegistry()
	if _, err := New(DefaultConfig(), &syncBuffer{}, reg); err != nil {
		t.Fatalf("first client: %v", err)
	}
	_, err := New(DefaultConfig(), &syncBuffer{}, reg)
	if !errors.Is(err, bridge.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestClientStartTwice(t *testing.T) {
	testlog.Start(t)
	c, err := New(DefaultConfig(), &syncBuffer{}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	_ = c.Bridge().Stop()
	if err := waitDone(t, c); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestClientWriterPanicIsRecovered(t *testing.T) {
	testlog.Start(t)
	c, err := New(DefaultConfig(), panicWriter{}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = c.Bridge().Send([]byte("boom"))
	if err := waitDone(t, c); !errors.Is(err, ErrWriterPanic) {
		t.Fatalf("expected ErrWriterPanic, got %v", err)
	}
	if !c.Stats().Stopped {
		t.Fatalf("expected stop after writer panic")
	}
}

func TestClientShortWrite(t *testing.T) {
	testlog.Start(t)
	c, err := New(DefaultConfig(), shortWriter{}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = c.Bridge().Send([]byte("abcdef"))
	if err := waitDone(t, c); !errors.Is(err, ErrShortWrite) {
		t.Fatalf("expected ErrShortWrite, got %v", err)
	}
}

func TestNewRequiresWriter(t *testing.T) {
	testlog.Start(t)
	if _, err := New(DefaultConfig(), nil, nil); !errors.Is(err, ErrWriterRequired) {
		t.Fatalf("expected ErrWriterRequired, got %v", err)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	testlog.Start(t)
	cfg := Config{QueueCapacity: -3, EnqueueTimeout: -time.Second}.WithDefaults()
	if cfg.ClientID == "" {
		t.Fatalf("expected generated client id")
	}
	if cfg.QueueCapacity != 0 || cfg.EnqueueTimeout != 0 {
		t.Fatalf("negative values should clamp to zero: %+v", cfg)
	}
	if cfg.EnqueuePolicy != channel.PolicyBlock {
		t.Fatalf("unexpected policy: %q", cfg.EnqueuePolicy)
	}
	kept := Config{ClientID: " client.b "}.WithDefaults()
	if kept.ClientID != "client.b" {
		t.Fatalf("unexpected client id: %q", kept.ClientID)
	}
}
