package channel

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	ErrClosed        = errors.New("channel: queue closed")
	ErrFull          = errors.New("channel: queue full")
	ErrInvalidPolicy = errors.New("channel: invalid enqueue policy")
)

// Policy selects how Enqueue behaves when the queue has no room.
type Policy string

const (
	// PolicyBlock waits for room, bounded by the queue timeout when set.
	PolicyBlock Policy = "block"
	// PolicyTry fails immediately with ErrFull.
	PolicyTry Policy = "try"
)

func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyBlock:
		return PolicyBlock, nil
	case PolicyTry:
		return PolicyTry, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, raw)
	}
}

// Queue is the outbound write channel between producers and the writer.
// The data channel is never closed; shutdown is observed through Done.
// Once Close returns, every accepted buffer is already in C.
type Queue struct {
	ch      chan []byte
	done    chan struct{}
	policy  Policy
	timeout time.Duration
	once    sync.Once

	mu     sync.RWMutex
	closed bool
}

func NewQueue(capacity int, policy Policy, timeout time.Duration) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	if policy != PolicyTry {
		policy = PolicyBlock
	}
	return &Queue{
		ch:      make(chan []byte, capacity),
		done:    make(chan struct{}),
		policy:  policy,
		timeout: timeout,
	}
}

// Enqueue copies buf into the queue. The caller keeps ownership of buf.
func (q *Queue) Enqueue(buf []byte) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	item := make([]byte, len(buf))
	copy(item, buf)

	if q.policy == PolicyTry {
		select {
		case <-q.done:
			return ErrClosed
		case q.ch <- item:
			return nil
		default:
			return fmt.Errorf("%w: cap=%d", ErrFull, cap(q.ch))
		}
	}

	var expired <-chan time.Time
	if q.timeout > 0 {
		timer := time.NewTimer(q.timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-q.done:
		return ErrClosed
	case q.ch <- item:
		return nil
	case <-expired:
		return fmt.Errorf("%w: timed out after %s", ErrFull, q.timeout)
	}
}

func (q *Queue) C() <-chan []byte {
	return q.ch
}

func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Close releases blocked senders through Done, then waits for in-flight
// sends to settle before marking the queue closed.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.done)
	})
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *Queue) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

func (q *Queue) Len() int {
	return len(q.ch)
}

func (q *Queue) Cap() int {
	return cap(q.ch)
}

func (q *Queue) Policy() Policy {
	return q.policy
}
