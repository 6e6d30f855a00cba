package channel

import (
	"errors"
	"strings"
	"sync"
)

var ErrAlreadySignaled = errors.New("channel: stop already signaled")

// StopSignal is a one-shot shutdown channel. The first signal closes Done;
// every later signal reports ErrAlreadySignaled and changes nothing.
type StopSignal struct {
	done   chan struct{}
	mu     sync.Mutex
	fired  bool
	reason string
}

func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

func (s *StopSignal) Signal() error {
	return s.SignalWithReason("")
}

func (s *StopSignal) SignalWithReason(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired {
		return ErrAlreadySignaled
	}
	s.fired = true
	s.reason = strings.TrimSpace(reason)
	close(s.done)
	return nil
}

func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}

func (s *StopSignal) Signaled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Reason returns the reason given with the first signal, if any.
func (s *StopSignal) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}
