package bridge

import (
	"fmt"

	"github.com/danmuck/wirebridge/internal/observability"
)

// Bridge is a bound outbound/stop pair. It can only be built with both handles
// present, so its operations never report ErrNotRegistered.
type Bridge struct {
	out  Outbound
	stop Stopper
}

// Bind builds a bridge directly from runtime-owned handles.
func Bind(out Outbound, stop Stopper) (*Bridge, error) {
	if isNilHandle(out) || isNilHandle(stop) {
		return nil, ErrNilHandle
	}
	return &Bridge{out: out, stop: stop}, nil
}

// Send enqueues buf for the writer. On enqueue failure the stop signal is
// raised before the error is returned; callers must stop sending afterwards.
func (b *Bridge) Send(buf []byte) error {
	return send(b.out, b.stop, buf)
}

// Stop requests runtime shutdown. Repeated calls are safe.
func (b *Bridge) Stop() error {
	return signalStop(b.stop)
}

// SendBridge sends through whatever outbound handle a Registry holds at call time.
type SendBridge struct {
	reg *Registry
}

func (s SendBridge) Send(buf []byte) error {
	if s.reg == nil {
		return ErrNotRegistered
	}
	return send(s.reg.outboundHandle(), s.reg.stopHandle(), buf)
}

// StopBridge stops through whatever stop handle a Registry holds at call time.
type StopBridge struct {
	reg *Registry
}

func (s StopBridge) Stop() error {
	if s.reg == nil {
		return ErrNotRegistered
	}
	return signalStop(s.reg.stopHandle())
}

func send(out Outbound, stop Stopper, buf []byte) error {
	if out == nil {
		observability.RecordSend(observability.ResultNotRegistered)
		return ErrNotRegistered
	}
	if err := out.Enqueue(buf); err != nil {
		observability.RecordSend(observability.ResultFailed)
		return escalate(stop, err)
	}
	observability.RecordSend(observability.ResultOK)
	return nil
}

// escalate is the single place where an outbound failure becomes a stop.
func escalate(stop Stopper, cause error) error {
	observability.RecordEscalation()
	l := logger()
	l.Error().Err(cause).Msg("send to writer failed, stopping client")
	if err := signalStop(stop); err != nil {
		l.Error().Err(err).Msg("send failure could not be escalated")
	}
	return fmt.Errorf("%w: %w", ErrSendFailed, cause)
}

type signaledReporter interface {
	Signaled() bool
}

// signalStop never reports a failed signal: shutdown is already underway
// or the channel is gone, and there is nothing left to escalate to.
func signalStop(stop Stopper) error {
	if stop == nil {
		observability.RecordStop(observability.ResultNotRegistered)
		return ErrNotRegistered
	}
	err := stop.Signal()
	if err == nil {
		observability.RecordStop(observability.ResultOK)
		logger().Info().Msg("stop signaled")
		return nil
	}

	observability.RecordStop(observability.ResultAlreadyDone)
	l := logger()
	event := l.Warn()
	if r, ok := stop.(signaledReporter); ok && r.Signaled() {
		event = l.Debug()
	}
	event.Err(fmt.Errorf("%w: %w", ErrStopSignalFailed, err)).Msg("stop already in progress")
	return nil
}
