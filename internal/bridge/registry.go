package bridge

import (
	"errors"
	"sync/atomic"

	"github.com/danmuck/wirebridge/internal/channel"
	"github.com/danmuck/wirebridge/internal/observability"
	"github.com/rs/zerolog"
)

var (
	ErrNotRegistered     = errors.New("bridge: handle not registered")
	ErrAlreadyRegistered = errors.New("bridge: handle already registered")
	ErrNilHandle         = errors.New("bridge: nil handle")
	ErrSendFailed        = errors.New("bridge: send failed")
	ErrStopSignalFailed  = errors.New("bridge: stop signal failed")
)

// Outbound is the sending end of the runtime's write channel.
// Typed-nil pointers of channel types are rejected at registration; other
// implementations must not register a nil pointer.
type Outbound interface {
	Enqueue(buf []byte) error
}

// Stopper is the sending end of the runtime's stop channel.
type Stopper interface {
	Signal() error
}

type outboundRef struct{ h Outbound }

type stopRef struct{ h Stopper }

// Registry holds at most one outbound and one stop handle. Each is published
// once with an atomic swap and never cleared.
type Registry struct {
	outbound atomic.Pointer[outboundRef]
	stop     atomic.Pointer[stopRef]
}

func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterOutbound publishes h. A second registration is rejected with
// ErrAlreadyRegistered and the first handle stays in place.
func (r *Registry) RegisterOutbound(h Outbound) error {
	if isNilHandle(h) {
		return ErrNilHandle
	}
	if !r.outbound.CompareAndSwap(nil, &outboundRef{h: h}) {
		logger().Warn().Msg("outbound handle already registered")
		return ErrAlreadyRegistered
	}
	logger().Info().Msg("registering writer channel")
	return nil
}

// RegisterStop has the same contract as RegisterOutbound.
func (r *Registry) RegisterStop(h Stopper) error {
	if isNilHandle(h) {
		return ErrNilHandle
	}
	if !r.stop.CompareAndSwap(nil, &stopRef{h: h}) {
		logger().Warn().Msg("stop handle already registered")
		return ErrAlreadyRegistered
	}
	logger().Info().Msg("registering stop channel")
	return nil
}

func isNilHandle(h any) bool {
	switch v := h.(type) {
	case nil:
		return true
	case *channel.Queue:
		return v == nil
	case *channel.StopSignal:
		return v == nil
	default:
		return false
	}
}

func (r *Registry) outboundHandle() Outbound {
	if ref := r.outbound.Load(); ref != nil {
		return ref.h
	}
	return nil
}

func (r *Registry) stopHandle() Stopper {
	if ref := r.stop.Load(); ref != nil {
		return ref.h
	}
	return nil
}

func (r *Registry) Registered() (outbound bool, stop bool) {
	return r.outbound.Load() != nil, r.stop.Load() != nil
}

// Bridge returns a bound bridge once both handles are registered.
func (r *Registry) Bridge() (*Bridge, error) {
	out, stop := r.outboundHandle(), r.stopHandle()
	if out == nil || stop == nil {
		return nil, ErrNotRegistered
	}
	return &Bridge{out: out, stop: stop}, nil
}

func (r *Registry) SendBridge() SendBridge {
	return SendBridge{reg: r}
}

func (r *Registry) StopBridge() StopBridge {
	return StopBridge{reg: r}
}

func logger() *zerolog.Logger {
	l := observability.Component("bridge")
	return &l
}
