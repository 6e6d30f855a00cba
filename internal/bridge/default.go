package bridge

import "sync"

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry used by the package-level
// boundary functions.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

func RegisterOutbound(h Outbound) error {
	return Default().RegisterOutbound(h)
}

func RegisterStop(h Stopper) error {
	return Default().RegisterStop(h)
}

func Send(buf []byte) error {
	return Default().SendBridge().Send(buf)
}

func Stop() error {
	return Default().StopBridge().Stop()
}
