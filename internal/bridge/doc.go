// Package bridge hands buffers from an external caller to the client runtime
// and lets that caller request runtime shutdown.
//
// Ownership boundary:
// - one-time registration of the outbound and stop handles
// - send with stop escalation on enqueue failure
// - idempotent stop
//
// The handles are borrowed. The runtime that registered them owns the
// underlying channels and their teardown.
package bridge
