// Package channel holds the runtime-owned channels the bridge hands work to.
//
// Ownership boundary:
// - outbound write queue (buffers for the writer goroutine)
// - stop signal (one-shot shutdown request)
//
// Both are constructed and torn down by the client runtime. The bridge only
// borrows their sending ends.
package channel
