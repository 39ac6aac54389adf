// Package inspect implements an accessibility-instrumentation contract:
// a side-channel over the backing-allocator boundary that a
// valgrind-like tool could use to catch use-after-free and double-free,
// described here as a behavioural contract rather than a concrete
// memcheck shim. Every pool invariant must hold whether or not
// instrumentation is wired in — Noop is the always-available,
// zero-cost default; other implementations are strictly additive.
package inspect

import "github.com/minio/slabpool/handle"

// Inspector receives a notification for each of three lifecycle
// events. Implementations must not block or allocate on the hot path
// in a way that would stall an allocate or free call. Tracing in this
// package records every event as a span event; it does not sample.
type Inspector interface {
	// BlockCreated fires when a new block is carved, before any chunk
	// in it is allocated. "On new block: mark the payload no-access."
	BlockCreated(slab uint32, itemSize uint32, total uint32, bytes int)

	// Allocated fires when a chunk is handed to a caller. "mark the
	// returned chunk as a fresh allocation of size(handle) bytes; tag
	// with a human-readable identifier containing slab, chunk, address."
	Allocated(h handle.Handle, slab, chunk uint32, size uint32)

	// Freed fires when a chunk is returned to the pool. "mark the chunk
	// no-access and flip its identifier to a deleted variant."
	Freed(h handle.Handle, slab, chunk uint32)
}

// Noop satisfies Inspector by doing nothing. It is the default Options
// value so that a pool built without observability still satisfies
// every pool invariant.
type Noop struct{}

func (Noop) BlockCreated(uint32, uint32, uint32, int)         {}
func (Noop) Allocated(handle.Handle, uint32, uint32, uint32)  {}
func (Noop) Freed(handle.Handle, uint32, uint32)              {}
