// Package shared implements the state every thread-local copy of a
// master Pool shares: the block table, the shared freelist directory,
// the backing allocator, and a manual reference count standing in for
// atomic reference counting. Go has no destructors, so the last
// Pool.Close caller runs the finaliser explicitly instead of relying on
// GC finalizers, which the runtime gives no delivery-timing guarantee
// for.
package shared

import (
	"sync/atomic"

	"github.com/minio/slabpool/handle"
	"github.com/minio/slabpool/internal/backing"
	"github.com/minio/slabpool/internal/block"
	"github.com/minio/slabpool/internal/freelist"
	"github.com/minio/slabpool/internal/inspect"
	"github.com/minio/slabpool/internal/stats"
)

// Options configures a pool's shared state. The zero value is not
// usable; construct via Defaults() and override selectively.
type Options struct {
	Layout handle.Layout

	// Backing is the external page allocator.
	Backing backing.Allocator

	// Inspector receives accessibility-instrumentation events. Defaults
	// to inspect.Noop{}.
	Inspector inspect.Inspector

	// BlockBytesCeiling caps the adaptive per-size-class block size.
	BlockBytesCeiling uint32

	// SlabReserveBatch is how many slab indices usedblocks.fetch_add
	// claims at once. Default 16.
	SlabReserveBatch uint32

	// InitialBlockBytes is the block size a size class starts with
	// before any subsequent growth.
	InitialBlockBytes uint32
}

// Defaults returns sane Options for general use: a heap-backed
// allocator, no instrumentation, a 16MiB block ceiling, 16-slab
// batches, and a 4KiB initial block size.
func Defaults() Options {
	return Options{
		Layout:            handle.Narrow,
		Backing:           backing.Heap{},
		Inspector:         inspect.Noop{},
		BlockBytesCeiling: 16 << 20,
		SlabReserveBatch:  16,
		InitialBlockBytes: 4096,
	}
}

// Shared is the state every Pool copy points to.
type Shared struct {
	Opts  Options
	Table *block.Table
	Dir   *freelist.Directory
	Stats *stats.Collector

	refcount atomic.Int64
}

// New constructs shared state with a refcount of 1 (owned by the caller
// who is about to build the first Pool value from it).
func New(opts Options) *Shared {
	opts.Layout.Validate()
	sh := &Shared{
		Opts:  opts,
		Table: block.NewTable(opts.Layout.SlabBits),
		Dir:   freelist.NewDirectory(),
		Stats: stats.NewCollector(),
	}
	sh.refcount.Store(1)
	return sh
}

// HandleWidth is sizeof(handle) in bytes for this shared state's
// layout.
func (sh *Shared) HandleWidth() uint32 {
	return uint32((sh.Opts.Layout.Bits() + 7) / 8)
}

// Retain adds one reference, for a thread constructing a new Local view
// of an existing pool.
func (sh *Shared) Retain() {
	sh.refcount.Add(1)
}

// Release drops one reference and runs the finaliser if it was the
// last one: the shared state is finalised when its last reference is
// dropped.
func (sh *Shared) Release() {
	if sh.refcount.Add(-1) == 0 {
		sh.teardown()
	}
}

// ReserveSlabs atomically claims a batch of slab indices. Slab-space
// exhaustion is a fatal assertion (spec.md §7); Table.Reserve panics
// rather than returning an error, and ReserveSlabs lets that panic
// propagate instead of downgrading it to a recoverable condition.
func (sh *Shared) ReserveSlabs() (uint32, uint32) {
	first := sh.Table.Reserve(sh.Opts.SlabReserveBatch)
	return first, sh.Opts.SlabReserveBatch
}

// teardown asks the backing allocator to Drop every published block
// with its precise byte count. It does not walk the shared freelist
// directory; its Node values are left for the GC to reclaim.
func (sh *Shared) teardown() {
	sh.Table.All(func(_ uint32, b *block.Block) {
		if b.Ephemeral() {
			return
		}
		sh.Opts.Backing.Drop(b.Data, b.ByteSize())
	})
}
