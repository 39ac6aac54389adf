// Package slabpool is the public facade over the master and slave
// allocators: a thread-cooperative slab pool that hands out compact
// opaque handles instead of raw addresses. It wires the internal
// pieces together behind a small public surface, the way a storage
// engine's public package wires an internal engine behind a public
// type.
package slabpool

import (
	"github.com/minio/slabpool/handle"
	"github.com/minio/slabpool/internal/backing"
	"github.com/minio/slabpool/internal/inspect"
	"github.com/minio/slabpool/internal/master"
	"github.com/minio/slabpool/internal/shared"
	"github.com/minio/slabpool/internal/stats"
	"github.com/minio/slabpool/slave"
)

// Re-exported types so a consumer never has to import an internal
// package directly.
type (
	Handle      = handle.Handle
	Layout      = handle.Layout
	Options     = shared.Options
	Allocator   = backing.Allocator
	Inspector   = inspect.Inspector
	StatsReport = stats.Snapshot
)

// Null is the invalid/zero handle.
const Null = handle.Null

// Narrow and Wide are the two handle layouts.
var (
	Narrow = handle.Narrow
	Wide   = handle.Wide
)

// HeapAllocator is the ready-made, portable Allocator. This package does
// not re-export an mmap-backed Allocator.
var HeapAllocator Allocator = backing.Heap{}

// NoopInspector is the zero-cost default accessibility-instrumentation
// backend.
var NoopInspector Inspector = inspect.Noop{}

// DefaultOptions returns sane defaults: heap-backed storage, no
// instrumentation, a 16MiB block ceiling, 16-slab reservation batches.
func DefaultOptions() Options {
	return shared.Defaults()
}

// Pool is a thread-cooperative master slab allocator. The zero value is
// not usable; build one with New. A Pool value is cheap to copy at the
// Go-value level, but copying the struct does NOT give you a second
// thread-local view — call Clone for that: each thread must construct
// its own local view.
type Pool struct {
	sh    *shared.Shared
	local *master.Local
}

// New builds a master pool and this calling thread's first Local view
// of it.
func New(opts Options) Pool {
	sh := shared.New(opts)
	local := master.NewLocal(sh)
	sh.Release() // hand the creator's reference over to the Local
	return Pool{sh: sh, local: local}
}

// NewDefault is New(DefaultOptions()).
func NewDefault() Pool {
	return New(DefaultOptions())
}

// Clone returns a new thread-local view over the same shared pool
// state: its own touse/tofree stacks and emptyblocks cache, sharing the
// block table and freelist directory. Give each goroutine its own
// clone; never call methods on the same Pool value from two goroutines
// at once.
func (p Pool) Clone() Pool {
	return Pool{sh: p.sh, local: master.NewLocal(p.sh)}
}

// Allocate reserves a chunk of at least size bytes and returns its
// handle.
func (p Pool) Allocate(size uint32) (Handle, error) {
	return p.local.Allocate(size)
}

// Free returns h's chunk to the pool for reuse.
func (p Pool) Free(h Handle) {
	p.local.Free(h)
}

// Dereference returns h's backing bytes.
func (p Pool) Dereference(h Handle) []byte {
	return p.local.Dereference(h)
}

// Size returns the item size h was allocated with.
func (p Pool) Size(h Handle) uint32 {
	return p.local.Size(h)
}

// Layout returns the handle layout this pool was built with.
func (p Pool) Layout() Layout {
	return p.sh.Opts.Layout
}

// Stats returns a snapshot of per-size-class allocation statistics.
func (p Pool) Stats() StatsReport {
	return p.sh.Stats.Collect(p.sh.Table, p.sh.HandleWidth())
}

// NewSlavePool attaches a slave (shadow) pool to p, optionally backed by
// a different Allocator (nil reuses p's own).
func (p Pool) NewSlavePool(alloc Allocator) SlavePool {
	return SlavePool{inner: slave.New(p.sh, alloc)}
}

// Close tears down this Local's thread-local state: its touse/tofree
// stacks are returned to the shared directory, then the shared
// reference is released. The last Close tears the whole pool down,
// dropping every block back to the backing allocator.
func (p Pool) Close() {
	p.local.Close()
}

// SlavePool is the public facade over slave.Pool.
type SlavePool struct {
	inner *slave.Pool
}

// Materialise ensures a slave block exists for h's slab, mirroring its
// chunk count, and optionally zeroes h's slave slot.
func (s SlavePool) Materialise(h Handle, payloadSize uint32, clear bool) error {
	return s.inner.Materialise(h, payloadSize, clear)
}

// Dereference returns h's slave payload bytes.
func (s SlavePool) Dereference(h Handle) []byte {
	return s.inner.Dereference(h)
}

// Size returns h's slave payload size.
func (s SlavePool) Size(h Handle) uint32 {
	return s.inner.Size(h)
}

// Close releases this slave pool's reference to the master's shared
// state.
func (s SlavePool) Close() {
	s.inner.Close()
}
