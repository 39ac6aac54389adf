// Package master implements the size-classed slab allocator itself:
// allocate, free, newblock, and dereference. A Local is one thread's
// view of a Pool: its own touse/tofree stacks per size class, its own
// emptyblocks cache, and a shared reference to the block table and
// freelist directory.
package master

import (
	"fmt"

	"github.com/minio/slabpool/handle"
	"github.com/minio/slabpool/internal/align"
	"github.com/minio/slabpool/internal/block"
	"github.com/minio/slabpool/internal/shared"
	"github.com/minio/slabpool/internal/sizeclass"
)

// MaxItemSize is the allocation ceiling: 2^24 - 1 bytes.
const MaxItemSize = 1<<24 - 1

// Local is one thread's handle onto a Pool's shared state. It must not
// be shared across goroutines; each goroutine that allocates/frees
// concurrently should hold its own Local built from the same
// *shared.Shared.
type Local struct {
	sh          *shared.Shared
	classes     map[uint32]*sizeclass.State
	emptyBlocks []uint32
}

// NewLocal retains sh and returns a fresh thread-local view of it.
func NewLocal(sh *shared.Shared) *Local {
	sh.Retain()
	return &Local{sh: sh, classes: make(map[uint32]*sizeclass.State)}
}

// Close returns this Local's per-size-class reuse stacks to the shared
// directory and releases its reference to the shared state:
// thread-local bookkeeping is returned first, so a sibling Local
// sharing the same Shared can still use it.
func (l *Local) Close() {
	for size, st := range l.classes {
		if !st.ToUse.Empty() {
			h, n := st.ToUse.Drain()
			l.sh.Dir.Prepend(int(size), h, n)
		}
		if !st.ToFree.Empty() {
			h, n := st.ToFree.Drain()
			l.sh.Dir.Prepend(int(size), h, n)
		}
	}
	l.sh.Release()
}

func (l *Local) layout() handle.Layout { return l.sh.Opts.Layout }

func (l *Local) classFor(size uint32) *sizeclass.State {
	if st, ok := l.classes[size]; ok {
		return st
	}
	allocSize := align.Up(size, l.sh.HandleWidth())
	linker := freelistLinker(l.sh, l.layout())
	st := sizeclass.New(size, allocSize, linker, l.sh.Opts.InitialBlockBytes)
	l.classes[size] = st
	return st
}

// Allocate follows a five-step priority order: reuse this thread's own
// freed chunks first, then its spilled-and-promoted ones, then bump an
// active block, then steal from the shared directory, and only then
// carve a fresh block.
func (l *Local) Allocate(size uint32) (handle.Handle, error) {
	if size == 0 || size > MaxItemSize {
		panic("slabpool: master: allocate: size out of range 0 < size <= 2^24-1")
	}

	st := l.classFor(size)

	for {
		// Step 1: private touse.
		if h, ok := st.ToUse.Pop(); ok {
			zero(l.dereferenceRaw(h, st), size)
			return l.finishAllocate(h, size, st)
		}

		// Step 2: promote tofree into touse, then retry step 1.
		if !st.ToFree.Empty() {
			st.ToUse.AbsorbFrom(st.ToFree)
			continue
		}

		// Step 3: bump-alloc in the active block. Freshly carved memory
		// is already zero, so no explicit zeroing here.
		if st.Active != nil {
			if chunk, ok := st.Active.TryBump(); ok {
				h := handle.New(l.layout(), uint64(st.ActiveSlab), uint64(chunk), 0)
				return l.finishAllocate(h, size, st)
			}
		}

		// Step 4: steal from the shared freelist, graft into touse, retry.
		if n := l.sh.Dir.PopNode(int(size)); n != nil {
			st.ToUse.Load(n.Head, n.Count)
			continue
		}

		// Step 5: carve a fresh block and become its active slab.
		if err := l.newBlock(st, size); err != nil {
			return handle.Null, err
		}
	}
}

func (l *Local) finishAllocate(h handle.Handle, size uint32, st *sizeclass.State) (handle.Handle, error) {
	slab, chunk := uint32(h.Slab(l.layout())), uint32(h.Chunk(l.layout()))
	l.sh.Opts.Inspector.Allocated(h, slab, chunk, size)
	l.sh.Stats.RecordAllocate(size)
	return h, nil
}

// newBlock reserves a fresh slab index and carves a new block sized
// for the size class's current adaptive block size.
func (l *Local) newBlock(st *sizeclass.State, size uint32) error {
	slab := l.popEmptyBlock()

	allocSize := align.Up(size, l.sh.HandleWidth())
	total := st.BlockSize / allocSize
	if total == 0 {
		total = 1
	}

	b, requested, err := block.New(l.sh.Opts.Backing, size, allocSize, total)
	if err != nil {
		return err
	}
	l.sh.Table.Publish(slab, b)
	l.sh.Opts.Inspector.BlockCreated(slab, size, total, requested)
	st.SetActive(slab, b, l.sh.Opts.BlockBytesCeiling)
	return nil
}

// popEmptyBlock returns a slab index from the thread-local emptyblocks
// cache, reserving a fresh batch from the shared table if the cache is
// empty. Slab-space exhaustion is a fatal assertion (spec.md §7) and
// surfaces as a panic from sh.ReserveSlabs, not an error return.
func (l *Local) popEmptyBlock() uint32 {
	if n := len(l.emptyBlocks); n > 0 {
		slab := l.emptyBlocks[n-1]
		l.emptyBlocks = l.emptyBlocks[:n-1]
		return slab
	}
	first, batch := l.sh.ReserveSlabs()
	for i := uint32(1); i < batch; i++ {
		l.emptyBlocks = append(l.emptyBlocks, first+i)
	}
	return first
}

// Free returns h to this thread's local reuse stacks, spilling to the
// shared directory once the tofree stack reaches its threshold.
func (l *Local) Free(h handle.Handle) {
	if !h.Valid(l.layout()) {
		return
	}
	slab := uint32(h.Slab(l.layout()))
	b := l.sh.Table.Get(slab)
	if b == nil || b.Ephemeral() {
		panic(fmt.Sprintf("slabpool: master: free: slab %d has no live block", slab))
	}

	size := b.ItemSize
	chunk := uint32(h.Chunk(l.layout()))
	st := l.classFor(size)

	if st.ToUse.Len() < sizeclass.ToFreeSpillThreshold {
		st.ToUse.Push(h)
	} else {
		st.ToFree.Push(h)
		if st.ToFree.Len() >= sizeclass.ToFreeSpillThreshold {
			head, count := st.ToFree.Drain()
			l.sh.Dir.Prepend(int(size), head, count)
		}
	}

	l.sh.Opts.Inspector.Freed(h, slab, chunk)
	l.sh.Stats.RecordFree(size)
}

// Dereference returns h's backing bytes, trimmed to its item size.
func (l *Local) Dereference(h handle.Handle) []byte {
	slab := uint32(h.Slab(l.layout()))
	b := l.sh.Table.Get(slab)
	if b == nil || b.Ephemeral() {
		panic(fmt.Sprintf("slabpool: master: dereference: slab %d has no live block", slab))
	}
	return b.Dereference(uint32(h.Chunk(l.layout())))
}

// dereferenceRaw returns the chunk's full allocation stride (including
// alignment padding), used internally to zero a reused chunk before
// handing it back out.
func (l *Local) dereferenceRaw(h handle.Handle, st *sizeclass.State) []byte {
	slab := uint32(h.Slab(l.layout()))
	b := l.sh.Table.Get(slab)
	return b.RawChunk(uint32(h.Chunk(l.layout())))
}

// Size returns the item size h's slab was allocated with.
func (l *Local) Size(h handle.Handle) uint32 {
	slab := uint32(h.Slab(l.layout()))
	b := l.sh.Table.Get(slab)
	if b == nil || b.Ephemeral() {
		panic(fmt.Sprintf("slabpool: master: size: slab %d has no live block", slab))
	}
	return b.ItemSize
}

func zero(buf []byte, n uint32) {
	clear(buf[:n])
}
