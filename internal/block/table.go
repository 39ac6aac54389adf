package block

import (
	"fmt"
	"sync/atomic"
)

// Table is the shared block table indexed by slab index, plus the
// atomic "usedblocks" counter that hands out fresh indices. Slab 0 is
// never assigned — it is reserved for the null handle.
//
// Writes to a slot happen exactly once, by the thread that reserved
// that index, and must be visible to every other thread that later
// dereferences a handle into it. A Go atomic.Pointer store/load pair
// gives that release/acquire edge for free, so Table needs no
// additional locking.
type Table struct {
	slots      []atomic.Pointer[Block]
	usedBlocks atomic.Uint32
	maxSlab    uint32
}

// NewTable allocates a table sized for a layout with the given slab-bit
// width (2^slabBits slots).
func NewTable(slabBits uint) *Table {
	size := uint32(1) << slabBits
	t := &Table{
		slots:   make([]atomic.Pointer[Block], size),
		maxSlab: size,
	}
	t.usedBlocks.Store(1) // slab 0 reserved for null
	return t
}

// Reserve atomically claims `batch` consecutive slab indices, returning
// the first one. Allocate uses this with batch=16: one index becomes
// the new active slab, the rest are cached thread-locally.
//
// usedblocks exhausting the slab space is a fatal assertion, not a
// recoverable condition (spec.md §7 distinguishes it from the backing
// allocator failing, which does propagate as an error): Reserve panics
// rather than returning an error, matching the fatal-assertion idiom
// used elsewhere in the pool (e.g. master.Free/Dereference/Size on an
// ephemeral or missing block).
func (t *Table) Reserve(batch uint32) uint32 {
	first := t.usedBlocks.Add(batch) - batch
	if first+batch > t.maxSlab {
		panic(fmt.Sprintf("slabpool: block: usedblocks would exceed 2^%d slabs", bits(t.maxSlab)))
	}
	return first
}

func bits(n uint32) int {
	b := 0
	for n > 1 {
		n >>= 1
		b++
	}
	return b
}

// Publish installs b at the given slab index. Must be called exactly
// once per index, by the thread that reserved it.
func (t *Table) Publish(slab uint32, b *Block) {
	t.slots[slab].Store(b)
}

// EnsurePublished installs a block at slab if (and only if) none exists
// yet, calling factory at most once per successful install. If two
// threads race to materialise the same slab, the loser's speculative
// block is discarded via onLose (e.g. dropped back to a backing
// allocator) instead of being silently leaked. Used by the slave pool
// so that two threads racing to materialise the same slab converge on
// one winning block instead of each believing it created the slab.
func (t *Table) EnsurePublished(slab uint32, factory func() (*Block, error), onLose func(*Block)) (*Block, error) {
	if b := t.Get(slab); b != nil {
		return b, nil
	}
	b, err := factory()
	if err != nil {
		return nil, err
	}
	if t.slots[slab].CompareAndSwap(nil, b) {
		return b, nil
	}
	if onLose != nil {
		onLose(b)
	}
	return t.slots[slab].Load(), nil
}

// Get returns the block at slab, or nil if nothing has been published
// there yet (e.g. a reserved-but-not-yet-published index, or an
// out-of-range / never-reserved one).
func (t *Table) Get(slab uint32) *Block {
	if slab == 0 || slab >= t.maxSlab {
		return nil
	}
	return t.slots[slab].Load()
}

// Len reports how many slab indices have been reserved so far,
// including slab 0.
func (t *Table) Len() uint32 {
	return t.usedBlocks.Load()
}

// All calls fn for every published block, in slab order. Used by
// teardown and by the statistics surface.
func (t *Table) All(fn func(slab uint32, b *Block)) {
	n := t.Len()
	for slab := uint32(1); slab < n; slab++ {
		if b := t.slots[slab].Load(); b != nil {
			fn(slab, b)
		}
	}
}
