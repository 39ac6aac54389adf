// Package block implements the pool's slabs: contiguous backing-store
// regions dedicated to one item size, carved by the backing allocator
// and addressed by slab index. Each block is one header of fixed
// fields plus one payload sliced into equal chunks, in the spirit of
// a runtime memory allocator's central-span bookkeeping.
package block

import (
	"fmt"
	"sync/atomic"

	"github.com/minio/slabpool/internal/backing"
)

// HeaderOverhead is the number of bytes a backing allocation reserves
// for Block's own bookkeeping before the chunk payload begins. A real
// C-like implementation would place the header in the same region as
// the payload; here the header is a Go struct held alongside the slice,
// but teardown still accounts for HeaderOverhead bytes so that the byte
// figure reported to the backing allocator's Drop matches what was
// requested from Alloc.
const HeaderOverhead = 32

// Block is a single slab: one itemsize, total*allocSize bytes of
// payload, an atomic high-water mark. It never moves and is never freed
// until pool teardown.
type Block struct {
	ItemSize  uint32 // bytes per object, immutable after creation (24 bits)
	AllocSize uint32 // align(ItemSize, chunk alignment); stride between chunks
	Total     uint32 // capacity in chunks (20 bits)
	allocated atomic.Uint32

	Data []byte // Total*AllocSize bytes, zero-filled by the backing allocator
}

// New carves a block sized for `total` chunks of `allocSize` bytes each
// (itemsize is the caller-visible size before alignment padding). A
// sentinel block (total==0) has no payload and exists only so that the
// slab index is reserved and size/free/dereference on it can detect the
// ephemeral case.
func New(alloc backing.Allocator, itemSize, allocSize uint32, total uint32) (*Block, int, error) {
	if itemSize > 1<<24-1 {
		panic("slabpool: block: itemsize exceeds 24 bits")
	}
	if total > 1<<20-1 {
		panic("slabpool: block: total exceeds 20 bits")
	}

	payload := int(total) * int(allocSize)
	requested := HeaderOverhead + payload
	var data []byte
	if payload > 0 {
		region, err := alloc.Alloc(requested)
		if err != nil {
			return nil, 0, fmt.Errorf("slabpool: block: alloc %d bytes: %w", requested, err)
		}
		data = region[:payload]
	}

	return &Block{
		ItemSize:  itemSize,
		AllocSize: allocSize,
		Total:     total,
		Data:      data,
	}, requested, nil
}

// Allocated returns the current high-water mark.
func (b *Block) Allocated() uint32 { return b.allocated.Load() }

// TryBump attempts to claim the next chunk by advancing the high-water
// mark. It returns the claimed chunk index and true on success, or
// (0, false) if the block is full. Only the thread that owns this block
// as its "active" slab for a size class calls TryBump — see
// sizeclass.State — so this needs no CAS loop, but it is still phrased
// as an atomic add/compare so a race detector run over concurrent
// dereferences of other chunks in the same block never trips.
func (b *Block) TryBump() (uint32, bool) {
	for {
		cur := b.allocated.Load()
		if cur >= b.Total {
			return 0, false
		}
		if b.allocated.CompareAndSwap(cur, cur+1) {
			return cur, true
		}
	}
}

// Dereference returns the chunk's backing bytes. O(1), lock-free, safe
// to call concurrently with allocations in this or any other block
// bump-allocation only ever grows Data's *used* prefix, never moves it.
func (b *Block) Dereference(chunk uint32) []byte {
	off := int(chunk) * int(b.AllocSize)
	return b.Data[off : off+int(b.ItemSize) : off+int(b.AllocSize)]
}

// RawChunk returns the chunk's full allocation stride, including the
// alignment padding past ItemSize. The free-list linker writes its
// "next" word at the start of this slice: the full stride holds at
// least sizeof(handle) bytes (AllocSize is a nonzero multiple of the
// handle width), even when ItemSize itself is smaller.
func (b *Block) RawChunk(chunk uint32) []byte {
	off := int(chunk) * int(b.AllocSize)
	return b.Data[off : off+int(b.AllocSize)]
}

// Ephemeral reports whether this is a sentinel, zero-capacity block:
// operations on it are a fatal assertion, not a valid path.
func (b *Block) Ephemeral() bool { return b.Total == 0 }

// ByteSize is the number of bytes originally requested from the backing
// allocator for this block, used to Drop it with the exact count the
// backing allocator's contract requires.
func (b *Block) ByteSize() int {
	return HeaderOverhead + int(b.Total)*int(b.AllocSize)
}
