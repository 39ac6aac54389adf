// Package handle implements the pool's address-independent object
// identity: a bit-packed (slab, chunk, tag) triple plus the field-width
// descriptor ("Layout") used to read and write it.
package handle

import "fmt"

// Layout describes how the three handle fields are packed into a single
// unsigned integer. Bit widths are a runtime value rather than a
// compile-time constant so that a 32-bit and a 64-bit universe can share
// the same Handle type instead of relying on native bit-field layout.
type Layout struct {
	SlabBits  uint
	ChunkBits uint
	TagBits   uint
}

// Narrow is the default 32-bit layout: S=16, C=15, T=1.
var Narrow = Layout{SlabBits: 16, ChunkBits: 15, TagBits: 1}

// Wide is the 64-bit layout for larger universes: S=16, C=16, T=32.
var Wide = Layout{SlabBits: 16, ChunkBits: 16, TagBits: 32}

// Bits returns the total width required to store this layout.
func (l Layout) Bits() uint {
	return l.SlabBits + l.ChunkBits + l.TagBits
}

// Validate panics if the layout cannot be packed into 64 bits, or if any
// field is zero-width (a zero-width slab field could never express
// "null", and a zero-width chunk field could never address a chunk).
func (l Layout) Validate() {
	if l.Bits() > 64 {
		panic(fmt.Sprintf("slabpool: handle: layout %+v exceeds 64 bits", l))
	}
	if l.SlabBits == 0 || l.ChunkBits == 0 {
		panic(fmt.Sprintf("slabpool: handle: layout %+v has a zero-width slab or chunk field", l))
	}
}

func (l Layout) maxSlab() uint64   { return (uint64(1) << l.SlabBits) - 1 }
func (l Layout) maxChunk() uint64  { return (uint64(1) << l.ChunkBits) - 1 }
func (l Layout) maxTag() uint64    { return (uint64(1) << l.TagBits) - 1 }
func (l Layout) chunkShift() uint  { return l.TagBits }
func (l Layout) slabShift() uint   { return l.TagBits + l.ChunkBits }
