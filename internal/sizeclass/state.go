// Package sizeclass holds the per-thread state for a single size class:
// the touse/tofree reuse stacks, the active bump-allocation block, and
// the adaptive block-size counter.
package sizeclass

import (
	"github.com/minio/slabpool/internal/block"
	"github.com/minio/slabpool/internal/freelist"
)

// ToFreeSpillThreshold is the tofree entry count that triggers a spill
// of the whole list to the shared directory.
const ToFreeSpillThreshold = 4096

// State is one thread's view of one size class. It is never shared
// between threads; a Local (see the pool package) owns one State per
// distinct size it has allocated or freed.
type State struct {
	ItemSize  uint32
	AllocSize uint32

	ToUse  *freelist.Stack
	ToFree *freelist.Stack

	ActiveSlab uint32 // 0 == no active block yet
	Active     *block.Block

	BlockSize uint32 // adaptive, grows each time a new block is carved
}

// New creates empty per-thread state for a size class, seeded with
// initialBlockSize as its first block size.
func New(itemSize, allocSize uint32, linker freelist.Linker, initialBlockSize uint32) *State {
	return &State{
		ItemSize:  itemSize,
		AllocSize: allocSize,
		ToUse:     freelist.NewStack(linker),
		ToFree:    freelist.NewStack(linker),
		BlockSize: initialBlockSize,
	}
}

// SetActive installs a freshly created block as the bump-allocation
// target for this size class, and grows BlockSize for the next one,
// capped at ceiling.
func (s *State) SetActive(slab uint32, b *block.Block, ceiling uint32) {
	s.ActiveSlab = slab
	s.Active = b
	grown := s.BlockSize * 4
	if grown > ceiling || grown < s.BlockSize /* overflow */ {
		grown = ceiling
	}
	s.BlockSize = grown
}
