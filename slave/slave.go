// Package slave implements the auxiliary (shadow) allocator: a
// secondary pool keyed by master handles that lazily materialises a
// parallel block of per-chunk "shadow" storage the first time a slave
// value is written for a given master slab.
package slave

import (
	"fmt"

	"github.com/minio/slabpool/handle"
	"github.com/minio/slabpool/internal/align"
	"github.com/minio/slabpool/internal/backing"
	"github.com/minio/slabpool/internal/block"
	"github.com/minio/slabpool/internal/shared"
)

// Pool is a slave allocator attached to one master pool's shared state.
// It reuses the master's handle space (same slab indices, same
// layout) but carries its own block table and its own per-chunk payload
// size per slab.
type Pool struct {
	master  *shared.Shared
	backing backing.Allocator
	table   *block.Table
}

// New constructs a slave pool over master's shared state, retaining a
// reference to it so the master cannot be torn down while this slave
// pool is still readable. The slave uses its own backing allocator
// — defaulting to the same one the master uses — since it may outlive
// or be torn down independently of any one master Local.
func New(master *shared.Shared, alloc backing.Allocator) *Pool {
	master.Retain()
	if alloc == nil {
		alloc = master.Opts.Backing
	}
	return &Pool{
		master:  master,
		backing: alloc,
		table:   block.NewTable(master.Opts.Layout.SlabBits),
	}
}

// Close releases this slave pool's hold on the master's shared state.
// It does not otherwise tear down the slave's own blocks — callers that
// need that should track byte sizes themselves; a slave pool dropped
// mid-process simply leaks its shadow blocks to the GC (heap backing)
// or must be paired with an explicit Drop for mmap backing.
func (p *Pool) Close() {
	p.master.Release()
}

func (p *Pool) layout() handle.Layout { return p.master.Opts.Layout }

// Materialise ensures a slave block exists for h's slab, sized to
// mirror the master block's chunk count at payloadSize bytes per slot,
// then optionally zeroes h's slave slot. Idempotent: once a slave block
// exists for a slab, later calls with a different payloadSize do not
// resize it — only the first call's size sticks.
func (p *Pool) Materialise(h handle.Handle, payloadSize uint32, clear bool) error {
	slab := uint32(h.Slab(p.layout()))
	masterBlock := p.master.Table.Get(slab)
	if masterBlock == nil || masterBlock.Ephemeral() {
		panic(fmt.Sprintf("slabpool: slave: materialise: master slab %d has no live block", slab))
	}

	allocSize := payloadSize
	if payloadSize != 1 {
		allocSize = align.Up(payloadSize, p.master.HandleWidth())
	}
	total := masterBlock.Total

	b, err := p.table.EnsurePublished(slab, func() (*block.Block, error) {
		fresh, _, ferr := block.New(p.backing, payloadSize, allocSize, total)
		return fresh, ferr
	}, func(lost *block.Block) {
		p.backing.Drop(lost.Data, lost.ByteSize())
	})
	if err != nil {
		return fmt.Errorf("slabpool: slave: materialise: %w", err)
	}

	if clear {
		chunk := uint32(h.Chunk(p.layout()))
		clearBytes(b.Dereference(chunk))
	}
	return nil
}

// Dereference returns the slave payload bytes for h. h must already
// have had Materialise called for its slab, or this panics — there is
// no implicit materialisation on read, since the payload size is a
// decision deliberately left to the first writer.
func (p *Pool) Dereference(h handle.Handle) []byte {
	slab := uint32(h.Slab(p.layout()))
	b := p.table.Get(slab)
	if b == nil {
		panic(fmt.Sprintf("slabpool: slave: dereference: slab %d has not been materialised", slab))
	}
	return b.Dereference(uint32(h.Chunk(p.layout())))
}

// Size returns the slave payload size for h's slab, i.e. the payloadSize
// the first Materialise call on that slab was given.
func (p *Pool) Size(h handle.Handle) uint32 {
	slab := uint32(h.Slab(p.layout()))
	b := p.table.Get(slab)
	if b == nil {
		panic(fmt.Sprintf("slabpool: slave: size: slab %d has not been materialised", slab))
	}
	return b.ItemSize
}

func clearBytes(buf []byte) {
	clear(buf)
}
