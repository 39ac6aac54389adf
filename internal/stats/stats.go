// Package stats implements the pool's statistics surface: for any
// prefix of a single-threaded schedule, chunks-used equals allocations
// minus frees for each size class. Built on an atomic-counter,
// snapshot-method collector in the same shape as a metrics collector
// that tracks per-operation-type counters, generalised here to
// per-size-class allocate/free counters.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/minio/slabpool/internal/align"
	"github.com/minio/slabpool/internal/block"
)

type classCounters struct {
	allocations atomic.Int64
	frees       atomic.Int64
}

// Collector accumulates per-size-class allocate/free counts. It is safe
// for concurrent use by many threads, each recording its own pool's
// operations.
type Collector struct {
	mu      sync.RWMutex
	classes map[uint32]*classCounters
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{classes: make(map[uint32]*classCounters)}
}

func (c *Collector) classFor(size uint32) *classCounters {
	c.mu.RLock()
	cc, ok := c.classes[size]
	c.mu.RUnlock()
	if ok {
		return cc
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cc, ok = c.classes[size]; ok {
		return cc
	}
	cc = &classCounters{}
	c.classes[size] = cc
	return cc
}

// RecordAllocate increments the allocation counter for size.
func (c *Collector) RecordAllocate(size uint32) {
	c.classFor(size).allocations.Add(1)
}

// RecordFree increments the free counter for size.
func (c *Collector) RecordFree(size uint32) {
	c.classFor(size).frees.Add(1)
}

// ClassSnapshot is one size class's row in the statistics surface.
type ClassSnapshot struct {
	Size         uint32
	ChunksHeld   uint64 // sum of total across all blocks of this size
	ChunksUsed   uint64 // allocations - frees
	BytesHeld    uint64
	BytesUsed    uint64
}

// Snapshot is the full statistics surface: one row per size class that
// has ever been allocated from, ordered by size.
type Snapshot struct {
	Classes []ClassSnapshot
}

// Used returns the chunks-used figure for size, or 0 if size has never
// been touched.
func (s Snapshot) Used(size uint32) uint64 {
	for _, c := range s.Classes {
		if c.Size == size {
			return c.ChunksUsed
		}
	}
	return 0
}

// Collect builds a Snapshot from the recorded counters plus the live
// block table, which supplies ChunksHeld/BytesHeld (the counters alone
// cannot know how many chunks a block carved, only how many were
// allocated and freed).
func (c *Collector) Collect(table *block.Table, handleWidth uint32) Snapshot {
	held := map[uint32]uint64{}
	table.All(func(_ uint32, b *block.Block) {
		held[b.ItemSize] += uint64(b.Total)
	})

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := Snapshot{Classes: make([]ClassSnapshot, 0, len(c.classes))}
	for size, cc := range c.classes {
		allocs := cc.allocations.Load()
		frees := cc.frees.Load()
		used := allocs - frees
		if used < 0 {
			used = 0 // shouldn't happen; defensive against a miscounted caller
		}
		allocSize := uint64(align.Up(size, handleWidth))
		out.Classes = append(out.Classes, ClassSnapshot{
			Size:       size,
			ChunksHeld: held[size],
			ChunksUsed: uint64(used),
			BytesHeld:  held[size] * allocSize,
			BytesUsed:  uint64(used) * allocSize,
		})
	}
	sort.Slice(out.Classes, func(i, j int) bool { return out.Classes[i].Size < out.Classes[j].Size })
	return out
}
