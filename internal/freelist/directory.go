package freelist

import (
	"sync/atomic"

	"github.com/minio/slabpool/handle"
)

// directSlots is the size, in bytes, below which the directory indexes
// size classes directly — most workloads use a handful of small sizes.
// It also bounds each second-level table, and the
// number of possible top-level (size/directSlots) buckets, which
// together cover every size up to the pool's 2^24-1 byte ceiling
// (4096*4096 == 2^24).
const directSlots = 4096

// Node is a whole spilled stack, linked into the shared chain for its
// size class. Each node is the drained contents of one thread's tofree
// stack at the moment it overflowed, or of a touse/tofree stack handed
// back when a thread-local view is closed.
type Node struct {
	Head  handle.Handle
	Count int
	next  atomic.Pointer[Node]
}

type bigBucket = [directSlots]atomic.Pointer[Node]

// Directory is the shared, lock-free freelist directory: a flat array
// for sizes < 4096, plus a lazily installed second-level table for
// sizes >= 4096. Size is split into (size/4096, size%4096) for the
// latter.
type Directory struct {
	small [directSlots]atomic.Pointer[Node]
	big   [directSlots]atomic.Pointer[bigBucket]
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{}
}

func (d *Directory) slot(size int) *atomic.Pointer[Node] {
	if size < directSlots {
		return &d.small[size]
	}
	hi, lo := size/directSlots, size%directSlots
	top := &d.big[hi]
	bucket := top.Load()
	if bucket == nil {
		fresh := &bigBucket{}
		if top.CompareAndSwap(nil, fresh) {
			bucket = fresh
		} else {
			// lost the race: the loser's speculative bucket is simply
			// discarded, left for the GC.
			bucket = top.Load()
		}
	}
	return &bucket[lo]
}

// Prepend CAS-pushes a new node (head, count) onto the chain for size.
func (d *Directory) Prepend(size int, head handle.Handle, count int) {
	n := &Node{Head: head, Count: count}
	slot := d.slot(size)
	for {
		old := slot.Load()
		n.next.Store(old)
		if slot.CompareAndSwap(old, n) {
			return
		}
	}
}

// PopNode CAS-detaches and returns the head node for size, or nil if the
// chain is empty.
func (d *Directory) PopNode(size int) *Node {
	slot := d.slot(size)
	for {
		old := slot.Load()
		if old == nil {
			return nil
		}
		next := old.next.Load()
		if slot.CompareAndSwap(old, next) {
			return old
		}
	}
}

// All walks every node across every size class, for teardown.
func (d *Directory) All(fn func(size int, n *Node)) {
	for size := 0; size < directSlots; size++ {
		for n := d.small[size].Load(); n != nil; n = n.next.Load() {
			fn(size, n)
		}
	}
	for hi := range d.big {
		bucket := d.big[hi].Load()
		if bucket == nil {
			continue
		}
		for lo := range bucket {
			for n := bucket[lo].Load(); n != nil; n = n.next.Load() {
				fn(hi*directSlots+lo, n)
			}
		}
	}
}
