// Package freelist implements the reclaimed-chunk stacks: a
// thread-local LIFO stack that reuses a freed chunk's own first bytes
// for linkage, plus a lock-free global directory of such stacks indexed
// by size, two-level for sizes >= 4096. The free objects are never kept
// in a side list; each chunk stores the next pointer of its own stack
// in bytes the chunk itself owns while it sits on a freelist.
package freelist

import (
	"encoding/binary"

	"github.com/minio/slabpool/handle"
)

// Linker writes and reads the "next" pointer stored in a freed chunk's
// own payload. Deref must return the chunk's full allocation stride
// (not just the itemsize-trimmed view a caller would see), since the
// link lives in bytes the pool itself owns between frees.
type Linker struct {
	Layout handle.Layout
	Deref  func(handle.Handle) []byte
}

// Width is sizeof(handle) for this layout, rounded up to a whole byte
// count.
func (l Linker) Width() int {
	return int((l.Layout.Bits() + 7) / 8)
}

// WriteNext stores next as h's link word.
func (l Linker) WriteNext(h, next handle.Handle) {
	buf := l.Deref(h)
	putUint(buf, l.Width(), next.Raw())
}

// ReadNext retrieves the link word stored at h.
func (l Linker) ReadNext(h handle.Handle) handle.Handle {
	buf := l.Deref(h)
	return handle.FromRaw(getUint(buf, l.Width()))
}

func putUint(buf []byte, width int, v uint64) {
	switch width {
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	default:
		binary.LittleEndian.PutUint64(buf, v)
	}
}

func getUint(buf []byte, width int) uint64 {
	switch width {
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	default:
		return binary.LittleEndian.Uint64(buf)
	}
}
