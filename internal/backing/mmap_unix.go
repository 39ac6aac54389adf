//go:build unix

package backing

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mmap is a page-aligned Allocator backed by anonymous, private mmap
// regions. It is the preferred Allocator for the pool's long-lived
// blocks: pages are returned by the kernel zero-filled, and Drop really
// does release them back to the OS. The pool itself never unmaps a page
// while still handing out chunks from it — only a dropped block at
// teardown reaches Drop.
type Mmap struct{}

func (Mmap) Alloc(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	region, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("slabpool: backing: mmap %d bytes: %w", n, err)
	}
	return region, nil
}

func (Mmap) Drop(region []byte, n int) {
	if len(region) == 0 {
		return
	}
	// region may have been re-sliced shorter than the mapping Alloc
	// actually returned (Block stores only the payload, trimming the
	// header-reservation tail); re-slice back up to n, the byte count
	// originally requested from Alloc, before unmapping, or the kernel
	// only unmaps region's own shorter length and leaks the tail.
	_ = unix.Munmap(region[:n])
}
