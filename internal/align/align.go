// Package align implements the single rounding rule used throughout the
// pool: pad a byte count up to the next multiple of an alignment, so a
// chunk is always wide enough to carry a handle-sized freelist link.
package align

// Up rounds size up to the nearest multiple of m. Up(0, m) is 0 — a
// zero-size request never needs padding.
func Up(size, m uint32) uint32 {
	if size == 0 {
		return 0
	}
	return (size + m - 1) / m * m
}
