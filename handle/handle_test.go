package handle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullHandle(t *testing.T) {
	require.False(t, Null.Valid(Narrow))
	require.Equal(t, uint64(0), Null.Slab(Narrow))
}

func TestRoundTripNarrow(t *testing.T) {
	h := New(Narrow, 7, 1234, 1)
	require.True(t, h.Valid(Narrow))
	require.Equal(t, uint64(7), h.Slab(Narrow))
	require.Equal(t, uint64(1234), h.Chunk(Narrow))
	require.Equal(t, uint64(1), h.Tag(Narrow))
}

func TestRoundTripWide(t *testing.T) {
	h := New(Wide, 65535, 65535, 0xDEADBEEF)
	require.Equal(t, uint64(65535), h.Slab(Wide))
	require.Equal(t, uint64(65535), h.Chunk(Wide))
	require.Equal(t, uint64(0xDEADBEEF), h.Tag(Wide))
}

func TestTagPreservedVerbatim(t *testing.T) {
	h := New(Narrow, 3, 9, 0)
	tagged := h.WithTag(Narrow, 1)
	require.Equal(t, uint64(1), tagged.Tag(Narrow))
	require.Equal(t, h.Slab(Narrow), tagged.Slab(Narrow))
	require.Equal(t, h.Chunk(Narrow), tagged.Chunk(Narrow))
}

func TestRawRoundTrip(t *testing.T) {
	h := New(Narrow, 42, 100, 1)
	require.Equal(t, h, FromRaw(h.Raw()))
}

func TestOrderingIgnoresTag(t *testing.T) {
	a := New(Narrow, 1, 5, 0)
	b := New(Narrow, 1, 5, 1)
	require.False(t, Less(Narrow, a, b))
	require.False(t, Less(Narrow, b, a))

	c := New(Narrow, 1, 6, 0)
	require.True(t, Less(Narrow, a, c))
	require.False(t, Less(Narrow, c, a))

	d := New(Narrow, 2, 0, 0)
	require.True(t, Less(Narrow, c, d))
}

func TestSlabZeroPanics(t *testing.T) {
	require.Panics(t, func() {
		New(Narrow, 0, 0, 0)
	})
}

func TestOverflowPanics(t *testing.T) {
	require.Panics(t, func() {
		New(Narrow, 1, 1<<15, 0) // chunk overflows 15 bits
	})
	require.Panics(t, func() {
		New(Narrow, 1<<16, 0, 0) // slab overflows 16 bits
	})
	require.Panics(t, func() {
		New(Narrow, 1, 0, 2) // tag overflows 1 bit
	})
}

func TestLayoutValidate(t *testing.T) {
	require.NotPanics(t, func() { Narrow.Validate() })
	require.NotPanics(t, func() { Wide.Validate() })
	require.Panics(t, func() { Layout{SlabBits: 40, ChunkBits: 30, TagBits: 10}.Validate() })
	require.Panics(t, func() { Layout{SlabBits: 0, ChunkBits: 10, TagBits: 1}.Validate() })
}
