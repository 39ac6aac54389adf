package freelist

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minio/slabpool/handle"
)

// memLinker backs a Linker with a plain byte arena, for testing the
// stack/directory logic in isolation from the block/pool machinery.
func memLinker(l handle.Layout, n int, stride int) (Linker, [][]byte) {
	arena := make([][]byte, n)
	for i := range arena {
		arena[i] = make([]byte, stride)
	}
	linker := Linker{
		Layout: l,
		Deref: func(h handle.Handle) []byte {
			return arena[h.Chunk(l)]
		},
	}
	return linker, arena
}

func TestStackPushPopLIFO(t *testing.T) {
	linker, _ := memLinker(handle.Narrow, 8, 8)
	s := NewStack(linker)

	var pushed []handle.Handle
	for i := uint64(0); i < 5; i++ {
		h := handle.New(handle.Narrow, 1, i, 0)
		s.Push(h)
		pushed = append(pushed, h)
	}
	require.Equal(t, 5, s.Len())

	for i := len(pushed) - 1; i >= 0; i-- {
		got, ok := s.Pop()
		require.True(t, ok)
		require.Equal(t, pushed[i], got)
	}
	require.True(t, s.Empty())
	_, ok := s.Pop()
	require.False(t, ok)
}

func TestStackAbsorbFrom(t *testing.T) {
	linker, _ := memLinker(handle.Narrow, 4, 8)
	touse := NewStack(linker)
	tofree := NewStack(linker)

	h0 := handle.New(handle.Narrow, 1, 0, 0)
	h1 := handle.New(handle.Narrow, 1, 1, 0)
	tofree.Push(h0)
	tofree.Push(h1)

	touse.AbsorbFrom(tofree)
	require.True(t, tofree.Empty())
	require.Equal(t, 2, touse.Len())

	got, ok := touse.Pop()
	require.True(t, ok)
	require.Equal(t, h1, got)
}

func TestDirectoryPrependPopSmall(t *testing.T) {
	d := NewDirectory()
	d.Prepend(32, handle.New(handle.Narrow, 1, 0, 0), 10)
	d.Prepend(32, handle.New(handle.Narrow, 2, 0, 0), 5)

	n := d.PopNode(32)
	require.NotNil(t, n)
	require.Equal(t, 5, n.Count)

	n2 := d.PopNode(32)
	require.NotNil(t, n2)
	require.Equal(t, 10, n2.Count)

	require.Nil(t, d.PopNode(32))
}

func TestDirectoryTwoLevelLargeSize(t *testing.T) {
	d := NewDirectory()
	const size = 5000 // >= 4096, exercises the lazily-installed second level
	d.Prepend(size, handle.New(handle.Narrow, 3, 0, 0), 1)

	n := d.PopNode(size)
	require.NotNil(t, n)
	require.Equal(t, 1, n.Count)
	require.Nil(t, d.PopNode(size))

	// a different size sharing the same top-level bucket (hi) must be
	// unaffected.
	const sibling = 5001
	require.Nil(t, d.PopNode(sibling))
}

func TestDirectoryConcurrentInstallOfSecondLevel(t *testing.T) {
	d := NewDirectory()
	const size = 8192
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.Prepend(size, handle.New(handle.Narrow, uint64(i+1), 0, 0), 1)
		}(i)
	}
	wg.Wait()

	count := 0
	for d.PopNode(size) != nil {
		count++
	}
	require.Equal(t, 32, count)
}

func TestDirectoryAll(t *testing.T) {
	d := NewDirectory()
	d.Prepend(16, handle.New(handle.Narrow, 1, 0, 0), 1)
	d.Prepend(16, handle.New(handle.Narrow, 2, 0, 0), 1)
	d.Prepend(5000, handle.New(handle.Narrow, 3, 0, 0), 1)

	seen := map[int]int{}
	d.All(func(size int, n *Node) {
		seen[size]++
	})
	require.Equal(t, 2, seen[16])
	require.Equal(t, 1, seen[5000])
}
