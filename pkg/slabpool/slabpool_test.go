package slabpool_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minio/slabpool/pkg/slabpool"
)

func TestAllocateFreeRoundTrip(t *testing.T) {
	p := slabpool.NewDefault()
	defer p.Close()

	h, err := p.Allocate(64)
	require.NoError(t, err)
	require.True(t, h != slabpool.Null)

	buf := p.Dereference(h)
	require.Len(t, buf, 64)
	for _, b := range buf {
		require.Zero(t, b)
	}
	buf[0] = 0xAB

	require.Equal(t, uint32(64), p.Size(h))
	p.Free(h)
}

func TestSequentialChurnEndsAtZeroUsed(t *testing.T) {
	p := slabpool.NewDefault()
	defer p.Close()

	const iterations = 32768
	for i := 0; i < iterations; i++ {
		h, err := p.Allocate(32)
		require.NoError(t, err)
		p.Free(h)
	}

	require.Zero(t, p.Stats().Used(32))
}

func TestFreedChunkIsZeroedOnReuse(t *testing.T) {
	p := slabpool.NewDefault()
	defer p.Close()

	h1, err := p.Allocate(16)
	require.NoError(t, err)
	buf1 := p.Dereference(h1)
	for i := range buf1 {
		buf1[i] = 0xFF
	}
	p.Free(h1)

	h2, err := p.Allocate(16)
	require.NoError(t, err)
	buf2 := p.Dereference(h2)
	for _, b := range buf2 {
		require.Zero(t, b)
	}
}

func TestSizeClassIsolation(t *testing.T) {
	p := slabpool.NewDefault()
	defer p.Close()

	h8, err := p.Allocate(8)
	require.NoError(t, err)
	h16, err := p.Allocate(16)
	require.NoError(t, err)

	require.NotEqual(t, h8, h16)
	require.Equal(t, uint32(8), p.Size(h8))
	require.Equal(t, uint32(16), p.Size(h16))

	buf8 := p.Dereference(h8)
	buf16 := p.Dereference(h16)
	buf8[0] = 1
	require.Zero(t, buf16[0])
}

func TestSlaveMaterialiseRoundTrip(t *testing.T) {
	p := slabpool.NewDefault()
	defer p.Close()
	slave := p.NewSlavePool(nil)
	defer slave.Close()

	handles := make([]slabpool.Handle, 0, 100)
	for i := 0; i < 100; i++ {
		h, err := p.Allocate(8)
		require.NoError(t, err)
		handles = append(handles, h)
	}

	for i, h := range handles {
		require.NoError(t, slave.Materialise(h, 4, true))
		shadow := slave.Dereference(h)
		require.Len(t, shadow, 4)
		shadow[0] = byte(i)
	}

	for i, h := range handles {
		shadow := slave.Dereference(h)
		require.Equal(t, byte(i), shadow[0])
	}
}

func TestParallelChurnAcrossClones(t *testing.T) {
	p := slabpool.NewDefault()
	defer p.Close()

	const workers = 3
	const iterations = 4096

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		local := p.Clone()
		go func(local slabpool.Pool) {
			defer wg.Done()
			defer local.Close()
			for i := 0; i < iterations; i++ {
				h, err := local.Allocate(24)
				require.NoError(t, err)
				buf := local.Dereference(h)
				buf[0] = byte(i)
				local.Free(h)
			}
		}(local)
	}
	wg.Wait()

	require.Zero(t, p.Stats().Used(24))
}

func TestSpillAndStealAcrossThreads(t *testing.T) {
	p := slabpool.NewDefault()
	defer p.Close()

	producer := p.Clone()
	handles := make([]slabpool.Handle, 0, 8192)
	for i := 0; i < 8192; i++ {
		h, err := producer.Allocate(16)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		producer.Free(h)
	}
	producer.Close()

	consumer := p.Clone()
	defer consumer.Close()
	for i := 0; i < 4096; i++ {
		h, err := consumer.Allocate(16)
		require.NoError(t, err)
		consumer.Free(h)
	}
}

func TestLayoutReflectsOptions(t *testing.T) {
	opts := slabpool.DefaultOptions()
	opts.Layout = slabpool.Wide
	p := slabpool.New(opts)
	defer p.Close()
	require.Equal(t, slabpool.Wide, p.Layout())
}
