package shared_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minio/slabpool/handle"
	"github.com/minio/slabpool/internal/shared"
)

func TestDefaultsAreUsable(t *testing.T) {
	opts := shared.Defaults()
	require.Equal(t, handle.Narrow, opts.Layout)
	require.NotNil(t, opts.Backing)
	require.NotNil(t, opts.Inspector)
}

func TestReleaseTearsDownOnLastReference(t *testing.T) {
	sh := shared.New(shared.Defaults())
	sh.Retain()

	slab, _ := sh.ReserveSlabs()
	require.NotZero(t, slab)

	sh.Release() // refcount 2 -> 1, no teardown yet
	require.NotPanics(t, func() { sh.ReserveSlabs() })

	sh.Release() // refcount 1 -> 0, teardown runs
}

func TestReserveSlabsAdvancesByBatch(t *testing.T) {
	sh := shared.New(shared.Defaults())
	defer sh.Release()

	first, batch := sh.ReserveSlabs()
	require.Equal(t, uint32(16), batch)

	second, _ := sh.ReserveSlabs()
	require.Equal(t, first+batch, second)
}

func TestHandleWidthMatchesLayout(t *testing.T) {
	opts := shared.Defaults()
	opts.Layout = handle.Wide
	sh := shared.New(opts)
	defer sh.Release()
	require.Equal(t, uint32(8), sh.HandleWidth())
}
