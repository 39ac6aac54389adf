package master

import (
	"github.com/minio/slabpool/handle"
	"github.com/minio/slabpool/internal/freelist"
	"github.com/minio/slabpool/internal/shared"
)

// freelistLinker builds the Linker a size class's touse/tofree stacks
// use to store their "next" word inside each freed chunk's own payload.
func freelistLinker(sh *shared.Shared, layout handle.Layout) freelist.Linker {
	return freelist.Linker{
		Layout: layout,
		Deref: func(h handle.Handle) []byte {
			slab := uint32(h.Slab(layout))
			b := sh.Table.Get(slab)
			return b.RawChunk(uint32(h.Chunk(layout)))
		},
	}
}
