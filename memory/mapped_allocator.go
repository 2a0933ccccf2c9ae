package memory

import (
	cerrors "github.com/cockroachdb/errors"

	"github.com/quarrydb/quarry/memutils"
)

// RegionManager is the boundary to the virtual-memory mapping layer that a
// MappedAllocator delegates to. The quarry mapped package provides the default
// implementation; embedders with their own page management plug in here.
//
// FreeBytes must be handed the same size value that was used for the corresponding
// AllocateBytes: the mapping layer keeps no per-block bookkeeping of its own.
type RegionManager interface {
	// AllocateBytes returns a mapped region of at least size bytes, or nil if the
	// mapping cannot be established.
	AllocateBytes(size int64) []byte
	// FreeBytes releases a region previously returned by AllocateBytes.
	FreeBytes(p []byte, size int64)
}

// MappedAllocator is the Allocator variant backed by virtual-memory mappings. Going
// through page mappings rather than the heap opens the door to page-level tricks
// later (huge pages, NUMA placement, unmapping cold regions) without changing any
// pool or caller code.
//
// The mapping layer offers no alignment control, so AllocAligned and ReallocAligned
// return memutils.UnsupportedOperationError, and no native resize, so Realloc is
// allocate-copy-free.
type MappedAllocator struct {
	regions RegionManager
}

func NewMappedAllocator(regions RegionManager) *MappedAllocator {
	return &MappedAllocator{regions: regions}
}

func (a *MappedAllocator) Alloc(size int64) []byte {
	return a.regions.AllocateBytes(size)
}

func (a *MappedAllocator) AllocZeroFilled(numMembers, sizeEach int64) []byte {
	buf := a.Alloc(numMembers * sizeEach)
	if buf != nil {
		for i := range buf {
			buf[i] = 0
		}
	}
	return buf
}

func (a *MappedAllocator) AllocAligned(alignment uint16, size int64) ([]byte, error) {
	return nil, cerrors.Wrap(memutils.UnsupportedOperationError, "AllocAligned on the mapped allocator")
}

func (a *MappedAllocator) Realloc(p []byte, size, newSize int64) []byte {
	newBuf := a.Alloc(newSize)
	if p == nil || newBuf == nil {
		// On failure the original block is not freed; the caller still owns it.
		return newBuf
	}
	copy(newBuf, p)
	a.Free(p, size)
	return newBuf
}

func (a *MappedAllocator) ReallocAligned(p []byte, alignment uint16, size, newSize int64) ([]byte, error) {
	return nil, cerrors.Wrap(memutils.UnsupportedOperationError, "ReallocAligned on the mapped allocator")
}

func (a *MappedAllocator) Free(p []byte, size int64) {
	if p == nil {
		return
	}
	a.regions.FreeBytes(p, size)
}
