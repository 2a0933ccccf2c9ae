// Package memory is the allocation and quota-accounting substrate of the engine:
// pluggable byte allocators with heap or virtual-memory-mapped backing, and a tree
// of named, independently capped memory pools that concurrent query operators
// allocate through.
package memory

import (
	"unsafe"

	"github.com/quarrydb/quarry/memutils"
)

// Allocator is one concrete strategy for physically obtaining and releasing memory.
// The variant is a deployment-time decision: it is bound once, at pool-construction
// time, and every allocation made through a pool is forwarded to its bound variant
// without per-call dispatch on configuration.
//
// All methods report ordinary allocation failure (resource exhaustion) as a nil
// buffer, never as an error and never by panicking. The two aligned methods
// additionally return an error built on memutils.UnsupportedOperationError when the
// variant's backing has no alignment control; use memutils.IsUnsupported to tell the
// two conditions apart.
//
// Allocator implementations keep no per-call state and individual calls are
// independent, but concurrent allocation through the same pool is only as safe as
// the backing makes it. Callers that need synchronized allocation must serialize
// externally.
type Allocator interface {
	// Alloc returns a buffer of at least size bytes, or nil if allocation fails.
	Alloc(size int64) []byte
	// AllocZeroFilled is equivalent to Alloc(numMembers*sizeEach) followed by zeroing.
	// It never returns a partially zeroed buffer: on failure the result is nil.
	AllocZeroFilled(numMembers, sizeEach int64) []byte
	// AllocAligned returns a buffer whose first byte is aligned to alignment, which
	// must be a power of two.
	AllocAligned(alignment uint16, size int64) ([]byte, error)
	// Realloc grows or shrinks an existing allocation, preserving the first
	// min(size, newSize) bytes. A nil p degenerates to a plain Alloc(newSize). If the
	// new allocation fails the result is nil and p is left untouched; the caller
	// still owns it.
	Realloc(p []byte, size, newSize int64) []byte
	// ReallocAligned is the aligned analog of Realloc. If newSize <= 0 the result is
	// nil and p is untouched. On success the old block is released and callers must
	// not assume p survives failure.
	ReallocAligned(p []byte, alignment uint16, size, newSize int64) ([]byte, error)
	// Free releases a previously allocated buffer. A nil p is a safe no-op. size
	// must equal the size last used to allocate or grow the buffer; the mapped
	// backing is not self-describing about block sizes and requires it.
	Free(p []byte, size int64)
}

// HeapAllocator is the general-purpose Allocator variant backed by the Go heap.
// It is portable, supports aligned allocation directly, and relies on the garbage
// collector for release, so Free is a no-op.
type HeapAllocator struct{}

func NewHeapAllocator() *HeapAllocator {
	return &HeapAllocator{}
}

func (a *HeapAllocator) Alloc(size int64) []byte {
	if size <= 0 {
		return nil
	}
	return make([]byte, size)
}

func (a *HeapAllocator) AllocZeroFilled(numMembers, sizeEach int64) []byte {
	// make already zero-fills.
	return a.Alloc(numMembers * sizeEach)
}

func (a *HeapAllocator) AllocAligned(alignment uint16, size int64) ([]byte, error) {
	if err := memutils.CheckPow2(alignment, "alignment"); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, nil
	}

	// Over-allocate by the alignment and shift the window so the first byte lands on
	// an aligned address.
	buf := make([]byte, size+int64(alignment))
	addr := addressOf(buf)
	shift := int64(memutils.AlignUp(int(addr), uint(alignment))) - int64(addr)
	return buf[shift : size+shift : size+shift], nil
}

func (a *HeapAllocator) Realloc(p []byte, size, newSize int64) []byte {
	if p != nil && newSize == int64(len(p)) {
		return p
	}
	if p != nil && newSize > 0 && newSize <= int64(cap(p)) {
		return p[:newSize:cap(p)]
	}
	newBuf := a.Alloc(newSize)
	if p == nil || newBuf == nil {
		return newBuf
	}
	copy(newBuf, p)
	a.Free(p, size)
	return newBuf
}

func (a *HeapAllocator) ReallocAligned(p []byte, alignment uint16, size, newSize int64) ([]byte, error) {
	if newSize <= 0 {
		return nil, nil
	}
	newBuf, err := a.AllocAligned(alignment, newSize)
	if err != nil || newBuf == nil {
		return nil, err
	}
	copy(newBuf, p)
	a.Free(p, size)
	return newBuf, nil
}

func (a *HeapAllocator) Free(p []byte, size int64) {}

func addressOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}
