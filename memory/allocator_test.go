package memory

import (
	"testing"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry/memutils"
)

func TestHeapAlloc(t *testing.T) {
	allocator := NewHeapAllocator()

	buf := allocator.Alloc(128)
	require.NotNil(t, buf)
	require.Len(t, buf, 128)

	require.Nil(t, allocator.Alloc(0))
	require.Nil(t, allocator.Alloc(-5))
}

func TestHeapAllocZeroFilled(t *testing.T) {
	allocator := NewHeapAllocator()

	buf := allocator.AllocZeroFilled(16, 8)
	require.NotNil(t, buf)
	require.Len(t, buf, 128)
	for _, b := range buf {
		require.Zero(t, b)
	}
}

func TestHeapAllocAligned(t *testing.T) {
	allocator := NewHeapAllocator()

	for _, alignment := range []uint16{8, 64, 512} {
		buf, err := allocator.AllocAligned(alignment, 100)
		require.NoError(t, err)
		require.Len(t, buf, 100)
		require.Zero(t, addressOf(buf)%uintptr(alignment))
	}
}

func TestHeapAllocAlignedRejectsNonPowerOfTwo(t *testing.T) {
	allocator := NewHeapAllocator()

	buf, err := allocator.AllocAligned(48, 100)
	require.Nil(t, buf)
	require.Error(t, err)
	require.True(t, cerrors.Is(err, memutils.PowerOfTwoError))
	require.False(t, memutils.IsUnsupported(err))
}

func TestHeapRealloc(t *testing.T) {
	allocator := NewHeapAllocator()

	buf := allocator.Alloc(4)
	copy(buf, "abcd")

	same := allocator.Realloc(buf, 4, 4)
	require.Equal(t, &buf[0], &same[0])

	grown := allocator.Realloc(buf, 4, 8)
	require.Len(t, grown, 8)
	require.Equal(t, "abcd", string(grown[:4]))

	shrunk := allocator.Realloc(grown, 8, 2)
	require.Len(t, shrunk, 2)
	require.Equal(t, "ab", string(shrunk))
}

func TestHeapReallocNilIsAlloc(t *testing.T) {
	allocator := NewHeapAllocator()

	buf := allocator.Realloc(nil, 0, 32)
	require.NotNil(t, buf)
	require.Len(t, buf, 32)
}

func TestHeapReallocAligned(t *testing.T) {
	allocator := NewHeapAllocator()

	buf, err := allocator.AllocAligned(64, 4)
	require.NoError(t, err)
	copy(buf, "abcd")

	grown, err := allocator.ReallocAligned(buf, 64, 4, 16)
	require.NoError(t, err)
	require.Len(t, grown, 16)
	require.Zero(t, addressOf(grown)%64)
	require.Equal(t, "abcd", string(grown[:4]))
}

func TestHeapReallocAlignedNonPositiveSize(t *testing.T) {
	allocator := NewHeapAllocator()

	buf, err := allocator.AllocAligned(64, 4)
	require.NoError(t, err)
	copy(buf, "abcd")

	result, err := allocator.ReallocAligned(buf, 64, 4, 0)
	require.NoError(t, err)
	require.Nil(t, result)
	require.Equal(t, "abcd", string(buf))
}

func TestHeapFreeIsNoop(t *testing.T) {
	allocator := NewHeapAllocator()

	allocator.Free(nil, 0)
	allocator.Free(allocator.Alloc(16), 16)
}
