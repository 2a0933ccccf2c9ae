package memutils

import "math/bits"

// PreferredSize rounds a requested byte count up to a size class. Buffers that grow
// repeatedly churn through far fewer reallocations when every request lands on one of
// these canonical sizes. Sizes below 8 round up to 8, exact powers of two are returned
// unchanged, and everything else rounds to either 1.5x or 2x the largest power of two
// at or below the request. The intermediate 1.5x class halves the worst-case waste
// compared to always jumping to the next power of two.
//
// The arithmetic is pure integer math so class boundaries are identical on every
// platform.
func PreferredSize(size int64) int64 {
	if size < 8 {
		return 8
	}
	lower := int64(1) << (bits.Len64(uint64(size)) - 1)
	if lower == size {
		return size
	}
	if size <= lower+lower/2 {
		return lower + lower/2
	}
	return lower * 2
}
