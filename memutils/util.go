package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~int64 | ~uint | ~uint16
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

// IsUnsupported reports whether err marks an operation the allocator variant cannot perform,
// as opposed to an ordinary allocation failure.
func IsUnsupported(err error) bool {
	return cerrors.Is(err, UnsupportedOperationError)
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}
