package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// UnsupportedOperationError is the error returned when an allocator variant is asked to perform
// an operation its backing cannot express, such as aligned allocation on mapped memory. It is
// deliberately distinct from ordinary allocation failure, which is reported as a nil buffer:
// a caller may choose a different allocator variant on this error, but must treat a nil buffer
// as a runtime out-of-memory condition.
var UnsupportedOperationError error = errors.New("operation is not supported by this allocator variant")
