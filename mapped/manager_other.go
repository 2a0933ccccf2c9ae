//go:build !unix

package mapped

// Manager falls back to heap-backed regions on platforms without mmap. The garbage
// collector handles release, so FreeBytes only validates its arguments.
type Manager struct{}

// AllocateBytes returns a fresh region of at least size bytes, or nil if size is
// not positive.
func (m *Manager) AllocateBytes(size int64) []byte {
	if size <= 0 {
		return nil
	}
	return make([]byte, size)
}

// FreeBytes releases a region previously returned by AllocateBytes.
func (m *Manager) FreeBytes(p []byte, size int64) {}
