//go:build unix

package mapped

import (
	"golang.org/x/sys/unix"
)

// Manager hands out anonymous private mappings.
type Manager struct{}

// AllocateBytes maps a fresh region of at least size bytes and returns it, or nil
// if the mapping cannot be established.
func (m *Manager) AllocateBytes(size int64) []byte {
	if size <= 0 {
		return nil
	}
	region, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil
	}
	return region[:size:size]
}

// FreeBytes unmaps a region previously returned by AllocateBytes. size must equal
// the size the region was allocated with.
func (m *Manager) FreeBytes(p []byte, size int64) {
	if p == nil {
		return
	}
	_ = unix.Munmap(p[:size:size])
}
