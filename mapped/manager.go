// Package mapped provides the default virtual-memory region manager consumed by the
// mapped allocator variant in the memory package. On unix platforms every region is
// its own anonymous private mapping, so freed regions are returned to the operating
// system immediately rather than lingering on the process heap. Platforms without
// mmap fall back to heap-backed regions with the same contract.
package mapped

// NewManager returns a region manager backed by the platform's memory mapping
// facility. The manager keeps no per-region bookkeeping: callers must release
// regions with the same size they were allocated with.
func NewManager() *Manager {
	return &Manager{}
}
