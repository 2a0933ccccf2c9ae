package memory

import (
	"go.uber.org/atomic"
)

// UsageTracker performs fine-grained budget accounting for a pool. Trackers form
// their own hierarchy alongside the pool tree: when a pool with a tracker creates a
// child pool, it derives a child tracker through AddChild, establishing a budget
// inheritance chain. The accounting and enforcement semantics beyond this interface
// belong to the tracker implementation.
type UsageTracker interface {
	// AddChild derives a tracker whose usage rolls up into this one.
	AddChild() UsageTracker
	// Update records delta bytes of allocation (negative for release).
	Update(delta int64)
}

// BasicUsageTracker is the built-in UsageTracker. It keeps lock-free current, peak
// and cumulative byte counters and propagates every update to its parent, so a
// tracker anywhere in the chain always reflects the usage of its whole subtree.
type BasicUsageTracker struct {
	parent *BasicUsageTracker

	currentBytes    atomic.Int64
	peakBytes       atomic.Int64
	cumulativeBytes atomic.Int64
}

func NewUsageTracker() *BasicUsageTracker {
	return &BasicUsageTracker{}
}

func (t *BasicUsageTracker) AddChild() UsageTracker {
	return &BasicUsageTracker{parent: t}
}

func (t *BasicUsageTracker) Update(delta int64) {
	current := t.currentBytes.Add(delta)
	if delta > 0 {
		t.cumulativeBytes.Add(delta)
		t.maybeRaisePeak(current)
	}
	if t.parent != nil {
		t.parent.Update(delta)
	}
}

func (t *BasicUsageTracker) maybeRaisePeak(current int64) {
	for {
		peak := t.peakBytes.Load()
		if current <= peak || t.peakBytes.CompareAndSwap(peak, current) {
			return
		}
	}
}

// CurrentBytes returns the bytes currently held by this tracker's subtree.
func (t *BasicUsageTracker) CurrentBytes() int64 {
	return t.currentBytes.Load()
}

// PeakBytes returns the high-water mark of CurrentBytes.
func (t *BasicUsageTracker) PeakBytes() int64 {
	return t.peakBytes.Load()
}

// CumulativeBytes returns the total bytes ever allocated through this tracker's
// subtree, ignoring releases.
func (t *BasicUsageTracker) CumulativeBytes() int64 {
	return t.cumulativeBytes.Load()
}
