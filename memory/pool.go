package memory

import (
	"fmt"
	"log/slog"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"go.uber.org/atomic"
	"golang.org/x/exp/slices"

	"github.com/quarrydb/quarry/memory/internal/utils"
)

// MemoryPool is a named, capped memory-accounting context. Pools form a tree:
// concurrent query operators carve a process's budget into nested scopes by calling
// AddChild, and every byte allocation made through a pool is forwarded to the
// allocator variant the pool was bound to at construction.
//
// Ownership runs strictly child-to-parent. A pool holds a strong reference to its
// parent, so no pool can disappear while a descendant is alive; the parent keeps
// only a back-reference for traversal, registered by AddChild and removed by the
// child's own Destroy. Teardown is therefore always leaf-to-root, and Destroy
// refuses to run while children remain.
//
// The child set is the only mutable shared state and is guarded by a per-pool
// reader/writer lock. The lock is never held across a call into the allocator or
// into the tracker hierarchy's own accounting.
type MemoryPool struct {
	logger    *slog.Logger
	name      string
	cap       int64
	capped    atomic.Bool
	tracker   UsageTracker
	allocator Allocator
	parent    *MemoryPool

	childrenMutex utils.OptionalRWMutex
	children      []*MemoryPool
	childIndex    *swiss.Map[string, *MemoryPool]

	allocationCount atomic.Int64
	allocationBytes atomic.Int64
	cumulativeBytes atomic.Int64
}

func newMemoryPool(logger *slog.Logger, name string, capBytes int64, parent *MemoryPool, allocator Allocator, useMutex bool) *MemoryPool {
	pool := &MemoryPool{
		logger:     logger,
		name:       name,
		cap:        capBytes,
		parent:     parent,
		allocator:  allocator,
		childIndex: swiss.NewMap[string, *MemoryPool](8),
	}
	pool.childrenMutex.UseMutex = useMutex
	return pool
}

// Name returns the pool's identifier, unique among its siblings.
func (p *MemoryPool) Name() string {
	return p.name
}

// Parent returns the pool's parent, or nil for a root pool.
func (p *MemoryPool) Parent() *MemoryPool {
	return p.parent
}

// Cap returns the byte quota the pool was created with.
func (p *MemoryPool) Cap() int64 {
	return p.cap
}

// UsageTracker returns the tracker attached to this pool, or nil.
func (p *MemoryPool) UsageTracker() UsageTracker {
	return p.tracker
}

// SetUsageTracker attaches a tracker to this pool. Children created afterwards
// derive their own trackers from it.
func (p *MemoryPool) SetUsageTracker(tracker UsageTracker) {
	p.tracker = tracker
}

// CapMemoryAllocation marks the pool's allocations as subject to its quota.
func (p *MemoryPool) CapMemoryAllocation() {
	p.capped.Store(true)
}

// UncapMemoryAllocation lifts the quota enforcement flag.
func (p *MemoryPool) UncapMemoryAllocation() {
	p.capped.Store(false)
}

// IsMemoryCapped reports whether the pool's allocations are subject to its quota.
func (p *MemoryPool) IsMemoryCapped() bool {
	return p.capped.Load()
}

// AddChild creates a pool nested under this one. The child's name must be unique
// among this pool's children; on collision the child set is left untouched. A child
// born while its parent is capped starts capped as well. That inheritance happens
// once, at creation: capping or uncapping the parent later does not touch children
// that already exist. If this pool carries a usage tracker, the child is attached to
// a tracker derived from it.
//
// The returned pool is owned by the caller, who must Destroy it before destroying
// this pool.
func (p *MemoryPool) AddChild(name string, capBytes int64) (*MemoryPool, error) {
	p.logger.Debug("MemoryPool::AddChild")

	p.childrenMutex.Lock()
	defer p.childrenMutex.Unlock()

	if _, collision := p.childIndex.Get(name); collision {
		return nil, cerrors.Newf("pool %q already has a child named %q", p.name, name)
	}

	child := newMemoryPool(p.logger, name, capBytes, p, p.allocator, p.childrenMutex.UseMutex)
	if p.IsMemoryCapped() {
		child.CapMemoryAllocation()
	}
	if p.tracker != nil {
		child.tracker = p.tracker.AddChild()
	}

	p.children = append(p.children, child)
	p.childIndex.Put(name, child)
	return child, nil
}

// DropChild removes the back-reference to child from this pool's child set. It is
// called exactly once, from the child's own Destroy, and panics if the child is not
// found: an unknown child means the tree has been corrupted or the caller bypassed
// the pool API, and there is nothing sensible to recover to.
func (p *MemoryPool) DropChild(child *MemoryPool) {
	p.logger.Debug("MemoryPool::DropChild")

	p.childrenMutex.Lock()
	defer p.childrenMutex.Unlock()

	index := slices.Index(p.children, child)
	if index < 0 {
		panic(fmt.Sprintf("pool %q is not a child of pool %q", child.name, p.name))
	}
	p.children = slices.Delete(p.children, index, index+1)
	p.childIndex.Delete(child.name)
}

// ChildCount returns the number of live children.
func (p *MemoryPool) ChildCount() int {
	p.childrenMutex.RLock()
	defer p.childrenMutex.RUnlock()

	return len(p.children)
}

// VisitChildren calls visitor for each live child in creation order. The visitor
// must not add or remove children of this pool; the read lock is held for the whole
// traversal.
func (p *MemoryPool) VisitChildren(visitor func(child *MemoryPool)) {
	p.childrenMutex.RLock()
	defer p.childrenMutex.RUnlock()

	for _, child := range p.children {
		visitor(child)
	}
}

// Destroy tears the pool down. It fails if children are still alive: tree lifetime
// is strictly leaf-to-root. On success the pool removes itself from its parent's
// child set.
func (p *MemoryPool) Destroy() error {
	p.logger.Debug("MemoryPool::Destroy")

	if liveChildren := p.ChildCount(); liveChildren > 0 {
		return cerrors.Newf("pool %q still has %d live children that must be destroyed first", p.name, liveChildren)
	}

	if p.parent != nil {
		p.parent.DropChild(p)
	}
	return nil
}

// Allocate obtains a buffer of at least size bytes from the pool's bound allocator,
// or nil if allocation fails.
func (p *MemoryPool) Allocate(size int64) []byte {
	buf := p.allocator.Alloc(size)
	if buf != nil {
		p.recordAlloc(int64(len(buf)))
	}
	return buf
}

// AllocateZeroFilled obtains a zeroed buffer of numMembers*sizeEach bytes, or nil.
func (p *MemoryPool) AllocateZeroFilled(numMembers, sizeEach int64) []byte {
	buf := p.allocator.AllocZeroFilled(numMembers, sizeEach)
	if buf != nil {
		p.recordAlloc(int64(len(buf)))
	}
	return buf
}

// AllocateAligned obtains a buffer aligned to alignment bytes. The mapped allocator
// variant reports this as unsupported; see memutils.IsUnsupported.
func (p *MemoryPool) AllocateAligned(alignment uint16, size int64) ([]byte, error) {
	buf, err := p.allocator.AllocAligned(alignment, size)
	if err != nil {
		return nil, err
	}
	if buf != nil {
		p.recordAlloc(int64(len(buf)))
	}
	return buf, nil
}

// Reallocate grows or shrinks a buffer previously obtained from this pool. On
// failure the result is nil and the caller still owns buf.
func (p *MemoryPool) Reallocate(buf []byte, size, newSize int64) []byte {
	newBuf := p.allocator.Realloc(buf, size, newSize)
	if newBuf != nil {
		p.recordRealloc(size, int64(len(newBuf)), buf != nil)
	}
	return newBuf
}

// Free releases a buffer previously obtained from this pool. size must equal the
// size last used to allocate or grow it.
func (p *MemoryPool) Free(buf []byte, size int64) {
	if buf == nil {
		return
	}
	p.allocator.Free(buf, size)
	p.recordFree(size)
}

func (p *MemoryPool) recordAlloc(size int64) {
	p.allocationCount.Inc()
	p.allocationBytes.Add(size)
	p.cumulativeBytes.Add(size)
	if p.tracker != nil {
		p.tracker.Update(size)
	}
}

func (p *MemoryPool) recordRealloc(oldSize, newSize int64, hadBuffer bool) {
	if !hadBuffer {
		p.recordAlloc(newSize)
		return
	}
	p.allocationBytes.Add(newSize - oldSize)
	if newSize > oldSize {
		p.cumulativeBytes.Add(newSize - oldSize)
	}
	if p.tracker != nil {
		p.tracker.Update(newSize - oldSize)
	}
}

func (p *MemoryPool) recordFree(size int64) {
	p.allocationCount.Dec()
	p.allocationBytes.Sub(size)
	if p.tracker != nil {
		p.tracker.Update(-size)
	}
}
