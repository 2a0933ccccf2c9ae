package memory

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"go.uber.org/atomic"

	"github.com/quarrydb/quarry/mapped"
)

// MaxMemory is the quota used for a manager's root pool when no explicit quota is
// configured.
const MaxMemory int64 = math.MaxInt64

const rootPoolName = "__root__"

// CreateFlags indicate specific manager behaviors to activate or deactivate
type CreateFlags int32

const (
	// ManagerCreateExternallySynchronized ensures that pools created by this manager will not be
	// synchronized internally. The consumer must guarantee that pool trees are created, traversed
	// and destroyed from only one goroutine at a time or are synchronized by some other mechanism,
	// but performance may improve because the per-pool child-set lock is not used.
	ManagerCreateExternallySynchronized CreateFlags = 1 << iota
)

// CreateOptions contains optional settings when creating a memory manager
type CreateOptions struct {
	// Flags indicates specific manager behaviors to activate or deactivate
	Flags CreateFlags

	// MemoryQuota is the byte quota recorded on the manager's root pool. Zero or
	// negative means MaxMemory.
	MemoryQuota int64

	// UseMappedAllocator selects the virtual-memory-mapped allocator variant instead
	// of the heap variant. The choice is bound at construction and every pool handed
	// out by this manager forwards to it for the manager's whole lifetime.
	UseMappedAllocator bool

	// RegionManager backs the mapped allocator variant. It is ignored unless
	// UseMappedAllocator is set, and defaults to the platform manager from the
	// quarry mapped package.
	RegionManager RegionManager

	// RootTracker is an optional usage tracker attached to the root pool. Pools
	// created through GetChild derive child trackers from it.
	RootTracker UsageTracker
}

// MemoryManager owns the root pool for one allocator variant and hands out new
// top-level pools. A process normally goes through the default manager (see
// GetProcessDefaultMemoryManager) rather than constructing its own.
type MemoryManager struct {
	logger      *slog.Logger
	allocator   Allocator
	memoryQuota int64
	root        *MemoryPool
	nextPoolId  atomic.Int64
}

// NewMemoryManager creates a manager bound to the allocator variant selected by
// options. A nil logger falls back to slog.Default.
func NewMemoryManager(logger *slog.Logger, options CreateOptions) *MemoryManager {
	if logger == nil {
		logger = slog.Default()
	}

	var allocator Allocator
	if options.UseMappedAllocator {
		regions := options.RegionManager
		if regions == nil {
			regions = mapped.NewManager()
		}
		allocator = NewMappedAllocator(regions)
	} else {
		allocator = NewHeapAllocator()
	}

	quota := options.MemoryQuota
	if quota <= 0 {
		quota = MaxMemory
	}

	manager := &MemoryManager{
		logger:      logger,
		allocator:   allocator,
		memoryQuota: quota,
	}
	useMutex := options.Flags&ManagerCreateExternallySynchronized == 0
	manager.root = newMemoryPool(logger, rootPoolName, quota, nil, allocator, useMutex)
	if options.RootTracker != nil {
		manager.root.SetUsageTracker(options.RootTracker)
	}
	return manager
}

// GetChild creates and returns a new top-level pool under the manager's root with
// the given byte quota.
func (m *MemoryManager) GetChild(capBytes int64) (*MemoryPool, error) {
	m.logger.Debug("MemoryManager::GetChild")

	id := m.nextPoolId.Inc()
	return m.root.AddChild(fmt.Sprintf("pool_%d", id), capBytes)
}

// Root returns the manager's root pool. It lives for the manager's whole lifetime
// and is never destroyed before process exit.
func (m *MemoryManager) Root() *MemoryPool {
	return m.root
}

// MemoryQuota returns the quota the manager was configured with.
func (m *MemoryManager) MemoryQuota() int64 {
	return m.memoryQuota
}

// DefaultManagerConfig selects how the process-wide default manager is built. The
// configuration is read exactly once, when the default manager is first requested;
// changing it afterwards has no effect until the manager is reset.
type DefaultManagerConfig struct {
	// UseMappedAllocator selects the mapped allocator variant for the default
	// manager.
	UseMappedAllocator bool

	// MemoryQuota is the byte quota for the default manager's root pool. Zero or
	// negative means MaxMemory.
	MemoryQuota int64

	// Logger receives the substrate's debug logging. Nil falls back to
	// slog.Default.
	Logger *slog.Logger
}

var (
	defaultManagerMutex  sync.Mutex
	defaultManagerConfig DefaultManagerConfig
	defaultManager       *MemoryManager
)

// ConfigureDefaultManager sets the configuration the process default manager will
// be built with. It must be called before the first GetProcessDefaultMemoryManager
// or GetDefaultMemoryPool call; once the default manager exists the configuration
// is frozen and this returns an error.
func ConfigureDefaultManager(config DefaultManagerConfig) error {
	defaultManagerMutex.Lock()
	defer defaultManagerMutex.Unlock()

	if defaultManager != nil {
		return DefaultManagerFrozenError
	}
	defaultManagerConfig = config
	return nil
}

// GetProcessDefaultMemoryManager returns the process-wide manager for the
// configured allocator variant, constructing it on first use. The manager lives for
// the process lifetime.
func GetProcessDefaultMemoryManager() *MemoryManager {
	defaultManagerMutex.Lock()
	defer defaultManagerMutex.Unlock()

	if defaultManager == nil {
		config := defaultManagerConfig
		defaultManager = NewMemoryManager(config.Logger, CreateOptions{
			MemoryQuota:        config.MemoryQuota,
			UseMappedAllocator: config.UseMappedAllocator,
		})
	}
	return defaultManager
}

// GetDefaultMemoryPool obtains a new pool with the given byte quota from the
// process-wide default manager. This is the sanctioned entry point for
// query-operator code that needs a top-level accounting scope.
func GetDefaultMemoryPool(capBytes int64) (*MemoryPool, error) {
	return GetProcessDefaultMemoryManager().GetChild(capBytes)
}

// ResetDefaultManagerForTesting discards the process default manager and its
// configuration so tests can exercise both allocator variants in one process. Not
// for production use: pools handed out by the discarded manager remain bound to it.
func ResetDefaultManagerForTesting() {
	defaultManagerMutex.Lock()
	defer defaultManagerMutex.Unlock()

	defaultManager = nil
	defaultManagerConfig = DefaultManagerConfig{}
}
