package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackerUpdateAndPeak(t *testing.T) {
	tracker := NewUsageTracker()

	tracker.Update(100)
	tracker.Update(200)
	tracker.Update(-150)

	require.Equal(t, int64(150), tracker.CurrentBytes())
	require.Equal(t, int64(300), tracker.PeakBytes())
	require.Equal(t, int64(300), tracker.CumulativeBytes())
}

func TestTrackerChildPropagation(t *testing.T) {
	root := NewUsageTracker()
	child := root.AddChild().(*BasicUsageTracker)
	grandchild := child.AddChild().(*BasicUsageTracker)

	grandchild.Update(64)
	child.Update(32)

	require.Equal(t, int64(64), grandchild.CurrentBytes())
	require.Equal(t, int64(96), child.CurrentBytes())
	require.Equal(t, int64(96), root.CurrentBytes())

	grandchild.Update(-64)
	require.Equal(t, int64(32), root.CurrentBytes())
	require.Equal(t, int64(96), root.PeakBytes())
}

func TestTrackerConcurrentUpdates(t *testing.T) {
	const workers = 16
	const perWorker = 1000

	root := NewUsageTracker()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			child := root.AddChild()
			for j := 0; j < perWorker; j++ {
				child.Update(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(workers*perWorker), root.CurrentBytes())
	require.Equal(t, int64(workers*perWorker), root.CumulativeBytes())
}

func TestPoolDerivesChildTracker(t *testing.T) {
	rootTracker := NewUsageTracker()
	manager := newTestManager(t, CreateOptions{RootTracker: rootTracker})

	pool, err := manager.GetChild(1 << 20)
	require.NoError(t, err)
	require.NotNil(t, pool.UsageTracker())
	require.NotSame(t, rootTracker, pool.UsageTracker())

	child, err := pool.AddChild("agg", 1<<10)
	require.NoError(t, err)
	require.NotNil(t, child.UsageTracker())

	buf := child.Allocate(512)
	require.Len(t, buf, 512)
	require.Equal(t, int64(512), rootTracker.CurrentBytes())

	child.Free(buf, 512)
	require.Zero(t, rootTracker.CurrentBytes())
	require.Equal(t, int64(512), rootTracker.PeakBytes())
}

func TestPoolWithoutTrackerHasNone(t *testing.T) {
	manager := newTestManager(t, CreateOptions{})

	pool, err := manager.GetChild(1 << 20)
	require.NoError(t, err)
	require.Nil(t, pool.UsageTracker())
}
