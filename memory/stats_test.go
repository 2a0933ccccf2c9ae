package memory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFillTreeStatistics(t *testing.T) {
	manager := newTestManager(t, CreateOptions{})
	parent, err := manager.GetChild(1 << 20)
	require.NoError(t, err)
	child, err := parent.AddChild("agg", 1<<10)
	require.NoError(t, err)

	parentBuf := parent.Allocate(100)
	childBuf := child.Allocate(50)

	var stats Statistics
	parent.FillTreeStatistics(&stats)
	require.Equal(t, int64(2), stats.AllocationCount)
	require.Equal(t, int64(150), stats.AllocationBytes)
	require.Equal(t, int64(150), stats.CumulativeBytes)

	parent.Free(parentBuf, 100)
	child.Free(childBuf, 50)

	stats.Clear()
	parent.FillTreeStatistics(&stats)
	require.Zero(t, stats.AllocationCount)
	require.Zero(t, stats.AllocationBytes)
	require.Equal(t, int64(150), stats.CumulativeBytes)
}

func TestStatisticsAdd(t *testing.T) {
	a := Statistics{AllocationCount: 1, AllocationBytes: 10, CumulativeBytes: 20}
	b := Statistics{AllocationCount: 2, AllocationBytes: 30, CumulativeBytes: 40}

	a.AddStatistics(&b)
	require.Equal(t, int64(3), a.AllocationCount)
	require.Equal(t, int64(40), a.AllocationBytes)
	require.Equal(t, int64(60), a.CumulativeBytes)
}

func TestBuildStatsString(t *testing.T) {
	manager := newTestManager(t, CreateOptions{})
	parent, err := manager.GetChild(1 << 20)
	require.NoError(t, err)
	child, err := parent.AddChild("sort", 1<<10)
	require.NoError(t, err)
	child.CapMemoryAllocation()

	buf := child.Allocate(128)
	require.NotNil(t, buf)

	doc, err := BuildStatsString(parent)
	require.NoError(t, err)

	var decoded struct {
		Name            string
		Cap             int64
		Capped          bool
		AllocationCount int64
		Children        []struct {
			Name            string
			Capped          bool
			AllocationBytes int64
		}
	}
	require.NoError(t, json.Unmarshal(doc, &decoded))
	require.Equal(t, parent.Name(), decoded.Name)
	require.Equal(t, int64(1<<20), decoded.Cap)
	require.False(t, decoded.Capped)
	require.Len(t, decoded.Children, 1)
	require.Equal(t, "sort", decoded.Children[0].Name)
	require.True(t, decoded.Children[0].Capped)
	require.Equal(t, int64(128), decoded.Children[0].AllocationBytes)
}
