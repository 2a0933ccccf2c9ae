package memory

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics summarizes the allocation activity of a single pool.
type Statistics struct {
	// AllocationCount is the number of live allocations.
	AllocationCount int64
	// AllocationBytes is the number of bytes held by live allocations.
	AllocationBytes int64
	// CumulativeBytes is the total bytes ever allocated, ignoring releases.
	CumulativeBytes int64
}

func (s *Statistics) Clear() {
	s.AllocationCount = 0
	s.AllocationBytes = 0
	s.CumulativeBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.AllocationCount += other.AllocationCount
	s.AllocationBytes += other.AllocationBytes
	s.CumulativeBytes += other.CumulativeBytes
}

// FillStatistics snapshots this pool's counters into stats. The counters are read
// individually without a lock, so under concurrent allocation the snapshot is
// approximate.
func (p *MemoryPool) FillStatistics(stats *Statistics) {
	stats.AllocationCount = p.allocationCount.Load()
	stats.AllocationBytes = p.allocationBytes.Load()
	stats.CumulativeBytes = p.cumulativeBytes.Load()
}

// FillTreeStatistics accumulates the counters of this pool and every descendant
// into stats.
func (p *MemoryPool) FillTreeStatistics(stats *Statistics) {
	var own Statistics
	p.FillStatistics(&own)
	stats.AddStatistics(&own)

	p.VisitChildren(func(child *MemoryPool) {
		child.FillTreeStatistics(stats)
	})
}

// BuildStatsString renders the subtree rooted at pool as a JSON document, one
// object per pool with its counters and children. Intended for diagnostics output
// and logs.
func BuildStatsString(pool *MemoryPool) ([]byte, error) {
	writer := jwriter.NewWriter()

	obj := writer.Object()
	pool.statsJson(obj)
	obj.End()

	if err := writer.Error(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

func (p *MemoryPool) statsJson(json jwriter.ObjectState) {
	var stats Statistics
	p.FillStatistics(&stats)

	json.Name("Name").String(p.name)
	json.Name("Cap").Int(int(p.cap))
	json.Name("Capped").Bool(p.IsMemoryCapped())
	json.Name("AllocationCount").Int(int(stats.AllocationCount))
	json.Name("AllocationBytes").Int(int(stats.AllocationBytes))
	json.Name("CumulativeBytes").Int(int(stats.CumulativeBytes))

	childArray := json.Name("Children").Array()
	p.VisitChildren(func(child *MemoryPool) {
		childObj := childArray.Object()
		child.statsJson(childObj)
		childObj.End()
	})
	childArray.End()
}
