// Package topology composes HardwareTopology with live cpuset load data
// into the cost/weight/similarity vectors the submodular scheduler
// needs, and exposes the CPU and CUDA selection policies built on top
// of them.
package topology

import (
	"github.com/hashicorp/go-hclog"

	"github.com/cpusetiso/agent/client/lib/cgutil"
	"github.com/cpusetiso/agent/client/lib/numalib"
	"github.com/cpusetiso/agent/client/lib/numalib/hw"
)

// ResourceInfo is a thin composition layer over an active HardwareTopology
// and CgroupCpusetDriver.
type ResourceInfo struct {
	Topo   *numalib.Topology
	Driver *cgutil.Driver
	logger hclog.Logger
}

// NewResourceInfo builds a ResourceInfo over topo and driver.
func NewResourceInfo(topo *numalib.Topology, driver *cgutil.Driver, logger hclog.Logger) *ResourceInfo {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ResourceInfo{Topo: topo, Driver: driver, logger: logger.Named("topology")}
}

// Vectors returns the cost and weight arrays, both sized and indexed by
// core OS index, derived from the current per-core task load across the
// given cpuset groups.
//
// costVector[c] = (tasks on c) / (total tasks across all cores); all
// zero if the total is zero. weightVector[c] = (tasks on c) / (PUs on
// c).
func (r *ResourceInfo) Vectors(groups []string) (cost []float64, weight []float64, err error) {
	load, err := r.Driver.PerGroupCoreLoad(groups)
	if err != nil {
		return nil, nil, err
	}

	maxID := 0
	for _, c := range r.Topo.Cores {
		if int(c.ID) > maxID {
			maxID = int(c.ID)
		}
	}

	cost = make([]float64, maxID+1)
	weight = make([]float64, maxID+1)

	total := 0
	for _, n := range load {
		total += n
	}

	for _, c := range r.Topo.Cores {
		idx := int(c.ID)
		n := load[idx]
		if total > 0 {
			cost[idx] = float64(n) / float64(total)
		}
		pus := c.PUs
		if pus == 0 {
			pus = 1
		}
		weight[idx] = float64(n) / float64(pus)
	}
	return cost, weight, nil
}

// Similarity returns the inter-core latency between cores i and j; not
// a true similarity metric (smaller is better).
func (r *ResourceInfo) Similarity(i, j int) float64 {
	return r.Topo.Latency(hw.CoreID(i), hw.CoreID(j))
}

// CoreItems returns every discovered core's OS index.
func (r *ResourceInfo) CoreItems() []int {
	ids := r.Topo.CoreIDs()
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
