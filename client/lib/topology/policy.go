package topology

import (
	"github.com/cpusetiso/agent/scheduler/submodular"
)

// CpuPolicy is the submodular.IndexSetPolicy over every discovered core:
// every core is a candidate, cost/weight come straight from the
// current live load, and similarity is inter-core NUMA latency.
type CpuPolicy struct {
	info   *ResourceInfo
	items  []int
	cost   []float64
	weight []float64
}

var _ submodular.IndexSetPolicy = (*CpuPolicy)(nil)

// NewCpuPolicy builds a CpuPolicy from the current load of groups.
func NewCpuPolicy(info *ResourceInfo, groups []string) (*CpuPolicy, error) {
	cost, weight, err := info.Vectors(groups)
	if err != nil {
		return nil, err
	}
	return &CpuPolicy{
		info:   info,
		items:  info.CoreItems(),
		cost:   cost,
		weight: weight,
	}, nil
}

func (p *CpuPolicy) Items() []int               { return p.items }
func (p *CpuPolicy) Similarity(i, j int) float64 { return p.info.Similarity(i, j) }
func (p *CpuPolicy) CostVector() []float64       { return p.cost }
func (p *CpuPolicy) WeightVector() []float64     { return p.weight }

// CudaPolicy restricts Items() to the cores neighboring a GPU device
// (per HardwareTopology's PCI-derived neighbor list) while keeping a
// full-domain weight vector with every non-neighbor core's weight
// forced to zero, so the greedy loop never gains by picking one.
type CudaPolicy struct {
	CpuPolicy
	items  []int
	weight []float64
}

var _ submodular.IndexSetPolicy = (*CudaPolicy)(nil)

// NewCudaPolicy builds a CudaPolicy over groups, restricted to cores
// neighboring any discovered GPU.
func NewCudaPolicy(info *ResourceInfo, groups []string) (*CudaPolicy, error) {
	base, err := NewCpuPolicy(info, groups)
	if err != nil {
		return nil, err
	}

	neighbors := info.Topo.GPUNeighborCpus()
	isNeighbor := make(map[int]bool, len(neighbors))
	items := make([]int, 0, len(neighbors))
	for _, n := range neighbors {
		id := int(n)
		if !isNeighbor[id] {
			items = append(items, id)
		}
		isNeighbor[id] = true
	}

	weight := make([]float64, len(base.weight))
	for idx, w := range base.weight {
		if isNeighbor[idx] {
			weight[idx] = w
		}
	}

	return &CudaPolicy{CpuPolicy: *base, items: items, weight: weight}, nil
}

func (p *CudaPolicy) Items() []int           { return p.items }
func (p *CudaPolicy) WeightVector() []float64 { return p.weight }
