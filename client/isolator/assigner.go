package isolator

import (
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/cpusetiso/agent/client/lib/cgutil"
	"github.com/cpusetiso/agent/client/lib/numalib"
	"github.com/cpusetiso/agent/client/lib/numalib/hw"
	"github.com/cpusetiso/agent/client/lib/topology"
	"github.com/cpusetiso/agent/scheduler/submodular"
)

// assigner is IsolatorEngine's delegate for the actual core/memory-node
// selection and materialization work, split out from the lifecycle
// bookkeeping the engine itself owns.
type assigner struct {
	driver *cgutil.Driver
	topo   *numalib.Topology
	info   *topology.ResourceInfo
	logger hclog.Logger
}

func newAssigner(driver *cgutil.Driver, topo *numalib.Topology, info *topology.ResourceInfo, logger hclog.Logger) *assigner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &assigner{driver: driver, topo: topo, info: info, logger: logger.Named("assigner")}
}

// selectCores runs the submodular selector under the CUDA policy when
// gpuCount > 0, the plain CPU policy otherwise, with budget cpuCount.
func (a *assigner) selectCores(groups []string, cpuCount, gpuCount int) ([]int, error) {
	var policy submodular.IndexSetPolicy
	var err error
	if gpuCount > 0 {
		policy, err = topology.NewCudaPolicy(a.info, groups)
	} else {
		policy, err = topology.NewCpuPolicy(a.info, groups)
	}
	if err != nil {
		return nil, err
	}

	selector := submodular.NewSelector(policy)
	selected := selector.Select(float64(cpuCount))

	if len(selected) == 0 && cpuCount > 0 {
		return nil, ErrExhausted
	}
	return selected, nil
}

// materialize translates selected core indices to their owning NUMA
// nodes and writes both lists into the named cpuset group.
func (a *assigner) materialize(name string, cores []int) error {
	nodeSeen := make(map[int]struct{})
	var nodes []int
	for _, c := range cores {
		n := int(a.topo.NumaOfCore(hw.CoreID(c)))
		if _, ok := nodeSeen[n]; !ok {
			nodeSeen[n] = struct{}{}
			nodes = append(nodes, n)
		}
	}
	sort.Ints(nodes)

	coresCopy := append([]int(nil), cores...)
	sort.Ints(coresCopy)

	if err := a.driver.WriteCoreList(name, coresCopy); err != nil {
		return err
	}
	return a.driver.WriteMemList(name, nodes)
}
