// Package numalib discovers the host's socket/core/NUMA/GPU topology and
// the inter-core latency matrix it induces, once at construction, and
// exposes O(1)/O(|cores|) queries over the cached result.
package numalib

import (
	"sort"

	"github.com/cpusetiso/agent/client/lib/idset"
	"github.com/cpusetiso/agent/client/lib/numalib/hw"
)

// SLIT is a System Locality Information Table: a symmetric matrix of
// NUMA node-to-node distances, indexed by position in the owning
// Topology's NodeIDs set. Self-distance (same node) is the table's
// diagonal, typically a small positive constant such as 10.
type SLIT [][]hw.Cost

// Core describes one physical CPU core.
type Core struct {
	SocketID hw.SocketID
	NodeID   hw.NodeID
	ID       hw.CoreID

	// PUs is the number of hardware threads (processing units) that
	// share this physical core.
	PUs int

	Grade hw.CoreGrade

	BaseSpeed  hw.MHz
	MaxSpeed   hw.MHz
	GuessSpeed hw.MHz
}

// GPU describes one PCIe accelerator device and the cores the topology
// oracle considers physically closest to it.
type GPU struct {
	Address       string
	VendorID      string
	NeighborCores []hw.CoreID
}

// Topology is the cached result of one hardware scan.
type Topology struct {
	NodeIDs   *idset.Set[hw.NodeID]
	Distances SLIT
	Cores     []Core
	GPUs      []GPU

	// nodeDistIndex maps a NodeID to its row/column position in
	// Distances.
	nodeDistIndex map[hw.NodeID]int

	// coreIndex maps a core's OS index to its position in Cores.
	coreIndex map[hw.CoreID]int
}

// NewTopology builds a Topology from already-discovered values, wiring
// up the lookup indexes the query methods rely on.
func NewTopology(nodeIDs *idset.Set[hw.NodeID], distances SLIT, cores []Core) *Topology {
	t := &Topology{
		NodeIDs:   nodeIDs,
		Distances: distances,
		Cores:     cores,
	}
	t.reindex()
	return t
}

func (t *Topology) reindex() {
	t.nodeDistIndex = make(map[hw.NodeID]int)
	if t.NodeIDs != nil {
		for i, id := range t.NodeIDs.Slice() {
			t.nodeDistIndex[id] = i
		}
	}
	t.coreIndex = make(map[hw.CoreID]int, len(t.Cores))
	for i, c := range t.Cores {
		t.coreIndex[c.ID] = i
	}
}

// NumCores returns the number of discovered cores.
func (t *Topology) NumCores() int { return len(t.Cores) }

// NumSockets returns the number of distinct sockets among the
// discovered cores.
func (t *Topology) NumSockets() int {
	seen := make(map[hw.SocketID]struct{})
	for _, c := range t.Cores {
		seen[c.SocketID] = struct{}{}
	}
	return len(seen)
}

// NumPUs returns the total number of hardware threads across all cores.
func (t *Topology) NumPUs() int {
	total := 0
	for _, c := range t.Cores {
		total += c.PUs
	}
	return total
}

// UsableCompute is the total hardware-thread count available for
// scheduling.
func (t *Topology) UsableCompute() int { return t.NumPUs() }

// TotalCompute is an alias for UsableCompute kept for parity with
// hosts that distinguish reserved vs. total compute; this module
// reserves nothing at the topology layer.
func (t *Topology) TotalCompute() int { return t.NumPUs() }

// CoresPerSocket returns, for each socket (in ascending socket-id
// order), the number of cores it owns.
func (t *Topology) CoresPerSocket() []int {
	counts := make(map[hw.SocketID]int)
	for _, c := range t.Cores {
		counts[c.SocketID]++
	}
	ids := make([]hw.SocketID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		out = append(out, counts[id])
	}
	return out
}

// PUsPerCore returns the PU count for each core, in Cores order.
func (t *Topology) PUsPerCore() []int {
	out := make([]int, len(t.Cores))
	for i, c := range t.Cores {
		out[i] = c.PUs
	}
	return out
}

const epsilon = 1e-10

// Latency returns the inter-core latency between cores i and j (OS
// indexes). latency(i,i) == 0; a zero off-diagonal distance (unknown
// topology oracle data) is reported as epsilon to keep downstream
// division safe.
func (t *Topology) Latency(i, j hw.CoreID) hw.Cost {
	if i == j {
		return 0
	}
	ni, okI := t.numaOf(i)
	nj, okJ := t.numaOf(j)
	if !okI || !okJ {
		return epsilon
	}
	d := t.nodeDistance(ni, nj)
	if d <= 0 {
		return epsilon
	}
	return d
}

func (t *Topology) numaOf(c hw.CoreID) (hw.NodeID, bool) {
	idx, ok := t.coreIndex[c]
	if !ok {
		return 0, false
	}
	return t.Cores[idx].NodeID, true
}

func (t *Topology) nodeDistance(a, b hw.NodeID) hw.Cost {
	ia, okA := t.nodeDistIndex[a]
	ib, okB := t.nodeDistIndex[b]
	if !okA || !okB || ia >= len(t.Distances) || ib >= len(t.Distances[ia]) {
		return epsilon
	}
	return t.Distances[ia][ib]
}

// NumaOfCore returns the NUMA node owning core c.
func (t *Topology) NumaOfCore(c hw.CoreID) hw.NodeID {
	n, _ := t.numaOf(c)
	return n
}

// GPUNeighborCpus returns the union, over all discovered GPUs, of cores
// the topology oracle considers physically closest.
func (t *Topology) GPUNeighborCpus() []hw.CoreID {
	seen := make(map[hw.CoreID]struct{})
	var out []hw.CoreID
	for _, g := range t.GPUs {
		for _, c := range g.NeighborCores {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// CoreIDs returns the OS indexes of every discovered core, in Cores
// order.
func (t *Topology) CoreIDs() []hw.CoreID {
	out := make([]hw.CoreID, len(t.Cores))
	for i, c := range t.Cores {
		out[i] = c.ID
	}
	return out
}

// Scanner discovers one slice of topology data (cores, NUMA layout,
// clock speeds, ...) and merges it into the in-progress Topology.
type Scanner interface {
	ScanSystem(*Topology)
}

// Scan runs each scanner over a fresh Topology in order and returns the
// merged result.
func Scan(scanners []Scanner) *Topology {
	top := &Topology{}
	for _, s := range scanners {
		s.ScanSystem(top)
	}
	top.reindex()
	return top
}

// Fallback replaces an empty (zero-core) topology with a single-core,
// single-socket, single-node synthetic topology, so the rest of the
// scheduler always has at least one item to place onto.
func Fallback(top *Topology) *Topology {
	if top != nil && len(top.Cores) > 0 {
		return top
	}
	return syntheticTopology()
}

// NoImpl is identical to Fallback; it is the substitution used on
// platforms with no topology scanner implementation at all (as opposed
// to a scanner that ran and found nothing).
func NoImpl(top *Topology) *Topology {
	if top != nil && len(top.Cores) > 0 {
		return top
	}
	return syntheticTopology()
}

func syntheticTopology() *Topology {
	nodeIDs := idset.From([]hw.NodeID{0})
	cores := []Core{{SocketID: 0, NodeID: 0, ID: 0, PUs: 1, Grade: hw.Performance}}
	return NewTopology(nodeIDs, SLIT{{0}}, cores)
}
