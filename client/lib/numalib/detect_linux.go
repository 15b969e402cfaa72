//go:build linux

package numalib

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cpusetiso/agent/client/lib/idset"
	"github.com/cpusetiso/agent/client/lib/numalib/hw"
)

// pathReaderFn reads a sysfs file's contents, swappable in tests.
type pathReaderFn func(path string) ([]byte, error)

// Sysfs discovers NUMA node membership, inter-node distances, and core
// layout from /sys/devices/system.
type Sysfs struct{}

// ScanSystem merges every sysfs-derived field into top.
func (s *Sysfs) ScanSystem(top *Topology) {
	s.discoverOnline(top, os.ReadFile)
	s.discoverCosts(top, os.ReadFile)
	s.discoverCores(top, os.ReadFile)
}

func (s *Sysfs) discoverOnline(top *Topology, read pathReaderFn) {
	data, _ := read("/sys/devices/system/node/online")
	top.NodeIDs = idset.Parse[hw.NodeID](string(data))
}

// discoverCosts builds the NUMA node distance matrix from each node's
// "distance" file: a space-separated list of one distance per system
// NUMA node, indexed by that node's OS index (not by position in the
// online set).
func (s *Sysfs) discoverCosts(top *Topology, read pathReaderFn) {
	ids := top.NodeIDs.Slice()
	n := len(ids)
	matrix := make(SLIT, n)
	for i, nodeID := range ids {
		row := make([]hw.Cost, n)
		data, _ := read(fmt.Sprintf("/sys/devices/system/node/node%d/distance", nodeID))
		fields := strings.Fields(string(data))
		for j, otherID := range ids {
			idx := int(otherID)
			if idx >= 0 && idx < len(fields) {
				if v, err := strconv.ParseFloat(fields[idx], 64); err == nil {
					row[j] = v
				}
			}
		}
		matrix[i] = row
	}
	top.Distances = matrix
}

// discoverCores builds one Core per online logical CPU: the same index
// cpuset.cpus expects. SMT sibling count is recorded as PUs and used
// only as a weight divisor; siblings are not collapsed into a single
// entry because every sibling is independently selectable by the
// cgroup cpuset controller.
func (s *Sysfs) discoverCores(top *Topology, read pathReaderFn) {
	online, _ := read("/sys/devices/system/cpu/online")
	cpus := idset.Parse[hw.CoreID](string(online))
	if cpus.IsEmpty() {
		return
	}

	nodeOfCPU := make(map[hw.CoreID]hw.NodeID)
	for _, nodeID := range top.NodeIDs.Slice() {
		data, _ := read(fmt.Sprintf("/sys/devices/system/node/node%d/cpulist", nodeID))
		for _, c := range idset.Parse[hw.CoreID](string(data)).Slice() {
			nodeOfCPU[c] = nodeID
		}
	}

	cores := make([]Core, 0, cpus.Size())
	for _, c := range cpus.Slice() {
		socket := readUint(read, fmt.Sprintf("/sys/devices/system/cpu/cpu%d/topology/physical_package_id", c))
		siblingsRaw, _ := read(fmt.Sprintf("/sys/devices/system/cpu/cpu%d/topology/thread_siblings_list", c))
		siblings := idset.Parse[hw.CoreID](string(siblingsRaw))
		pus := siblings.Size()
		if pus == 0 {
			pus = 1
		}

		baseHz := readUint(read, fmt.Sprintf("/sys/devices/system/cpu/cpu%d/cpufreq/base_frequency", c))
		maxHz := readUint(read, fmt.Sprintf("/sys/devices/system/cpu/cpu%d/cpufreq/cpuinfo_max_freq", c))

		cores = append(cores, Core{
			ID:        c,
			SocketID:  hw.SocketID(socket),
			NodeID:    nodeOfCPU[c],
			PUs:       pus,
			Grade:     hw.Performance,
			BaseSpeed: hw.MHz(baseHz / 1000),
			MaxSpeed:  hw.MHz(maxHz / 1000),
		})
	}
	top.Cores = cores
}

func readUint(read pathReaderFn, path string) uint64 {
	data, err := read(path)
	if err != nil {
		return 0
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
