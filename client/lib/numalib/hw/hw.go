// Package hw defines the small scalar types shared by the hardware
// topology model: OS-assigned identifiers and physical units.
package hw

// NodeID identifies a NUMA node by its OS-assigned index.
type NodeID uint8

// SocketID identifies a physical CPU package by its OS-assigned index.
type SocketID uint8

// CoreID identifies a CPU core by its OS-assigned index, the same index
// used in cpuset.cpus.
type CoreID uint16

// PUID identifies a hardware thread (processing unit) by its OS-assigned
// index.
type PUID uint16

// MHz is a clock speed in megahertz.
type MHz uint64

// Cost is an inter-core latency value, in the topology oracle's native
// units (ns-scale float on real hardware, arbitrary test units
// otherwise).
type Cost = float64

// CoreGrade classifies a core for heterogeneous (big.LITTLE / P+E)
// topologies. Homogeneous hosts report every core as Performance.
type CoreGrade uint8

const (
	Performance CoreGrade = iota
	Efficiency
)

func (g CoreGrade) String() string {
	if g == Efficiency {
		return "efficiency"
	}
	return "performance"
}
