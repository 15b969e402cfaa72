package numalib

import (
	"github.com/jaypipes/ghw"

	"github.com/cpusetiso/agent/client/lib/numalib/hw"
)

// nvidiaVendorID is the PCI vendor id GPU discovery filters devices by.
const nvidiaVendorID = "10de"

// GPUOracle resolves the set of cores physically closest to a given
// GPU. On real hardware this is provided by the orchestrator's
// CUDA-to-cpuset lookup, a black-box collaborator this module treats
// as an injected dependency rather than reimplementing.
type GPUOracle interface {
	NeighborCores(pciAddress string) []hw.CoreID
}

// PCIGPUs scans the PCI bus for NVIDIA devices (vendor 0x10de) and
// merges them into the Topology, resolving each one's neighbor cores
// through oracle.
type PCIGPUs struct {
	Oracle GPUOracle
}

// ScanSystem enumerates PCI devices and appends any NVIDIA GPUs found
// to top.GPUs. A PCI enumeration failure (e.g. running inside a
// container without /sys/bus/pci) is not fatal: the topology simply
// reports no GPUs, and CudaPolicy will then yield no items for any
// GPU-anchored request.
func (g *PCIGPUs) ScanSystem(top *Topology) {
	info, err := ghw.PCI()
	if err != nil {
		return
	}

	for _, dev := range info.ListDevices() {
		if dev.Vendor == nil || dev.Vendor.ID != nvidiaVendorID {
			continue
		}

		var neighbors []hw.CoreID
		if g.Oracle != nil {
			neighbors = g.Oracle.NeighborCores(dev.Address)
		}

		top.GPUs = append(top.GPUs, GPU{
			Address:       dev.Address,
			VendorID:      dev.Vendor.ID,
			NeighborCores: neighbors,
		})
	}
}
