//go:build linux

package numalib

import (
	"testing"

	"github.com/shoenig/test/must"

	"github.com/cpusetiso/agent/client/lib/idset"
	"github.com/cpusetiso/agent/client/lib/numalib/hw"
)

func fixtureSysData(path string) ([]byte, error) {
	return map[string][]byte{
		"/sys/devices/system/node/online":                            []byte("0-1"),
		"/sys/devices/system/cpu/online":                             []byte("0-3"),
		"/sys/devices/system/node/node0/distance":                    []byte("10 20"),
		"/sys/devices/system/node/node1/distance":                    []byte("20 10"),
		"/sys/devices/system/node/node0/cpulist":                     []byte("0-1"),
		"/sys/devices/system/node/node1/cpulist":                     []byte("2-3"),
		"/sys/devices/system/cpu/cpu0/topology/physical_package_id":  []byte("0"),
		"/sys/devices/system/cpu/cpu0/topology/thread_siblings_list": []byte("0,1"),
		"/sys/devices/system/cpu/cpu1/topology/physical_package_id":  []byte("0"),
		"/sys/devices/system/cpu/cpu1/topology/thread_siblings_list": []byte("0,1"),
		"/sys/devices/system/cpu/cpu2/topology/physical_package_id":  []byte("1"),
		"/sys/devices/system/cpu/cpu2/topology/thread_siblings_list": []byte("2,3"),
		"/sys/devices/system/cpu/cpu3/topology/physical_package_id":  []byte("1"),
		"/sys/devices/system/cpu/cpu3/topology/thread_siblings_list": []byte("2,3"),
	}[path], nil
}

func TestSysfs_discoverOnline(t *testing.T) {
	top := &Topology{}
	sy := &Sysfs{}
	sy.discoverOnline(top, fixtureSysData)
	must.Eq(t, idset.From([]hw.NodeID{0, 1}), top.NodeIDs)
}

func TestSysfs_discoverCosts(t *testing.T) {
	top := &Topology{NodeIDs: idset.From([]hw.NodeID{0, 1})}
	sy := &Sysfs{}
	sy.discoverCosts(top, fixtureSysData)
	must.Eq(t, SLIT{{10, 20}, {20, 10}}, top.Distances)
}

func TestSysfs_discoverCores(t *testing.T) {
	top := &Topology{NodeIDs: idset.From([]hw.NodeID{0, 1})}
	sy := &Sysfs{}
	sy.discoverCores(top, fixtureSysData)

	must.Len(t, 4, top.Cores)
	for _, c := range top.Cores {
		must.Eq(t, 2, c.PUs)
		if c.ID < 2 {
			must.Eq(t, hw.NodeID(0), c.NodeID)
			must.Eq(t, hw.SocketID(0), c.SocketID)
		} else {
			must.Eq(t, hw.NodeID(1), c.NodeID)
			must.Eq(t, hw.SocketID(1), c.SocketID)
		}
	}
}

func TestTopology_NumaOfCore(t *testing.T) {
	top := &Topology{NodeIDs: idset.From([]hw.NodeID{0, 1})}
	sy := &Sysfs{}
	sy.discoverCosts(top, fixtureSysData)
	sy.discoverCores(top, fixtureSysData)
	top.reindex()

	for _, c := range top.Cores {
		node := top.NumaOfCore(c.ID)
		found := false
		for _, cc := range top.Cores {
			if cc.NodeID == node && cc.ID == c.ID {
				found = true
			}
		}
		must.True(t, found)
	}
}

func TestTopology_Latency(t *testing.T) {
	top := &Topology{NodeIDs: idset.From([]hw.NodeID{0, 1})}
	sy := &Sysfs{}
	sy.discoverCosts(top, fixtureSysData)
	sy.discoverCores(top, fixtureSysData)
	top.reindex()

	must.Eq(t, hw.Cost(0), top.Latency(0, 0))
	must.Eq(t, hw.Cost(10), top.Latency(0, 1))
	must.Eq(t, hw.Cost(20), top.Latency(0, 2))
}
