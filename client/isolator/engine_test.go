package isolator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shoenig/test/must"
	"github.com/stretchr/testify/require"

	"github.com/cpusetiso/agent/client/lib/cgutil"
	"github.com/cpusetiso/agent/client/lib/idset"
	"github.com/cpusetiso/agent/client/lib/numalib"
	"github.com/cpusetiso/agent/client/lib/numalib/hw"
	"github.com/cpusetiso/agent/client/lib/topology"
	"github.com/cpusetiso/agent/helper/testlog"
)

func fourCoreTopo() *numalib.Topology {
	nodeIDs := idset.From([]hw.NodeID{0, 1})
	distances := numalib.SLIT{{10, 20}, {20, 10}}
	cores := []numalib.Core{
		{SocketID: 0, NodeID: 0, ID: 0, PUs: 1, Grade: hw.Performance},
		{SocketID: 0, NodeID: 0, ID: 1, PUs: 1, Grade: hw.Performance},
		{SocketID: 1, NodeID: 1, ID: 2, PUs: 1, Grade: hw.Performance},
		{SocketID: 1, NodeID: 1, ID: 3, PUs: 1, Grade: hw.Performance},
	}
	return numalib.NewTopology(nodeIDs, distances, cores)
}

func testEngine(t *testing.T) *Engine {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "cpuset.cpus"), []byte("0-3"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cpuset.mems"), []byte("0-1"), 0o644))

	driver := cgutil.NewDriver(root, testlog.HCLogger(t))
	topo := fourCoreTopo()
	info := topology.NewResourceInfo(topo, driver, testlog.HCLogger(t))

	e := NewEngine(driver, topo, info, nil, testlog.HCLogger(t))
	t.Cleanup(e.Close)
	return e
}

func TestEngine_UpdateIdempotent(t *testing.T) {
	e := testEngine(t)

	must.NoError(t, e.Update("c1", Resources{CPU: 2}))
	must.NoError(t, e.Update("c1", Resources{CPU: 99}))

	res, err := e.Usage("c1")
	must.NoError(t, err)
	must.Eq(t, 2, res.CPU)
}

func TestEngine_IsolateUnknownContainer(t *testing.T) {
	e := testEngine(t)
	err := e.Isolate("ghost", 111)
	must.ErrorIs(t, err, ErrUnknownContainer)
}

func TestEngine_IsolateSuccess(t *testing.T) {
	e := testEngine(t)

	must.NoError(t, e.Update("c1", Resources{CPU: 2}))
	must.NoError(t, e.Isolate("c1", 4242))

	groups, err := e.driver.ListGroups()
	must.NoError(t, err)
	must.SliceContains(t, groups, "c1")
}

func TestEngine_IsolateExhaustedDestroysGroup(t *testing.T) {
	e := testEngine(t)

	// request more cores than exist anywhere in the budget's reach by
	// asking for a CPU count far beyond what 4 uniformly cheap cores
	// can satisfy is not directly exhausting under this selector (it
	// degrades to the full set), so force exhaustion via a GPU request
	// whose neighbor set is empty: CudaPolicy.Items() is empty, so any
	// c > 0 budget returns an empty selection.
	must.NoError(t, e.Update("c1", Resources{CPU: 2, GPU: 1}))
	err := e.Isolate("c1", 4242)
	must.ErrorIs(t, err, ErrExhausted)

	groups, lerr := e.driver.ListGroups()
	must.NoError(t, lerr)
	must.SliceNotContains(t, groups, "c1")
}

func TestEngine_IsolateSpansMemoryNodes(t *testing.T) {
	e := testEngine(t)

	// four uniformly idle cores split 2/2 across nodes 0 and 1; a
	// request for all four forces the selection across both nodes, so
	// the written cpuset.mems must list both.
	must.NoError(t, e.Update("c1", Resources{CPU: 4}))
	must.NoError(t, e.Isolate("c1", 4242))

	mems, err := os.ReadFile(filepath.Join(e.driver.Root, "c1", "cpuset.mems"))
	must.NoError(t, err)
	must.Eq(t, "0,1", string(mems))
}

func TestEngine_CleanupIdempotent(t *testing.T) {
	e := testEngine(t)

	must.NoError(t, e.Update("c1", Resources{CPU: 1}))
	must.NoError(t, e.Isolate("c1", 55))

	must.NoError(t, e.Cleanup("c1"))
	err := e.Cleanup("c1")
	must.ErrorIs(t, err, ErrUnknownContainer)
}

func TestEngine_CleanupUnknown(t *testing.T) {
	e := testEngine(t)
	err := e.Cleanup("ghost")
	must.ErrorIs(t, err, ErrUnknownContainer)
}
