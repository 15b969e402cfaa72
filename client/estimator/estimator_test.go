package estimator

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
	"github.com/cpusetiso/agent/client/lib/tslog"
	"github.com/cpusetiso/agent/helper/testlog"
)

func sixCoreTopo() *numalib.Topology {
	nodeIDs := idset.From([]hw.NodeID{0})
	distances := numalib.SLIT{{10}}
	cores := make([]numalib.Core, 6)
	for i := range cores {
		cores[i] = numalib.Core{SocketID: 0, NodeID: 0, ID: hw.CoreID(i), PUs: 1, Grade: hw.Performance}
	}
	return numalib.NewTopology(nodeIDs, distances, cores)
}

func testEstimator(t *testing.T) (*Estimator, *tslog.Store) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "cpuset.cpus"), []byte("0-5"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cpuset.mems"), []byte("0"), 0o644))
	driver := cgutil.NewDriver(root, testlog.HCLogger(t))

	// a uniform background load across every core gives the trial
	// selector a nonzero, meaningful per-core cost; with zero load
	// every core is free and the budget admits all of them regardless
	// of the predicted k*.
	must.NoError(t, driver.CreateGroup("bg", cgutil.CreateGroupOpts{}))
	require.NoError(t, driver.WriteCoreList("bg", []int{0, 1, 2, 3, 4, 5}))

	topo := sixCoreTopo()
	info := topology.NewResourceInfo(topo, driver, testlog.HCLogger(t))

	store, err := tslog.Open(t.TempDir(), 5, testlog.HCLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e := NewEstimator(store, driver, topo, info, testlog.HCLogger(t))
	t.Cleanup(e.Close)
	return e, store
}

func TestEstimator_EmptyLogReturnsEmpty(t *testing.T) {
	e, _ := testEstimator(t)
	res, err := e.Oversubscribable()
	must.NoError(t, err)
	must.Eq(t, Resources{}, res)
}

func TestEstimator_PoissonMode(t *testing.T) {
	e, store := testEstimator(t)

	// counts [1,2,2,2,3,2], mean mu=2, argmax_k=2.
	for _, c := range []int{1, 2, 2, 2, 3, 2} {
		must.NoError(t, store.RecordSample(c))
	}

	res, err := e.Oversubscribable()
	must.NoError(t, err)
	must.Eq(t, "core", res.Name)
	must.Eq(t, "*", res.Role)
	must.Eq(t, 2, res.Count)
}

func TestPoissonArgmax(t *testing.T) {
	must.Eq(t, 0, poissonArgmax(2, 0))
	must.Eq(t, 2, poissonArgmax(2, 6))
	must.Eq(t, 1, poissonArgmax(0.5, 6))
}
