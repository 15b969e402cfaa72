// Package isolator implements IsolatorEngine: per-container cpuset
// lifecycle management (update, isolate, cleanup) backed by the
// submodular selector and the kernel cpuset controller driver.
//
// The engine runs as a single actor: a goroutine that owns all of its
// state and drains a mailbox of closures in arrival order, so that two
// concurrent callers touching the same container id can never race.
package isolator

import (
	"github.com/hashicorp/go-hclog"
	set "github.com/hashicorp/go-set/v3"

	"github.com/cpusetiso/agent/client/lib/cgutil"
	"github.com/cpusetiso/agent/client/lib/numalib"
	"github.com/cpusetiso/agent/client/lib/topology"
)

type job func()

// Engine is IsolatorEngine. Construct with NewEngine; every exported
// method is safe to call concurrently from multiple goroutines.
type Engine struct {
	mailbox chan job

	containerResources map[string]Resources
	pids               map[string]int
	activeIDs          *set.Set[string]

	driver   *cgutil.Driver
	assigner *assigner
	recorder SampleRecorder
	logger   hclog.Logger
}

// NewEngine builds an Engine over driver/topo/info and starts its
// worker goroutine. recorder may be nil, in which case isolate skips
// the persistent sample-logging step (useful for tests and for hosts
// that run the isolator without an estimator).
func NewEngine(driver *cgutil.Driver, topo *numalib.Topology, info *topology.ResourceInfo, recorder SampleRecorder, logger hclog.Logger) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	e := &Engine{
		mailbox:            make(chan job, 64),
		containerResources: make(map[string]Resources),
		pids:               make(map[string]int),
		activeIDs:          set.New[string](0),
		driver:             driver,
		assigner:           newAssigner(driver, topo, info, logger),
		recorder:           recorder,
		logger:             logger.Named("isolator"),
	}
	go e.run()
	return e
}

func (e *Engine) run() {
	for j := range e.mailbox {
		j()
	}
}

// Close shuts down the engine's worker goroutine. No further calls may
// be made once Close returns.
func (e *Engine) Close() {
	close(e.mailbox)
}

func (e *Engine) do(fn func() error) error {
	result := make(chan error, 1)
	e.mailbox <- func() { result <- fn() }
	return <-result
}

// Update is a first-write-wins insert of resources under id. Repeated
// calls for an id already on record are ignored.
func (e *Engine) Update(id string, resources Resources) error {
	return e.do(func() error { return e.update(id, resources) })
}

func (e *Engine) update(id string, resources Resources) error {
	if _, ok := e.containerResources[id]; ok {
		return nil
	}
	e.containerResources[id] = resources
	e.activeIDs.Insert(id)
	return nil
}

// Isolate assigns cores (and, transitively, NUMA memory nodes) to the
// container named id, attaches pid to the resulting cpuset group, and
// records the requested CPU count to the persistent time-series log.
// On any failure after the cpuset group is created, the group is
// destroyed before the error is returned, so a failed isolate never
// leaks an empty group.
func (e *Engine) Isolate(id string, pid int) error {
	return e.do(func() error { return e.isolate(id, pid) })
}

func (e *Engine) isolate(id string, pid int) error {
	res, ok := e.containerResources[id]
	if !ok {
		return ErrUnknownContainer
	}
	e.pids[id] = pid

	if e.recorder != nil {
		if err := e.recorder.RecordSample(res.CPU); err != nil {
			return err
		}
	}

	if err := e.driver.CreateGroup(id, cgutil.CreateGroupOpts{}); err != nil {
		return err
	}

	groups := e.activeIDs.Slice()
	cores, err := e.assigner.selectCores(groups, res.CPU, res.GPU)
	if err != nil {
		_ = e.driver.DestroyGroup(id)
		return err
	}

	if err := e.assigner.materialize(id, cores); err != nil {
		_ = e.driver.DestroyGroup(id)
		return err
	}

	if err := e.driver.AttachPid(id, pid); err != nil {
		_ = e.driver.DestroyGroup(id)
		return err
	}

	e.logger.Debug("isolated container", "id", id, "cores", cores, "pid", pid)
	return nil
}

// Cleanup removes id's record and destroys its cpuset group.
// UnknownContainer if id has no record.
func (e *Engine) Cleanup(id string) error {
	return e.do(func() error { return e.cleanup(id) })
}

func (e *Engine) cleanup(id string) error {
	if _, ok := e.containerResources[id]; !ok {
		return ErrUnknownContainer
	}
	delete(e.containerResources, id)
	delete(e.pids, id)
	e.activeIDs.Remove(id)

	if err := e.driver.DestroyGroup(id); err != nil && err != cgutil.ErrNotFound {
		return err
	}
	return nil
}

// Recover, Prepare, Watch, and Usage are the lifecycle placeholders an
// orchestrator's wider container-runtime interface requires; this
// engine keeps no on-disk state to reconstruct across a restart, so
// each is a cheap no-op beyond what's noted.

// Recover accepts a prior-run state snapshot and a set of orphaned
// container ids; it has nothing to reconcile and always succeeds.
func (e *Engine) Recover(states map[string]ContainerRecord, orphans []string) error {
	return e.do(func() error { return nil })
}

// Prepare is a no-op placeholder.
func (e *Engine) Prepare(id string) error {
	return e.do(func() error { return nil })
}

// Watch is a no-op placeholder.
func (e *Engine) Watch(id string) error {
	return e.do(func() error { return nil })
}

// Usage returns the on-record resources for id, or a zero value if id
// is unknown.
func (e *Engine) Usage(id string) (Resources, error) {
	var out Resources
	err := e.do(func() error {
		if res, ok := e.containerResources[id]; ok {
			out = res
		}
		return nil
	})
	return out, err
}
