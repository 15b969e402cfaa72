// Package cpusetiso is the orchestrator-facing entry point: it turns a
// flat module-parameter map into a running IsolatorEngine or
// Estimator, wiring together hardware discovery, the cgroup cpuset
// driver, and the persistent sample log. It does not implement an RPC
// transport; an embedding host calls these constructors directly.
package cpusetiso

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/cpusetiso/agent/client/estimator"
	"github.com/cpusetiso/agent/client/isolator"
	"github.com/cpusetiso/agent/client/lib/cgutil"
	"github.com/cpusetiso/agent/client/lib/numalib"
	"github.com/cpusetiso/agent/client/lib/topology"
	"github.com/cpusetiso/agent/client/lib/tslog"
)

const dbFileName = "cpusetiso.db"

// Compatible reports whether this host can run the plugin at all: the
// kernel cpuset controller must be mounted.
func Compatible() bool {
	driver := cgutil.NewDriver(cgutil.DefaultControllerRoot, hclog.NewNullLogger())
	_, err := driver.ListGroups()
	return err == nil
}

func discoverTopology(logger hclog.Logger) *numalib.Topology {
	top := numalib.Scan(numalib.PlatformScanners())
	top = numalib.Fallback(top)
	logger.Info("discovered topology", "cores", top.NumCores(), "sockets", top.NumSockets())
	return top
}

// CreateIsolator builds an IsolatorEngine from params. samplewindow is
// required; its absence is a fatal startup error, as is a failure to
// open the persistent sample log.
func CreateIsolator(params map[string]string) (*isolator.Engine, error) {
	logger := hclog.New(&hclog.LoggerOptions{Name: "cpusetiso"})

	cfg, err := parseIsolatorConfig(params)
	if err != nil {
		return nil, fmt.Errorf("cpusetiso: invalid isolator configuration: %w", err)
	}

	driver := cgutil.NewDriver(cgutil.DefaultControllerRoot, logger)
	top := discoverTopology(logger)
	info := topology.NewResourceInfo(top, driver, logger)

	store, err := tslog.Open(filepath.Join(cfg.CpusetDBPath, dbFileName), cfg.SampleWindow, logger)
	if err != nil {
		return nil, fmt.Errorf("cpusetiso: opening sample log: %w", err)
	}

	return isolator.NewEngine(driver, top, info, store, logger), nil
}

// CreateEstimator builds an Estimator from params, sharing the same
// sample-log layout CreateIsolator writes to.
func CreateEstimator(params map[string]string) (*estimator.Estimator, error) {
	logger := hclog.New(&hclog.LoggerOptions{Name: "cpusetiso"})

	cfg, err := parseEstimatorConfig(params)
	if err != nil {
		return nil, fmt.Errorf("cpusetiso: invalid estimator configuration: %w", err)
	}

	driver := cgutil.NewDriver(cgutil.DefaultControllerRoot, logger)
	top := discoverTopology(logger)
	info := topology.NewResourceInfo(top, driver, logger)

	// the estimator only ever reads the log; any positive window works
	// for bucketing the read side since Latest() just follows the
	// latest pointer written by the isolator's own window.
	store, err := tslog.Open(filepath.Join(cfg.CpusetDBPath, dbFileName), 1, logger)
	if err != nil {
		return nil, fmt.Errorf("cpusetiso: opening sample log: %w", err)
	}

	return estimator.NewEstimator(store, driver, top, info, logger), nil
}
