// Command cpusetiso-plugin is a thin process wrapper around
// plugins/cpusetiso. The orchestrator's actual RPC ABI (plugin
// registration, lifecycle callbacks) is a separate concern this
// module does not implement; this binary exists so the engine can be
// smoke-tested as a standalone process during development.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/cpusetiso/agent/plugins/cpusetiso"
)

func main() {
	var (
		dbPath       string
		sampleWindow float64
		mode         string
	)
	flag.StringVar(&dbPath, "cpusetdbpath", ".", "directory for the persistent sample log")
	flag.Float64Var(&sampleWindow, "samplewindow", 0, "Poisson bucket width, in minutes (required for isolator mode)")
	flag.StringVar(&mode, "mode", "isolator", "isolator or estimator")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{Name: "cpusetiso-plugin"})

	if !cpusetiso.Compatible() {
		logger.Error("host is not compatible: kernel cpuset controller not mounted")
		os.Exit(1)
	}

	params := map[string]string{"cpusetdbpath": dbPath}

	switch mode {
	case "isolator":
		if sampleWindow <= 0 {
			fmt.Fprintln(os.Stderr, "cpusetiso-plugin: -samplewindow is required in isolator mode")
			os.Exit(1)
		}
		params["samplewindow"] = fmt.Sprintf("%v", sampleWindow)

		engine, err := cpusetiso.CreateIsolator(params)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cpusetiso-plugin: %v\n", err)
			os.Exit(1)
		}
		defer engine.Close()

	case "estimator":
		est, err := cpusetiso.CreateEstimator(params)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cpusetiso-plugin: %v\n", err)
			os.Exit(1)
		}
		defer est.Close()

	default:
		fmt.Fprintf(os.Stderr, "cpusetiso-plugin: unknown -mode %q\n", mode)
		os.Exit(1)
	}

	logger.Info("cpusetiso running", "mode", mode)
	select {}
}
