package cpusetiso

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
)

// isolatorConfig is the typed form of the flat module parameters the
// orchestrator hands CreateIsolator.
type isolatorConfig struct {
	CpusetDBPath string  `mapstructure:"cpusetdbpath"`
	SampleWindow float64 `mapstructure:"samplewindow"`
}

// estimatorConfig is the typed form of the flat module parameters the
// orchestrator hands CreateEstimator.
type estimatorConfig struct {
	CpusetDBPath string `mapstructure:"cpusetdbpath"`
	Resources    string `mapstructure:"resources"`
}

func decodeParams(params map[string]string, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build parameter decoder: %w", err)
	}
	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("decode module parameters: %w", err)
	}
	return nil
}

// parseIsolatorConfig decodes and validates params for CreateIsolator.
// samplewindow is required; its absence (or any other malformed
// parameter) is accumulated into a single diagnostic so a caller can
// see every problem at once instead of fixing parameters one at a
// time across repeated invocations.
func parseIsolatorConfig(params map[string]string) (isolatorConfig, error) {
	var cfg isolatorConfig
	var result *multierror.Error

	if err := decodeParams(params, &cfg); err != nil {
		result = multierror.Append(result, err)
	}
	if _, ok := params["samplewindow"]; !ok {
		result = multierror.Append(result, fmt.Errorf("missing required parameter %q", "samplewindow"))
	} else if cfg.SampleWindow <= 0 {
		result = multierror.Append(result, fmt.Errorf("parameter %q must be a positive number of minutes", "samplewindow"))
	}
	if cfg.CpusetDBPath == "" {
		cfg.CpusetDBPath = "."
	}

	return cfg, result.ErrorOrNil()
}

func parseEstimatorConfig(params map[string]string) (estimatorConfig, error) {
	var cfg estimatorConfig
	if err := decodeParams(params, &cfg); err != nil {
		return cfg, err
	}
	if cfg.CpusetDBPath == "" {
		cfg.CpusetDBPath = "."
	}
	return cfg, nil
}
