package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Overrides adjusts a workflow at launch without editing the document
// itself. Zero values leave the document's own settings in place.
type Overrides struct {
	// BatchSize replaces RunInfo batchSize.
	BatchSize int `yaml:"batchSize"`

	// Seed replaces every sampler's initial seed, for reproducing a run.
	Seed *int64 `yaml:"seed"`

	// FailurePolicy sets the run-level policy: "fast" or "soft".
	FailurePolicy string `yaml:"failurePolicy"`

	// RunID pins the run identifier, keeping restart namespaces stable.
	RunID string `yaml:"runId"`

	// MetricsAddr serves Prometheus metrics on this address for the
	// duration of the run (e.g. ":9090").
	MetricsAddr string `yaml:"metricsAddr"`

	// Redis switches restart caching to a Redis backend.
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// LoadOverrides reads the overrides file. A missing path yields empty
// overrides; a present but malformed file is an error.
func LoadOverrides(path string) (Overrides, error) {
	var ov Overrides
	if path == "" {
		return ov, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ov, fmt.Errorf("failed to read overrides %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return ov, fmt.Errorf("failed to parse overrides %q: %w", path, err)
	}
	return ov, nil
}
