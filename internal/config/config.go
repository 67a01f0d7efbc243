// Package config loads the cil2cpp.yaml project file and layers CLI flag
// overrides on top of it.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every knob the pipeline reads before AssemblySet construction.
type Config struct {
	// Target is the downstream C++ toolchain's platform triple, as loaded
	// from the project file. No pipeline stage reads it: it influences
	// neither IR construction nor the build manifest.
	Target string `yaml:"target"`

	// Release is the release-vs-debug toggle as loaded from the project file.
	// No pipeline stage reads it, so emitted artifacts are the same either way.
	Release bool `yaml:"release"`

	// BudgetPath points at the stub-budget JSON side-car (spec.md §4.8).
	// Empty disables the ratchet.
	BudgetPath string `yaml:"budgetPath"`

	// PartitionInstructionThreshold is the cumulative IR-instruction count
	// at which the code generator closes a method partition and opens the
	// next one (spec.md §4.6.4).
	PartitionInstructionThreshold int `yaml:"partitionInstructionThreshold"`

	// StdlibPath is the third resolution location AssemblySet searches
	// when a reference cannot be found alongside the primary assembly or
	// in the dependency manifest's runtime-files list (spec.md §4.1).
	StdlibPath string `yaml:"stdlibPath"`

	// OutDir is where every emitted artifact (header, source partitions,
	// data file, stub file, main, build manifest, optional IR text dump) is written.
	OutDir string `yaml:"outDir"`
}

// Default returns the configuration used when no cil2cpp.yaml is present.
func Default() Config {
	return Config{
		Target:                        "native",
		Release:                       false,
		BudgetPath:                    "",
		PartitionInstructionThreshold: 20000,
		StdlibPath:                    "",
		OutDir:                        ".",
	}
}

// Load reads a cil2cpp.yaml file at path, returning Default() unmodified if
// the file does not exist.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
