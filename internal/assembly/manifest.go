package assembly

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the side-car dependency manifest referenced by SPEC_FULL.md
// §4.1: the list of runtime files (library assemblies shipped alongside
// the primary one) AssemblySet searches when a reference isn't found next
// to the referencing assembly.
type Manifest struct {
	RuntimeFiles []string `yaml:"runtimeFiles"`
}

// LoadManifest reads a dependency manifest from path. A missing manifest
// is not an error — some builds (a single self-contained assembly plus
// the standard library) have none — it just yields an empty RuntimeFiles
// list.
func LoadManifest(path string) (Manifest, error) {
	if path == "" {
		return Manifest{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, nil
		}
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}
