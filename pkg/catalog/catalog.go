// Package catalog ships the built-in roadmap: the six-phase collaboration
// plan, embedded so `apply` works without any input file.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goblinsan/gh-roadmap/pkg/types"
)

//go:embed roadmap.yaml
var roadmapYAML []byte

// Default returns the built-in roadmap.
func Default() (types.Roadmap, error) {
	var roadmap types.Roadmap
	if err := yaml.Unmarshal(roadmapYAML, &roadmap); err != nil {
		return types.Roadmap{}, fmt.Errorf("parse built-in roadmap: %w", err)
	}
	return roadmap, nil
}

// Raw returns the built-in roadmap as YAML, for `export`.
func Raw() []byte {
	out := make([]byte, len(roadmapYAML))
	copy(out, roadmapYAML)
	return out
}
