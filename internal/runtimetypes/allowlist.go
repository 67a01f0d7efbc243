// Package runtimetypes holds the runtime-provided-types allowlist
// (spec.md §4.2, §4.6.2): the fixed list of types whose definitions are
// supplied by the C++ runtime rather than lowered from IR. The code
// generator emits a type alias for each of these instead of a struct
// body, and ReachabilityAnalyzer roots every one of them directly so a
// reference to e.g. System.String never produces a missing-reference
// stub. Embedded the same way internal/icall bakes in its registry.
package runtimetypes

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed allowlist.json
var allowlistFS embed.FS

// List is the loaded runtime-provided-types allowlist.
type List struct {
	names []string
	set   map[string]bool
}

// Load parses the embedded allowlist.
func Load() (*List, error) {
	data, err := allowlistFS.ReadFile("allowlist.json")
	if err != nil {
		return nil, fmt.Errorf("runtimetypes: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("runtimetypes: parse allowlist.json: %w", err)
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return &List{names: names, set: set}, nil
}

// Names returns the allowlist in the fixed order it was declared in —
// callers that root these as reach.AlwaysKeep.RuntimeProvidedTypes entries
// get the same deterministic order every run.
func (l *List) Names() []string { return l.names }

// IsRuntimeProvided reports whether fullName names a runtime-provided
// type. Used by internal/codegen's header emission (spec.md §4.6.1) to
// decide between a struct definition and a type alias.
func (l *List) IsRuntimeProvided(fullName string) bool {
	return l.set[fullName]
}
