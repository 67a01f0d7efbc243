// Package icall holds the ICallRegistry (spec.md §4.5): a process-wide,
// read-only mapping from a method marked internal-call to the name of the
// runtime-provided C++ function that implements it. The mapping is baked
// into the binary from registry.json, the same shape
// tinyrange-rtg/std/runtime/runtime.go expresses with one
// "//rtg:internal <name>" comment per declared-only Go function — here
// lifted out of source comments into data, since ECMA-335's internal-call
// surface is far larger than a handful of hand-annotated functions.
package icall

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed registry.json
var registryFS embed.FS

// wildcardArity means a registry entry matches any parameter count.
const wildcardArity = -1

// wildcardType means a registry entry matches any declaring type.
const wildcardType = "*"

type entry struct {
	Type         string `json:"type"`
	Method       string `json:"method"`
	Arity        int    `json:"arity"`
	FirstParam   string `json:"firstParamTag,omitempty"`
	RuntimeName  string `json:"runtimeName"`
}

// Registry is the loaded, queryable internal-call table.
type Registry struct {
	exact    map[string]string // "Type\x00Method\x00arity[\x00tag]" -> runtime name
	wildcard map[string]string // "Type\x00Method" -> runtime name, any arity
	byMethod map[string]string // "Method\x00arity" -> runtime name, any type
}

// Load parses the embedded registry. It can only fail on a corrupt build
// (malformed registry.json), which would be a packaging bug rather than a
// runtime condition — callers are expected to treat a non-nil error as
// fatal at startup.
func Load() (*Registry, error) {
	data, err := registryFS.ReadFile("registry.json")
	if err != nil {
		return nil, fmt.Errorf("icall: %w", err)
	}
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("icall: parse registry.json: %w", err)
	}

	r := &Registry{
		exact:    map[string]string{},
		wildcard: map[string]string{},
		byMethod: map[string]string{},
	}
	for _, e := range entries {
		switch {
		case e.Type == wildcardType:
			r.byMethod[fmt.Sprintf("%s\x00%d", e.Method, e.Arity)] = e.RuntimeName
		case e.Arity == wildcardArity:
			r.wildcard[fmt.Sprintf("%s\x00%s", e.Type, e.Method)] = e.RuntimeName
		case e.FirstParam != "":
			r.exact[fmt.Sprintf("%s\x00%s\x00%d\x00%s", e.Type, e.Method, e.Arity, e.FirstParam)] = e.RuntimeName
		default:
			r.exact[fmt.Sprintf("%s\x00%s\x00%d", e.Type, e.Method, e.Arity)] = e.RuntimeName
		}
	}
	return r, nil
}

// Lookup returns the runtime-provided implementation name for a method
// marked internal-call, or "", false if the registry has no entry —
// spec.md §4.5's exact lookup with wildcard-arity support. firstParamTag
// is the mangled identifier of the first parameter's type, or "" if the
// method takes no parameters; it only matters for entries registered with
// a tag.
func (r *Registry) Lookup(declaringType, method string, arity int, firstParamTag string) (string, bool) {
	if firstParamTag != "" {
		if name, ok := r.exact[fmt.Sprintf("%s\x00%s\x00%d\x00%s", declaringType, method, arity, firstParamTag)]; ok {
			return name, true
		}
	}
	if name, ok := r.exact[fmt.Sprintf("%s\x00%s\x00%d", declaringType, method, arity)]; ok {
		return name, true
	}
	if name, ok := r.wildcard[fmt.Sprintf("%s\x00%s", declaringType, method)]; ok {
		return name, true
	}
	if name, ok := r.byMethod[fmt.Sprintf("%s\x00%d", method, arity)]; ok {
		return name, true
	}
	return "", false
}
