package manifest

import (
	"fmt"
	"sort"

	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/aig787/agpm/pkg/sourceutil"
	"github.com/aig787/agpm/pkg/toolconfig"
)

// Validate checks cross-references and mutual-exclusion rules that Parse
// alone cannot (spec.md §4.3 invariants): every dependency's source must be
// declared, at most one of version/branch/rev may be set, every dependency's
// tool must support its resource type, and every source URL must use a
// scheme agpm understands.
func (m *Manifest) Validate() error {
	for alias, url := range m.Sources {
		if sourceutil.DetectScheme(url) == sourceutil.SchemeUnknown {
			return &agpmerrors.ManifestError{Path: m.path, Reason: fmt.Sprintf("source %q has unsupported URL scheme: %s", alias, url)}
		}
	}

	for name := range m.Tools {
		if _, ok := toolconfig.Default(name); !ok && m.Tools[name].Path == "" {
			return &agpmerrors.ManifestError{Path: m.path, Reason: fmt.Sprintf("tool %q is not a built-in tool and declares no path", name)}
		}
	}

	for rt, deps := range m.DependencySections() {
		for _, alias := range sortedKeys(deps) {
			dep := deps[alias]
			if err := m.validateDependency(rt, alias, dep); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Manifest) validateDependency(rt toolconfig.ResourceType, alias string, dep Dependency) error {
	if !dep.IsLocal() {
		if _, ok := m.Sources[dep.Source]; !ok {
			return &agpmerrors.ManifestError{Path: m.path, Reason: fmt.Sprintf("%s.%s references undeclared source %q", rt, alias, dep.Source)}
		}
	}

	set := 0
	if dep.Version != "" {
		set++
	}
	if dep.Branch != "" {
		set++
	}
	if dep.Rev != "" {
		set++
	}
	if set > 1 {
		return &agpmerrors.ManifestError{Path: m.path, Reason: fmt.Sprintf("%s.%s sets more than one of version/branch/rev", rt, alias)}
	}
	if !dep.IsLocal() && set == 0 {
		return &agpmerrors.ManifestError{Path: m.path, Reason: fmt.Sprintf("%s.%s must set one of version/branch/rev", rt, alias)}
	}

	if dep.Path == "" {
		return &agpmerrors.ManifestError{Path: m.path, Reason: fmt.Sprintf("%s.%s has an empty path", rt, alias)}
	}

	toolName := dep.Tool
	if toolName == "" {
		toolName = "claude-code"
	}
	tc := m.EffectiveToolConfig(toolName)
	if !tc.Supports(rt) {
		var compatible []string
		for name := range m.Tools {
			if m.EffectiveToolConfig(name).Supports(rt) {
				compatible = append(compatible, name)
			}
		}
		for _, builtin := range []string{"claude-code", "opencode", "agpm"} {
			if _, already := m.Tools[builtin]; already {
				continue
			}
			if c, _ := toolconfig.Default(builtin); c.Supports(rt) {
				compatible = append(compatible, builtin)
			}
		}
		sort.Strings(compatible)
		return &agpmerrors.ToolCompatibilityError{ResourceType: string(rt), Tool: toolName, Compatible: compatible}
	}

	return nil
}

// sortedKeys returns the keys of a string-keyed map in lexicographic order,
// used wherever map iteration must be deterministic (lockfile emission,
// validation error ordering).
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
