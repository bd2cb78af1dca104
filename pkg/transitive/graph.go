package transitive

import (
	"fmt"
	"strings"

	"github.com/aig787/agpm/pkg/agpmerrors"
)

// Edge is one resolved dependency edge from a parent resource to a child
// resource_id, extracted from the parent's frontmatter.
type Edge struct {
	ParentResourceID string
	ChildResourceID  string
	Source           string
	Path             string
	Version          string
}

// DetectCycle walks a dependency graph (parent -> children) starting at
// each root and reports the first cycle found, if any (spec.md §4.7 edge
// case: circular transitive dependencies must be rejected, not looped
// forever).
func DetectCycle(edges []Edge) *agpmerrors.CircularDependencyError {
	children := map[string][]string{}
	for _, e := range edges {
		children[e.ParentResourceID] = append(children[e.ParentResourceID], e.ChildResourceID)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var path []string

	var visit func(node string) *agpmerrors.CircularDependencyError
	visit = func(node string) *agpmerrors.CircularDependencyError {
		color[node] = gray
		path = append(path, node)
		for _, child := range children[node] {
			switch color[child] {
			case gray:
				cycleStart := indexOf(path, child)
				cycle := append(append([]string{}, path[cycleStart:]...), child)
				return &agpmerrors.CircularDependencyError{Cycle: cycle}
			case white:
				if err := visit(child); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		color[node] = black
		return nil
	}

	var roots []string
	for _, e := range edges {
		roots = append(roots, e.ParentResourceID)
	}
	for _, root := range dedupe(roots) {
		if color[root] == white {
			if err := visit(root); err != nil {
				return err
			}
		}
	}
	return nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func dedupe(ss []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// ResourceID builds the canonical identity used to key requirements and
// conflicts across the manifest and every transitive hop: spec.md §3's
// resource_id tuple (resource_type, canonical_name, source, tool). Without
// resourceType and tool in the key, a commands/foo.md and an agents/foo.md
// at the same path, or the same resource installed for two different
// tools, would collide into a single identity instead of being tracked
// (and conflict-checked) independently.
func ResourceID(resourceType, source, path, tool string) string {
	if tool == "" {
		tool = "claude-code"
	}
	if source == "" {
		return fmt.Sprintf("local:%s:%s@%s", resourceType, path, tool)
	}
	return fmt.Sprintf("%s:%s/%s@%s", resourceType, source, strings.TrimPrefix(path, "/"), tool)
}
