// Package conflict detects irreconcilable requirements across a dependency
// graph (spec.md §4.5 "Conflict detector (C5)"): two requirements for the
// same resource_id resolving to different commits, and two different
// resources that would install to the same target path.
package conflict

import (
	"sort"

	"github.com/aig787/agpm/pkg/agpmerrors"
)

// Requirement is one edge asking for a specific resource at a specific SHA,
// as produced by the resolver while walking the dependency graph.
type Requirement struct {
	ResourceID string
	SHA        string
	RequiredBy agpmerrors.RequiredBy
}

// Placement is a candidate install location for one resolved resource,
// used to detect target-path collisions between unrelated resources.
type Placement struct {
	TargetPath string
	Name       string
	ContentHash string
}

// DetectVersionConflicts groups requirements by resource_id and reports one
// *agpmerrors.VersionConflictError per resource_id that has more than one
// distinct SHA requested.
func DetectVersionConflicts(reqs []Requirement) []*agpmerrors.VersionConflictError {
	byResource := map[string][]Requirement{}
	for _, r := range reqs {
		byResource[r.ResourceID] = append(byResource[r.ResourceID], r)
	}

	var conflicts []*agpmerrors.VersionConflictError
	for _, resourceID := range sortedResourceIDs(byResource) {
		group := byResource[resourceID]
		shaSet := map[string]bool{}
		for _, r := range group {
			shaSet[r.SHA] = true
		}
		if len(shaSet) <= 1 {
			continue
		}
		var shas []string
		for sha := range shaSet {
			shas = append(shas, sha)
		}
		sort.Strings(shas)
		var requiredBy []agpmerrors.RequiredBy
		for _, r := range group {
			requiredBy = append(requiredBy, r.RequiredBy)
		}
		conflicts = append(conflicts, &agpmerrors.VersionConflictError{
			ResourceID: resourceID,
			SHAs:       shas,
			RequiredBy: requiredBy,
		})
	}
	return conflicts
}

func sortedResourceIDs(m map[string][]Requirement) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DetectTargetPathConflicts groups placements by target install path and
// reports a *agpmerrors.TargetPathConflictError for every path shared by two
// resources whose content differs (spec.md §3 invariant 3). Two resources
// sharing a path with identical content hash are not a conflict — the
// installer simply writes the same bytes twice.
func DetectTargetPathConflicts(placements []Placement) []*agpmerrors.TargetPathConflictError {
	byPath := map[string][]Placement{}
	for _, p := range placements {
		byPath[p.TargetPath] = append(byPath[p.TargetPath], p)
	}

	var conflicts []*agpmerrors.TargetPathConflictError
	for _, path := range sortedPaths(byPath) {
		group := byPath[path]
		for i := 1; i < len(group); i++ {
			if group[i].ContentHash != group[0].ContentHash {
				conflicts = append(conflicts, &agpmerrors.TargetPathConflictError{
					TargetPath: path,
					NameA:      group[0].Name,
					NameB:      group[i].Name,
				})
			}
		}
	}
	return conflicts
}

func sortedPaths(m map[string][]Placement) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
