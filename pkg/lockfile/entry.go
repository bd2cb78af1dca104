package lockfile

// IsMutableVersion reports whether a resolution kind ("branch", "latest" or
// "latest-prerelease") names a moving ref rather than a pinned tag/commit.
// HasMutableDeps uses it; the fast-path detector reads Lockfile.MutableDeps.
func IsMutableVersion(kind string) bool {
	return kind == "branch" || kind == "latest" || kind == "latest-prerelease"
}

// HasMutableDeps reports whether any entry in the lockfile was resolved
// from a mutable ref, looking up each entry's resolution kind by
// resource_id in kinds.
func (lf *Lockfile) HasMutableDeps(kinds map[string]string) bool {
	for _, e := range lf.AllEntries() {
		if IsMutableVersion(kinds[e.ResourceID]) {
			return true
		}
	}
	return false
}

// RecomputeMutableDeps sets lf.MutableDeps from each entry's own Mutable
// flag (spec.md §3 invariant 5), the form the orchestrator uses once every
// entry carries its own resolution kind instead of an external kinds map.
func (lf *Lockfile) RecomputeMutableDeps() {
	for _, e := range lf.AllEntries() {
		if e.Mutable {
			lf.MutableDeps = true
			return
		}
	}
	lf.MutableDeps = false
}

// ByAlias indexes all entries by alias for O(1) lookup during install and
// diffing against a freshly-resolved set.
func (lf *Lockfile) ByAlias() map[string]Entry {
	out := make(map[string]Entry)
	for _, e := range lf.AllEntries() {
		out[e.Alias] = e
	}
	return out
}
