package resolver

import (
	"context"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/aig787/agpm/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tag(t *testing.T, tagName, sha, v string) version.TagVersion {
	t.Helper()
	sv, err := semver.NewVersion(v)
	require.NoError(t, err)
	return version.TagVersion{Tag: tagName, SHA: sha, Version: sv}
}

func mustConstraint(t *testing.T, raw string) version.Constraint {
	t.Helper()
	c, err := version.Parse(raw, "version", "")
	require.NoError(t, err)
	return c
}

func TestResolveNoConflict(t *testing.T) {
	tags := map[string][]version.TagVersion{
		"community": {
			tag(t, "v1.2.0", "sha120", "1.2.0"),
			tag(t, "v1.0.0", "sha100", "1.0.0"),
		},
	}
	provider := func(ctx context.Context, source, prefix string) ([]version.TagVersion, error) {
		return tags[source], nil
	}

	reqs := []Requirement{
		{ResourceID: "community/agents/a.md", Source: "community", Constraint: mustConstraint(t, "^1.0.0"), RequiredBy: agpmerrors.RequiredBy{Alias: "a"}},
	}

	result, err := Resolve(context.Background(), reqs, provider, Options{})
	require.NoError(t, err)
	assert.True(t, result.Resolved)
	assert.Equal(t, agpmerrors.TerminationSuccess, result.Reason)
	assert.Equal(t, "sha120", result.Requirements[0].SHA)
}

func TestResolveBacktracksToCommonSHA(t *testing.T) {
	// Resource a.md: one requirement pinned at 1.0.0 (sha100), another at ^1.0.0
	// which initially resolves to the newest (1.2.0, sha120). Backtracking
	// should pull the ^1.0.0 requirement down to sha100 since it's compatible.
	tags := map[string][]version.TagVersion{
		"community": {
			tag(t, "v1.2.0", "sha120", "1.2.0"),
			tag(t, "v1.1.0", "sha110", "1.1.0"),
			tag(t, "v1.0.0", "sha100", "1.0.0"),
		},
	}
	provider := func(ctx context.Context, source, prefix string) ([]version.TagVersion, error) {
		return tags[source], nil
	}

	reqs := []Requirement{
		{ResourceID: "community/agents/a.md", Source: "community", Constraint: mustConstraint(t, "1.0.0"), RequiredBy: agpmerrors.RequiredBy{Alias: "pinned"}},
		{ResourceID: "community/agents/a.md", Source: "community", Constraint: mustConstraint(t, "^1.0.0"), RequiredBy: agpmerrors.RequiredBy{ResourceID: "community/agents/parent.md"}},
	}

	result, err := Resolve(context.Background(), reqs, provider, Options{})
	require.NoError(t, err)
	assert.True(t, result.Resolved)
	for _, r := range result.Requirements {
		assert.Equal(t, "sha100", r.SHA)
	}
	require.Len(t, result.Updates, 1)
	assert.Equal(t, "sha120", result.Updates[0].OldSHA)
	assert.Equal(t, "sha100", result.Updates[0].NewSHA)
}

func TestResolveBacktracksDirectOutvotesTransitiveOnTie(t *testing.T) {
	// SHAs are deliberately named so that lexicographic order favors the
	// *transitive* requirement's SHA ("aasha120" < "zzsha100"): a plain
	// unweighted vote count (1 direct vs. 1 transitive) would tie-break to
	// the transitive SHA by string comparison alone. The direct requirement
	// must still win because it reflects what the manifest actually asked
	// for (spec.md §4.6).
	tags := map[string][]version.TagVersion{
		"community": {
			tag(t, "v1.2.0", "aasha120", "1.2.0"),
			tag(t, "v1.1.0", "midsha110", "1.1.0"),
			tag(t, "v1.0.0", "zzsha100", "1.0.0"),
		},
	}
	provider := func(ctx context.Context, source, prefix string) ([]version.TagVersion, error) {
		return tags[source], nil
	}

	reqs := []Requirement{
		{ResourceID: "community/agents/a.md", Source: "community", Constraint: mustConstraint(t, "1.0.0"), RequiredBy: agpmerrors.RequiredBy{Alias: "pinned"}},
		{ResourceID: "community/agents/a.md", Source: "community", Constraint: mustConstraint(t, "^1.0.0"), RequiredBy: agpmerrors.RequiredBy{ResourceID: "community/agents/parent.md"}},
	}

	result, err := Resolve(context.Background(), reqs, provider, Options{})
	require.NoError(t, err)
	assert.True(t, result.Resolved)
	for _, r := range result.Requirements {
		assert.Equal(t, "zzsha100", r.SHA)
	}
}

func TestResolveFailsWhenNoCompatibleVersion(t *testing.T) {
	tags := map[string][]version.TagVersion{
		"community": {
			tag(t, "v2.0.0", "sha200", "2.0.0"),
			tag(t, "v1.0.0", "sha100", "1.0.0"),
		},
	}
	provider := func(ctx context.Context, source, prefix string) ([]version.TagVersion, error) {
		return tags[source], nil
	}

	reqs := []Requirement{
		{ResourceID: "community/agents/a.md", Source: "community", Constraint: mustConstraint(t, "1.0.0"), RequiredBy: agpmerrors.RequiredBy{Alias: "a"}},
		{ResourceID: "community/agents/a.md", Source: "community", Constraint: mustConstraint(t, "2.0.0"), RequiredBy: agpmerrors.RequiredBy{Alias: "b"}},
	}

	result, err := Resolve(context.Background(), reqs, provider, Options{})
	require.NoError(t, err)
	assert.False(t, result.Resolved)
	assert.Equal(t, agpmerrors.TerminationNoCompatibleVersion, result.Reason)
	require.Error(t, result.Error())
}
