package version

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/aig787/agpm/pkg/gitrepo"
	"github.com/aig787/agpm/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustVersion(t *testing.T, s string) *semver.Version {
	t.Helper()
	v, err := semver.NewVersion(s)
	require.NoError(t, err)
	return v
}

func TestParseKinds(t *testing.T) {
	c, err := Parse("^1.2.0", "version", "")
	require.NoError(t, err)
	assert.Equal(t, KindSemver, c.Kind)

	c, err = Parse("latest", "version", "")
	require.NoError(t, err)
	assert.Equal(t, KindLatest, c.Kind)
	assert.True(t, c.IsMutable())

	c, err = Parse("latest-prerelease", "version", "")
	require.NoError(t, err)
	assert.Equal(t, KindLatestPrerelease, c.Kind)

	c, err = Parse("main", "branch", "")
	require.NoError(t, err)
	assert.Equal(t, KindBranch, c.Kind)
	assert.True(t, c.IsMutable())

	c, err = Parse("abc123def456", "rev", "")
	require.NoError(t, err)
	assert.Equal(t, KindCommit, c.Kind)
	assert.False(t, c.IsMutable())

	_, err = Parse("not-hex-!!!", "rev", "")
	require.Error(t, err)
}

func TestResolveCaretConstraint(t *testing.T) {
	c, err := Parse("^1.0.0", "version", "")
	require.NoError(t, err)

	tags := []TagVersion{
		{Tag: "v2.0.0", SHA: "sha2", Version: mustVersion(t, "2.0.0")},
		{Tag: "v1.5.0", SHA: "sha15", Version: mustVersion(t, "1.5.0")},
		{Tag: "v1.0.0", SHA: "sha10", Version: mustVersion(t, "1.0.0")},
	}

	resolved, ok := c.Resolve(tags)
	require.True(t, ok)
	assert.Equal(t, "v1.5.0", resolved.Tag)
}

func TestResolveLatestExcludesPrerelease(t *testing.T) {
	c, err := Parse("latest", "version", "")
	require.NoError(t, err)

	tags := []TagVersion{
		{Tag: "v2.0.0-beta.1", SHA: "shaB", Version: mustVersion(t, "2.0.0-beta.1"), Prerelease: true},
		{Tag: "v1.5.0", SHA: "sha15", Version: mustVersion(t, "1.5.0")},
	}

	resolved, ok := c.Resolve(tags)
	require.True(t, ok)
	assert.Equal(t, "v1.5.0", resolved.Tag)
}

func TestResolveLatestPrereleaseIncludesPrerelease(t *testing.T) {
	c, err := Parse("latest-prerelease", "version", "")
	require.NoError(t, err)

	tags := []TagVersion{
		{Tag: "v2.0.0-beta.1", SHA: "shaB", Version: mustVersion(t, "2.0.0-beta.1"), Prerelease: true},
		{Tag: "v1.5.0", SHA: "sha15", Version: mustVersion(t, "1.5.0")},
	}

	resolved, ok := c.Resolve(tags)
	require.True(t, ok)
	assert.Equal(t, "v2.0.0-beta.1", resolved.Tag)
}

func TestDiscoverTagsFromRealRepo(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("agents/a.md", "# a")
	repo.Commit("initial")
	repo.Tag("v1.0.0")
	repo.WriteFile("agents/a.md", "# a v2")
	repo.Commit("second")
	repo.Tag("v2.0.0")
	repo.Tag("not-a-version")

	bareDir := filepath.Join(t.TempDir(), "bare.git")
	require.NoError(t, gitrepo.CloneBare(ctx, repo.URL(), bareDir))

	tags, err := DiscoverTags(ctx, repo.URL(), bareDir, "")
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "v2.0.0", tags[0].Tag)
	assert.Equal(t, "v1.0.0", tags[1].Tag)
}

func TestDiscoverTagsStripsAllBuiltinPrefixForms(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("agents/a.md", "# a")
	repo.Commit("initial")
	repo.Tag("V1.0.0")
	repo.WriteFile("agents/a.md", "# a version-")
	repo.Commit("second")
	repo.Tag("version-1.1.0")
	repo.WriteFile("agents/a.md", "# a release-")
	repo.Commit("third")
	repo.Tag("release-1.2.0")

	bareDir := filepath.Join(t.TempDir(), "bare.git")
	require.NoError(t, gitrepo.CloneBare(ctx, repo.URL(), bareDir))

	tags, err := DiscoverTags(ctx, repo.URL(), bareDir, "")
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "release-1.2.0", tags[0].Tag)
	assert.Equal(t, "version-1.1.0", tags[1].Tag)
	assert.Equal(t, "V1.0.0", tags[2].Tag)
}

func TestDiscoverTagsStripsCustomPrefix(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("agents/a.md", "# a")
	repo.Commit("initial")
	repo.Tag("agpm-1.0.0")

	bareDir := filepath.Join(t.TempDir(), "bare.git")
	require.NoError(t, gitrepo.CloneBare(ctx, repo.URL(), bareDir))

	tags, err := DiscoverTags(ctx, repo.URL(), bareDir, "agpm-")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "agpm-1.0.0", tags[0].Tag)
	assert.Equal(t, "1.0.0", tags[0].Version.String())
}
