package orchestrator

import (
	"context"
	"testing"

	"github.com/aig787/agpm/pkg/cache"
	"github.com/aig787/agpm/pkg/manifest"
	"github.com/aig787/agpm/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSingleDirectDependency(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("agents/a.md", "# agent a")
	repo.Commit("initial")
	repo.Tag("v1.0.0")

	m, err := manifest.Parse([]byte(testutil.ManifestFixture(repo.URL(), "^1.0.0")), "agpm.toml")
	require.NoError(t, err)

	p := cache.New(t.TempDir()).WithBlobCache(cache.NewBlobCache(t.TempDir()))
	result, err := Resolve(ctx, m, t.TempDir(), p, Options{})
	require.NoError(t, err)

	require.Len(t, result.Lockfile.Agents, 1)
	entry := result.Lockfile.Agents[0]
	assert.Equal(t, "a", entry.Alias)
	assert.Equal(t, "v1.0.0", entry.ResolvedVersion)
	assert.Equal(t, ".claude/agents/agents/a.md", entry.InstallTargetPath)
	assert.False(t, entry.Mutable)
	assert.NotEmpty(t, entry.ContentHash)
}

func TestResolveFollowsTransitiveDependency(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("agents/a.md", "---\ndependencies:\n  - path: snippets/b.md\n    resource_type: snippets\n---\n# agent a")
	repo.WriteFile("snippets/b.md", "# snippet b")
	repo.Commit("initial")
	repo.Tag("v1.0.0")

	manifestTOML := testutil.ManifestFixture(repo.URL(), "^1.0.0")
	m, err := manifest.Parse([]byte(manifestTOML), "agpm.toml")
	require.NoError(t, err)

	p := cache.New(t.TempDir()).WithBlobCache(cache.NewBlobCache(t.TempDir()))
	result, err := Resolve(ctx, m, t.TempDir(), p, Options{})
	require.NoError(t, err)

	require.Len(t, result.Lockfile.Agents, 1)
	require.Len(t, result.Lockfile.Snippets, 1)
	assert.Equal(t, "b", result.Lockfile.Snippets[0].Alias)
	assert.Equal(t, repo.URL(), result.Lockfile.Snippets[0].URL)
}

func TestResolveBranchDependencyIsMutable(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("agents/a.md", "# agent a")
	repo.Commit("initial")
	repo.Branch("dev")
	repo.WriteFile("agents/a.md", "# agent a v2")
	repo.Commit("dev change")

	manifestTOML := `[sources]
s = "` + repo.URL() + `"

[tools.claude-code]
path = ".claude"

[agents]
a = { source = "s", path = "agents/a.md", branch = "dev" }
`
	m, err := manifest.Parse([]byte(manifestTOML), "agpm.toml")
	require.NoError(t, err)

	p := cache.New(t.TempDir()).WithBlobCache(cache.NewBlobCache(t.TempDir()))
	result, err := Resolve(ctx, m, t.TempDir(), p, Options{})
	require.NoError(t, err)

	require.Len(t, result.Lockfile.Agents, 1)
	entry := result.Lockfile.Agents[0]
	assert.True(t, entry.Mutable)
	assert.Equal(t, "dev", entry.ResolvedVersion)
	assert.True(t, result.Lockfile.MutableDeps)
}

func TestResolveDetectsCircularTransitiveDependency(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("agents/a.md", "---\ndependencies:\n  - path: agents/b.md\n---\n# a")
	repo.WriteFile("agents/b.md", "---\ndependencies:\n  - path: agents/a.md\n---\n# b")
	repo.Commit("initial")
	repo.Tag("v1.0.0")

	manifestTOML := testutil.ManifestFixture(repo.URL(), "^1.0.0")
	m, err := manifest.Parse([]byte(manifestTOML), "agpm.toml")
	require.NoError(t, err)

	p := cache.New(t.TempDir()).WithBlobCache(cache.NewBlobCache(t.TempDir()))
	_, err = Resolve(ctx, m, t.TempDir(), p, Options{})
	require.Error(t, err)
}
