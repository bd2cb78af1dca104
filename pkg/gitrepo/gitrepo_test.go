package gitrepo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aig787/agpm/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneBareAndRevParse(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("agents/a.md", "# a")
	sha := repo.Commit("initial")
	repo.Tag("v1.0.0")

	bareDir := filepath.Join(t.TempDir(), "bare.git")
	require.NoError(t, CloneBare(ctx, repo.URL(), bareDir))

	resolved, err := RevParse(ctx, repo.URL(), bareDir, "v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, sha, resolved)
}

func TestLsRemoteTags(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("agents/a.md", "# a")
	repo.Commit("initial")
	repo.Tag("v1.0.0")
	repo.WriteFile("agents/a.md", "# a v2")
	repo.Commit("second")
	repo.Tag("v2.0.0")

	refs, err := LsRemoteTags(ctx, repo.URL())
	require.NoError(t, err)
	require.Len(t, refs, 2)

	names := map[string]bool{}
	for _, r := range refs {
		names[r.Name] = true
	}
	assert.True(t, names["v1.0.0"])
	assert.True(t, names["v2.0.0"])
}

func TestWorktreeAddAndLsTree(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("agents/a.md", "# a")
	repo.WriteFile("agents/sub/b.md", "# b")
	sha := repo.Commit("initial")

	bareDir := filepath.Join(t.TempDir(), "bare.git")
	require.NoError(t, CloneBare(ctx, repo.URL(), bareDir))

	paths, err := LsTree(ctx, repo.URL(), bareDir, sha)
	require.NoError(t, err)
	assert.Contains(t, paths, "agents/a.md")
	assert.Contains(t, paths, "agents/sub/b.md")

	worktreeDir := filepath.Join(t.TempDir(), "wt")
	require.NoError(t, WorktreeAdd(ctx, repo.URL(), bareDir, worktreeDir, sha))
	require.NoError(t, WorktreeRemove(ctx, repo.URL(), bareDir, worktreeDir))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "authentication failed", classify("fatal: Authentication failed for 'https://example.com/repo.git'"))
	assert.Equal(t, "network error", classify("fatal: unable to access: Could not resolve host: example.com"))
	assert.Equal(t, "ref not found", classify("fatal: couldn't find remote ref refs/tags/v9.9.9"))
	assert.Equal(t, "repository not found", classify("remote: Repository not found."))
	assert.Equal(t, "worktree conflict", classify("fatal: 'abc123' is already checked out at '/cache/worktrees/community/abc123'"))
	assert.Equal(t, "git command failed", classify("fatal: something else entirely"))
}

func TestRevParseUnknownRefIsClassifiedError(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("agents/a.md", "# a")
	repo.Commit("initial")

	bareDir := filepath.Join(t.TempDir(), "bare.git")
	require.NoError(t, CloneBare(ctx, repo.URL(), bareDir))

	_, err := RevParse(ctx, repo.URL(), bareDir, "does-not-exist")
	require.Error(t, err)
}
