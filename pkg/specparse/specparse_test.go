package specparse

import (
	"testing"

	"github.com/aig787/agpm/pkg/toolconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourcePathVersion(t *testing.T) {
	s, err := Parse("community:agents/reviewer.md@^1.2")
	require.NoError(t, err)
	assert.Equal(t, "community", s.SourceName)
	assert.Equal(t, "agents/reviewer.md", s.Path)
	assert.Equal(t, "^1.2", s.Version)
	assert.False(t, s.Local)

	dep := s.Dependency()
	assert.Equal(t, "community", dep.Source)
	assert.Equal(t, "^1.2", dep.Version)
	assert.Empty(t, dep.Branch)
	assert.Empty(t, dep.Rev)
}

func TestParseSourcePathNoVersion(t *testing.T) {
	s, err := Parse("community:agents/reviewer.md")
	require.NoError(t, err)
	assert.Equal(t, "community", s.SourceName)
	assert.Equal(t, "agents/reviewer.md", s.Path)
	assert.Empty(t, s.Version)
}

func TestParseFilePrefix(t *testing.T) {
	s, err := Parse("file:./local-agents/reviewer.md")
	require.NoError(t, err)
	assert.True(t, s.Local)
	assert.Equal(t, "./local-agents/reviewer.md", s.Path)
	assert.Empty(t, s.SourceName)

	dep := s.Dependency()
	assert.True(t, dep.IsLocal())
}

func TestParseBarePath(t *testing.T) {
	s, err := Parse("./local-agents/reviewer.md")
	require.NoError(t, err)
	assert.True(t, s.Local)
	assert.Equal(t, "./local-agents/reviewer.md", s.Path)
}

func TestParseBranchVersion(t *testing.T) {
	s, err := Parse("community:agents/reviewer.md@dev")
	require.NoError(t, err)
	dep := s.Dependency()
	assert.Equal(t, "dev", dep.Branch)
	assert.Empty(t, dep.Version)
}

func TestParseRevVersion(t *testing.T) {
	sha := "abcdef01234567"
	s, err := Parse("community:agents/reviewer.md@" + sha)
	require.NoError(t, err)
	dep := s.Dependency()
	assert.Equal(t, sha, dep.Rev)
}

func TestParseGitHubBlobURL(t *testing.T) {
	s, err := Parse("https://github.com/acme/widgets/blob/main/agents/reviewer.md")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widgets.git", s.SourceURL)
	assert.Equal(t, "agents/reviewer.md", s.Path)
	assert.Equal(t, "main", s.Version)
}

func TestParseRawGitHubURLWithRefsHeads(t *testing.T) {
	s, err := Parse("https://raw.githubusercontent.com/acme/widgets/refs/heads/dev/agents/reviewer.md")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widgets.git", s.SourceURL)
	assert.Equal(t, "agents/reviewer.md", s.Path)
	assert.Equal(t, "dev", s.Version)
}

func TestParseRawGitHubURLWithCommitSHA(t *testing.T) {
	sha := "0123456789abcdef0123456789abcdef01234567"
	s, err := Parse("https://raw.githubusercontent.com/acme/widgets/" + sha + "/agents/reviewer.md")
	require.NoError(t, err)
	assert.Equal(t, sha, s.Version)
	assert.Equal(t, "agents/reviewer.md", s.Path)
}

func TestParseRejectsNonGitHubHost(t *testing.T) {
	_, err := Parse("https://example.com/acme/widgets/blob/main/agents/reviewer.md")
	assert.Error(t, err)
}

func TestParseRejectsEmptySpec(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)
}

func TestAlias(t *testing.T) {
	s, err := Parse("community:agents/reviewer.md")
	require.NoError(t, err)
	assert.Equal(t, "reviewer", s.Alias())
}

func TestInferResourceType(t *testing.T) {
	s, err := Parse("community:snippets/helper.md")
	require.NoError(t, err)
	rt, ok := s.InferResourceType()
	require.True(t, ok)
	assert.Equal(t, toolconfig.Snippets, rt)
}

func TestInferResourceTypeUnknownPrefix(t *testing.T) {
	s, err := Parse("community:misc/helper.md")
	require.NoError(t, err)
	_, ok := s.InferResourceType()
	assert.False(t, ok)
}
