package transitive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResource = `---
dependencies:
  - path: snippets/helper.md
  - source: other
    path: agents/base.md
    version: ^1.0.0
---
# Reviewer agent

Body content here.
`

func TestExtractFrontmatterParsesDependencies(t *testing.T) {
	fm, body, err := ExtractFrontmatter(sampleResource)
	require.NoError(t, err)
	require.Len(t, fm.Dependencies, 2)
	assert.Equal(t, "snippets/helper.md", fm.Dependencies[0].Path)
	assert.Equal(t, "", fm.Dependencies[0].Source)
	assert.Equal(t, "other", fm.Dependencies[1].Source)
	assert.Equal(t, "^1.0.0", fm.Dependencies[1].Version)
	assert.Contains(t, body, "# Reviewer agent")
}

func TestExtractFrontmatterNoBlock(t *testing.T) {
	fm, body, err := ExtractFrontmatter("# Just a body\n")
	require.NoError(t, err)
	assert.Empty(t, fm.Dependencies)
	assert.Equal(t, "# Just a body\n", body)
}

func TestExtractFrontmatterUnterminatedIsError(t *testing.T) {
	_, _, err := ExtractFrontmatter("---\ndependencies: []\n# no closing delimiter\n")
	require.Error(t, err)
}

func TestExpandGlobLiteralPathPassesThrough(t *testing.T) {
	matches, err := ExpandGlob("agents/a.md", []string{"agents/a.md", "agents/b.md"})
	require.NoError(t, err)
	assert.Equal(t, []string{"agents/a.md"}, matches)
}

func TestExpandGlobWildcard(t *testing.T) {
	tree := []string{"agents/a.md", "agents/b.md", "snippets/c.md"}
	matches, err := ExpandGlob("agents/*.md", tree)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"agents/a.md", "agents/b.md"}, matches)
}

func TestExpandGlobDoubleStar(t *testing.T) {
	tree := []string{"agents/nested/a.md", "agents/b.md", "snippets/c.md"}
	matches, err := ExpandGlob("agents/**/*.md", tree)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"agents/nested/a.md"}, matches)
}

func TestDetectCycleFindsLoop(t *testing.T) {
	edges := []Edge{
		{ParentResourceID: "a", ChildResourceID: "b"},
		{ParentResourceID: "b", ChildResourceID: "c"},
		{ParentResourceID: "c", ChildResourceID: "a"},
	}
	err := DetectCycle(edges)
	require.NotNil(t, err)
	assert.Contains(t, err.Cycle, "a")
}

func TestDetectCycleAcyclic(t *testing.T) {
	edges := []Edge{
		{ParentResourceID: "a", ChildResourceID: "b"},
		{ParentResourceID: "b", ChildResourceID: "c"},
	}
	assert.Nil(t, DetectCycle(edges))
}

func TestResourceID(t *testing.T) {
	assert.Equal(t, "agents:community/agents/a.md@claude-code", ResourceID("agents", "community", "agents/a.md", ""))
	assert.Equal(t, "local:agents:agents/a.md@claude-code", ResourceID("agents", "", "agents/a.md", ""))
}

// TestResourceIDDistinguishesTypeAndTool guards against two different
// resource types or two different target tools at the same source/path
// colliding into one identity (spec.md §3's resource_id tuple includes
// resource_type and tool alongside source and canonical_name).
func TestResourceIDDistinguishesTypeAndTool(t *testing.T) {
	assert.NotEqual(t,
		ResourceID("agents", "community", "foo.md", ""),
		ResourceID("commands", "community", "foo.md", ""),
	)
	assert.NotEqual(t,
		ResourceID("agents", "community", "foo.md", "claude-code"),
		ResourceID("agents", "community", "foo.md", "cursor"),
	)
}
