package gitignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateCreatesManagedBlock(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Update(root, []string{"claude-code/agents/b.md", "claude-code/agents/a.md"}))

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, startMarker)
	assert.Contains(t, content, endMarker)
	assert.Contains(t, content, "/claude-code/agents/a.md")
	assert.Contains(t, content, "/claude-code/agents/b.md")
}

func TestUpdatePreservesUnmanagedLines(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("node_modules/\n*.log\n"), 0o644))
	require.NoError(t, Update(root, []string{"claude-code/agents/a.md"}))

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "node_modules/")
	assert.Contains(t, content, "*.log")
	assert.Contains(t, content, "/claude-code/agents/a.md")
}

func TestUpdateIsIdempotent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("node_modules/\n"), 0o644))
	require.NoError(t, Update(root, []string{"claude-code/agents/a.md", "claude-code/agents/b.md"}))
	first, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)

	require.NoError(t, Update(root, []string{"claude-code/agents/a.md", "claude-code/agents/b.md"}))
	second, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestUpdateReplacesPreviousManagedBlock(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Update(root, []string{"claude-code/agents/a.md"}))
	require.NoError(t, Update(root, []string{"claude-code/agents/b.md"}))

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	content := string(data)
	assert.NotContains(t, content, "/claude-code/agents/a.md")
	assert.Contains(t, content, "/claude-code/agents/b.md")
}
