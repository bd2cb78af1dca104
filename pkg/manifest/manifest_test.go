package manifest

import (
	"strings"
	"testing"

	"github.com/aig787/agpm/pkg/toolconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
[sources]
community = "https://github.com/example/community.git"

[target]
gitignore = true

[tools.claude-code]
path = ".claude"

[agents]
reviewer = { source = "community", path = "agents/reviewer.md", version = "^1.0.0" }
local-helper = "local/helper.md"

[hooks]
pre-commit = { source = "community", path = "hooks/pre-commit.md", branch = "main" }
`

func TestParseSimpleAndDetailedForms(t *testing.T) {
	m, err := Parse([]byte(sampleManifest), "agpm.toml")
	require.NoError(t, err)

	require.Contains(t, m.Agents, "reviewer")
	reviewer := m.Agents["reviewer"]
	assert.Equal(t, "community", reviewer.Source)
	assert.Equal(t, "agents/reviewer.md", reviewer.Path)
	assert.False(t, reviewer.IsLocal())
	value, kind := reviewer.VersionSpec()
	assert.Equal(t, "^1.0.0", value)
	assert.Equal(t, "version", kind)

	require.Contains(t, m.Agents, "local-helper")
	local := m.Agents["local-helper"]
	assert.Equal(t, "local/helper.md", local.Path)
	assert.True(t, local.IsLocal())
}

func TestValidateAcceptsSampleManifest(t *testing.T) {
	m, err := Parse([]byte(sampleManifest), "agpm.toml")
	require.NoError(t, err)
	require.NoError(t, m.Validate())
}

func TestValidateRejectsUndeclaredSource(t *testing.T) {
	m, err := Parse([]byte(`
[sources]
a = "https://example.com/a.git"

[agents]
x = { source = "missing", path = "agents/x.md", version = "1.0.0" }
`), "agpm.toml")
	require.NoError(t, err)
	err = m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared source")
}

func TestValidateRejectsConflictingVersionFields(t *testing.T) {
	m, err := Parse([]byte(`
[sources]
a = "https://example.com/a.git"

[agents]
x = { source = "a", path = "agents/x.md", version = "1.0.0", branch = "main" }
`), "agpm.toml")
	require.NoError(t, err)
	err = m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than one of version/branch/rev")
}

func TestValidateRejectsUnsupportedResourceTypeForTool(t *testing.T) {
	m, err := Parse([]byte(`
[sources]
a = "https://example.com/a.git"

[hooks]
x = { source = "a", path = "hooks/x.md", version = "1.0.0", tool = "opencode" }
`), "agpm.toml")
	require.NoError(t, err)
	err = m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support resource type")
}

func TestEffectiveToolConfigMergesOverride(t *testing.T) {
	m, err := Parse([]byte(`
[sources]
a = "https://example.com/a.git"

[tools.claude-code]
path = ".claude"

[tools.claude-code.agents]
target = "custom-agents"
`), "agpm.toml")
	require.NoError(t, err)
	tc := m.EffectiveToolConfig("claude-code")
	assert.Equal(t, "custom-agents", tc.Layouts[toolconfig.Agents].Target)
	assert.Equal(t, "snippets", tc.Layouts[toolconfig.Snippets].Target)
}

func TestFingerprintStableAcrossFormatting(t *testing.T) {
	m1, err := Parse([]byte(sampleManifest), "agpm.toml")
	require.NoError(t, err)
	m2, err := Parse([]byte(strings.ReplaceAll(sampleManifest, "\n\n", "\n")), "agpm.toml")
	require.NoError(t, err)

	f1, err := m1.Fingerprint()
	require.NoError(t, err)
	f2, err := m2.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
	assert.True(t, strings.HasPrefix(f1, "sha256:"))
}

func TestFingerprintChangesOnSemanticEdit(t *testing.T) {
	m1, err := Parse([]byte(sampleManifest), "agpm.toml")
	require.NoError(t, err)
	m2, err := Parse([]byte(strings.Replace(sampleManifest, "^1.0.0", "^2.0.0", 1)), "agpm.toml")
	require.NoError(t, err)

	f1, err := m1.Fingerprint()
	require.NoError(t, err)
	f2, err := m2.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, f1, f2)
}
