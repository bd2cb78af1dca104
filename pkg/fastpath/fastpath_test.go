package fastpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aig787/agpm/pkg/lockfile"
	"github.com/aig787/agpm/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(`
[sources]
s = "https://example.com/repo.git"
[agents]
a = { source = "s", path = "agents/a.md", version = "v1.0.0" }
`), "agpm.toml")
	require.NoError(t, err)
	return m
}

func TestDetectColdWhenNoLockfile(t *testing.T) {
	tier, err := Detect(testManifest(t), nil, t.TempDir(), false)
	require.NoError(t, err)
	assert.Equal(t, Cold, tier)
}

func TestDetectColdWhenFingerprintMismatches(t *testing.T) {
	m := testManifest(t)
	lf := lockfile.New("sha256:deadbeef")
	tier, err := Detect(m, lf, t.TempDir(), false)
	require.NoError(t, err)
	assert.Equal(t, Cold, tier)
}

func TestDetectUltraFastWhenEverythingPresent(t *testing.T) {
	m := testManifest(t)
	fp, err := m.Fingerprint()
	require.NoError(t, err)
	lf := lockfile.New(fp)
	lf.SetEntries("agents", []lockfile.Entry{{Alias: "a", InstallTargetPath: "claude-code/agents/a.md", ContentHash: "sha256:x"}})

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "claude-code/agents"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "claude-code/agents/a.md"), []byte("hi"), 0o644))

	tier, err := Detect(m, lf, root, false)
	require.NoError(t, err)
	assert.Equal(t, UltraFast, tier)
}

func TestDetectFastWhenFileMissing(t *testing.T) {
	m := testManifest(t)
	fp, err := m.Fingerprint()
	require.NoError(t, err)
	lf := lockfile.New(fp)
	lf.SetEntries("agents", []lockfile.Entry{{Alias: "a", InstallTargetPath: "claude-code/agents/a.md", ContentHash: "sha256:x"}})

	tier, err := Detect(m, lf, t.TempDir(), false)
	require.NoError(t, err)
	assert.Equal(t, Fast, tier)
}

func TestDetectFastWhenMutableDepsEvenIfFilesPresent(t *testing.T) {
	m := testManifest(t)
	fp, err := m.Fingerprint()
	require.NoError(t, err)
	lf := lockfile.New(fp)
	lf.MutableDeps = true
	lf.SetEntries("agents", []lockfile.Entry{{Alias: "a", InstallTargetPath: "claude-code/agents/a.md", ContentHash: "sha256:x"}})
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "claude-code/agents"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "claude-code/agents/a.md"), []byte("hi"), 0o644))

	tier, err := Detect(m, lf, root, false)
	require.NoError(t, err)
	assert.Equal(t, Fast, tier)
}

func TestDetectFrozenMismatchFails(t *testing.T) {
	m := testManifest(t)
	fp, err := m.Fingerprint()
	require.NoError(t, err)
	lf := lockfile.New(fp)
	lf.SetEntries("agents", []lockfile.Entry{{Alias: "a", Source: "s", URL: "https://old.example.com/repo.git", InstallTargetPath: "claude-code/agents/a.md"}})

	_, err = Detect(m, lf, t.TempDir(), true)
	require.Error(t, err)
}

// TestDetectFrozenMismatchFailsEvenWhenFingerprintAlsoMismatches guards
// against the guard being bypassed by an unrelated fingerprint check: a
// manifest whose [sources] URL changed since the lockfile was generated has
// both a stale fingerprint *and* a frozen violation, and --frozen must
// report the source mismatch rather than silently falling through to a cold
// re-resolve because the fingerprint check would have returned Cold first.
func TestDetectFrozenMismatchFailsEvenWhenFingerprintAlsoMismatches(t *testing.T) {
	m := testManifest(t)
	lf := lockfile.New("sha256:stale-fingerprint-from-before-the-source-url-changed")
	lf.SetEntries("agents", []lockfile.Entry{{Alias: "a", Source: "s", URL: "https://old.example.com/repo.git", InstallTargetPath: "claude-code/agents/a.md"}})

	_, err := Detect(m, lf, t.TempDir(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source")
}
