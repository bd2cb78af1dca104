// Package cli wires the resolution/installation pipeline (pkg/orchestrator,
// pkg/installer, pkg/fastpath, pkg/gitignore) into the cobra command surface
// named in spec.md §6, in the teacher's own style of one NewXCommand
// constructor per command (cmd/gh-aw/main.go, pkg/cli/init_command.go).
package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aig787/agpm/pkg/cache"
	"github.com/aig787/agpm/pkg/config"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/aig787/agpm/pkg/manifest"
	"github.com/spf13/cobra"
)

var log = logger.New("cli")

const (
	defaultManifestName = "agpm.toml"
	defaultLockfileName = "agpm.lock"
	// EnvCacheDir overrides the default cache root (spec.md §6 "Persisted state").
	EnvCacheDir = "AGPM_CACHE_DIR"
	// EnvNoProgress suppresses progress UI.
	EnvNoProgress = "AGPM_NO_PROGRESS"
)

// globalFlags holds the flags declared on every command (spec.md §6 "Global
// flags on every command").
type globalFlags struct {
	verbose      bool
	quiet        bool
	noProgress   bool
	configPath   string
	manifestPath string
}

func addGlobalFlags(cmd *cobra.Command, gf *globalFlags) {
	cmd.Flags().BoolVarP(&gf.verbose, "verbose", "v", false, "enable verbose output")
	cmd.Flags().BoolVarP(&gf.quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.Flags().BoolVar(&gf.noProgress, "no-progress", os.Getenv(EnvNoProgress) == "1", "disable progress UI")
	cmd.Flags().StringVar(&gf.configPath, "config", "", "path to the global config file")
	cmd.Flags().StringVar(&gf.manifestPath, "manifest-path", "", "path to the project manifest")
}

// resolveManifestPath resolves the effective manifest path: the --manifest-path
// flag if set, otherwise "./agpm.toml" in the current directory.
func (gf *globalFlags) resolveManifestPath() (string, error) {
	if gf.manifestPath != "" {
		return gf.manifestPath, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, defaultManifestName), nil
}

func (gf *globalFlags) resolveConfigPath() (string, error) {
	if gf.configPath != "" {
		return gf.configPath, nil
	}
	return config.DefaultPath()
}

// cachePool builds the cache pool rooted at AGPM_CACHE_DIR, or
// "<user-cache>/agpm" by default.
func cachePool() (*cache.Pool, error) {
	dir := os.Getenv(EnvCacheDir)
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "agpm")
	}
	return cache.New(dir).WithBlobCache(cache.NewBlobCache(dir)), nil
}

// loadProject loads the manifest at gf's resolved path and its project root
// (the manifest's containing directory).
func loadProject(gf *globalFlags) (m *manifest.Manifest, projectRoot string, err error) {
	path, err := gf.resolveManifestPath()
	if err != nil {
		return nil, "", err
	}
	m, err = manifest.Load(path)
	if err != nil {
		return nil, "", err
	}
	return m, filepath.Dir(path), nil
}

// lockfilePath derives the lockfile path from a project root.
func lockfilePath(projectRoot string) string {
	return filepath.Join(projectRoot, defaultLockfileName)
}

// cmdContext bundles a command's background context, used for every
// operation that needs cancellation (spec.md §9 "coroutine/async control
// flow"), and applies gf's --verbose/--quiet flags to every namespaced
// logger for the remainder of the process: --verbose behaves like `DEBUG=*`
// without requiring the user to know the env var, --quiet silences debug
// output even if DEBUG is set in the environment.
func cmdContext(_ *cobra.Command, gf *globalFlags) context.Context {
	switch {
	case gf.quiet:
		logger.SetVerbose(false)
	case gf.verbose:
		logger.SetVerbose(true)
	}
	return context.Background()
}
