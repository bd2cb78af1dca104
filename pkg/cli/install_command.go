package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aig787/agpm/pkg/console"
	"github.com/aig787/agpm/pkg/fastpath"
	"github.com/aig787/agpm/pkg/gitignore"
	"github.com/aig787/agpm/pkg/installer"
	"github.com/aig787/agpm/pkg/lockfile"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/aig787/agpm/pkg/manifest"
	"github.com/aig787/agpm/pkg/orchestrator"
	"github.com/aig787/agpm/pkg/toolconfig"
	"github.com/spf13/cobra"
)

var installCommandLog = logger.New("cli:install_command")

// NewInstallCommand builds "agpm install" (spec.md §6: "resolve if needed,
// install, update .gitignore; --frozen, --no-cache, --quiet, --verbose").
func NewInstallCommand() *cobra.Command {
	var gf globalFlags
	var frozen, noCache bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Resolve and install dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, &gf, frozen, noCache)
		},
	}
	addGlobalFlags(cmd, &gf)
	cmd.Flags().BoolVar(&frozen, "frozen", false, "fail if a source URL differs from the one recorded in the lockfile")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the fast-path detector and always re-resolve")
	return cmd
}

// runInstall implements the fast-path-gated install pipeline shared by
// "install" and "update" (spec.md §4.10 C10, §4.9 C9, §4.11 C11).
func runInstall(cmd *cobra.Command, gf *globalFlags, frozen, noCache bool) error {
	ctx := cmdContext(cmd, gf)

	m, projectRoot, err := loadProject(gf)
	if err != nil {
		return err
	}

	lfPath := lockfilePath(projectRoot)
	var previous *lockfile.Lockfile
	if existing, err := lockfile.Load(lfPath); err == nil {
		previous = existing
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	tier := fastpath.Cold
	if previous != nil && !noCache {
		tier, err = fastpath.Detect(m, previous, projectRoot, frozen)
		if err != nil {
			return err
		}
	} else if frozen && previous == nil {
		return fmt.Errorf("--frozen requires an existing %s", lfPath)
	}

	installCommandLog.Printf("fast-path tier: %s", tier)

	if tier == fastpath.UltraFast {
		fmt.Fprintln(os.Stdout, console.FormatSuccessMessage("already up to date"))
		return nil
	}

	lf := previous
	var resolvedTools map[string]toolconfig.ToolConfig
	var previousEntries []lockfile.Entry
	if tier == fastpath.Cold {
		pool, err := cachePool()
		if err != nil {
			return err
		}
		sp := console.NewSpinner("resolving dependencies")
		sp.Start()
		result, err := orchestrator.Resolve(ctx, m, projectRoot, pool, orchestrator.Options{})
		if err != nil {
			sp.Stop(console.FormatErrorMessage("resolution failed"))
			return err
		}
		sp.Stop(console.FormatSuccessMessage("dependencies resolved"))
		lf = result.Lockfile
		resolvedTools = result.Tools
		if err := lf.Save(lfPath); err != nil {
			return err
		}
		if previous != nil {
			previousEntries = previous.AllEntries()
		}
	} else {
		resolvedTools = effectiveToolsFor(m, lf)
		previousEntries = previous.AllEntries()
	}

	return installResolved(ctx, m, projectRoot, lf, resolvedTools, previousEntries)
}

// installResolved runs the installer against an already-resolved lockfile
// and updates .gitignore, shared by install's fast-path reuse and update's
// post-resolve reinstall so neither has to re-run Resolve.
func installResolved(ctx context.Context, m *manifest.Manifest, projectRoot string, lf *lockfile.Lockfile, tools map[string]toolconfig.ToolConfig, previousEntries []lockfile.Entry) error {
	pool, err := cachePool()
	if err != nil {
		return err
	}

	sp := console.NewSpinner(fmt.Sprintf("installing %d resources", len(lf.AllEntries())))
	sp.Start()
	outcome, err := installer.Install(ctx, installer.Plan{
		ProjectRoot: projectRoot,
		Tools:       tools,
		Entries:     lf.AllEntries(),
		Previous:    previousEntries,
		Content:     orchestrator.ContentFunc(pool, projectRoot),
	})
	if err != nil {
		sp.Stop(console.FormatErrorMessage("install failed"))
		return err
	}
	sp.Stop(console.FormatSuccessMessage("install complete"))
	for _, e := range outcome.Errors {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(e.Error()))
	}

	if m.Target.Gitignore {
		installed := make([]string, 0, len(lf.AllEntries()))
		for _, e := range lf.AllEntries() {
			installed = append(installed, e.InstallTargetPath)
		}
		if err := gitignore.Update(projectRoot, installed); err != nil {
			return err
		}
	}

	installCommandLog.Printf("installed %d, skipped %d, removed %d", len(outcome.Written), len(outcome.Skipped), len(outcome.Removed))
	fmt.Fprintln(os.Stdout, console.FormatSuccessMessage(fmt.Sprintf("installed %d, skipped %d, removed %d", len(outcome.Written), len(outcome.Skipped), len(outcome.Removed))))
	if len(outcome.Errors) > 0 {
		return fmt.Errorf("%d install error(s)", len(outcome.Errors))
	}
	return nil
}

// effectiveToolsFor rebuilds the tool-config map from the manifest alone,
// used when the fast path reuses an existing lockfile without re-resolving
// (resolved tool configs aren't persisted in the lockfile itself).
func effectiveToolsFor(m *manifest.Manifest, lf *lockfile.Lockfile) map[string]toolconfig.ToolConfig {
	names := map[string]bool{}
	for _, e := range lf.AllEntries() {
		names[e.Tool] = true
	}
	out := map[string]toolconfig.ToolConfig{}
	for name := range names {
		out[name] = m.EffectiveToolConfig(name)
	}
	return out
}
