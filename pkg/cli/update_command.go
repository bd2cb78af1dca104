package cli

import (
	"fmt"
	"os"

	"github.com/aig787/agpm/pkg/console"
	"github.com/aig787/agpm/pkg/lockfile"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/aig787/agpm/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var updateCommandLog = logger.New("cli:update_command")

// NewUpdateCommand builds "agpm update [names...]" (spec.md §6: re-resolve
// mutable dependencies and reinstall; --dry-run/--check report without
// writing; --force re-resolves everything, not just mutable deps; --backup
// preserves the previous lockfile if the new resolution fails installation).
func NewUpdateCommand() *cobra.Command {
	var gf globalFlags
	var dryRun, check, force, backup bool

	cmd := &cobra.Command{
		Use:   "update [names...]",
		Short: "Re-resolve and reinstall dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, &gf, args, dryRun || check, force, backup)
		},
	}
	addGlobalFlags(cmd, &gf)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVar(&check, "check", false, "alias for --dry-run")
	cmd.Flags().BoolVar(&force, "force", false, "re-resolve every dependency, not just mutable ones")
	cmd.Flags().BoolVar(&backup, "backup", false, "keep a copy of the previous lockfile, restored if install fails")
	return cmd
}

func runUpdate(cmd *cobra.Command, gf *globalFlags, names []string, dryRun, force, backup bool) error {
	ctx := cmdContext(cmd, gf)

	m, projectRoot, err := loadProject(gf)
	if err != nil {
		return err
	}
	lfPath := lockfilePath(projectRoot)

	previous, err := lockfile.Load(lfPath)
	if err != nil {
		return fmt.Errorf("update requires an existing lockfile: %w", err)
	}

	if !force && len(names) == 0 && !previous.MutableDeps {
		fmt.Fprintln(os.Stdout, console.FormatInfoMessage("no mutable dependencies to update"))
		return nil
	}

	pool, err := cachePool()
	if err != nil {
		return err
	}
	sp := console.NewSpinner("re-resolving dependencies")
	sp.Start()
	result, err := orchestrator.Resolve(ctx, m, projectRoot, pool, orchestrator.Options{})
	if err != nil {
		sp.Stop(console.FormatErrorMessage("resolution failed"))
		return err
	}
	sp.Stop(console.FormatSuccessMessage("dependencies resolved"))

	changed := diffEntries(previous.AllEntries(), result.Lockfile.AllEntries(), names)
	if len(changed) == 0 {
		fmt.Fprintln(os.Stdout, console.FormatInfoMessage("everything is up to date"))
		return nil
	}

	for _, c := range changed {
		fmt.Fprintln(os.Stdout, console.FormatInfoMessage(c))
	}
	if dryRun {
		return nil
	}

	var backupPath string
	if backup {
		backupPath = lfPath + ".bak"
		if err := previous.Save(backupPath); err != nil {
			return err
		}
	}

	if err := result.Lockfile.Save(lfPath); err != nil {
		return err
	}

	if err := installResolved(ctx, m, projectRoot, result.Lockfile, result.Tools, previous.AllEntries()); err != nil {
		if backup {
			updateCommandLog.Printf("install failed, restoring lockfile backup from %s", backupPath)
			if restoreErr := previous.Save(lfPath); restoreErr != nil {
				return fmt.Errorf("install failed (%v) and restoring the previous lockfile also failed: %w", err, restoreErr)
			}
		}
		return err
	}

	if backup {
		os.Remove(backupPath)
	}

	updateCommandLog.Printf("updated %d dependencies", len(changed))
	fmt.Fprintln(os.Stdout, console.FormatSuccessMessage(fmt.Sprintf("updated %d dependencies", len(changed))))
	return nil
}

// diffEntries reports which resolved versions changed between the previous
// and freshly-resolved lockfile, restricted to names if non-empty.
func diffEntries(previous, next []lockfile.Entry, names []string) []string {
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	prevByAlias := map[string]lockfile.Entry{}
	for _, e := range previous {
		prevByAlias[e.Alias] = e
	}

	var changed []string
	for _, e := range next {
		if len(want) > 0 && !want[e.Alias] {
			continue
		}
		old, existed := prevByAlias[e.Alias]
		switch {
		case !existed:
			changed = append(changed, fmt.Sprintf("%s: added at %s", e.Alias, shortVersion(e)))
		case old.SHA != e.SHA || old.ResolvedVersion != e.ResolvedVersion:
			changed = append(changed, fmt.Sprintf("%s: %s -> %s", e.Alias, shortVersion(old), shortVersion(e)))
		}
	}
	return changed
}

func shortVersion(e lockfile.Entry) string {
	if e.ResolvedVersion != "" {
		return e.ResolvedVersion
	}
	if len(e.SHA) >= 7 {
		return e.SHA[:7]
	}
	return e.SHA
}
