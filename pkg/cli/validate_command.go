package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aig787/agpm/pkg/console"
	"github.com/aig787/agpm/pkg/lockfile"
	"github.com/aig787/agpm/pkg/manifest"
	"github.com/aig787/agpm/pkg/orchestrator"
	"github.com/aig787/agpm/pkg/sourceutil"
	"github.com/spf13/cobra"
)

// validateIssue is one problem found while validating a project.
type validateIssue struct {
	Check   string `json:"check"`
	Message string `json:"message"`
}

// NewValidateCommand builds "agpm validate" (spec.md §6: check sources
// reachable, dependencies resolvable, install paths free of conflicts, and
// the lockfile consistent with the manifest).
func NewValidateCommand() *cobra.Command {
	var gf globalFlags
	var checkSources, resolve, checkPaths, checkLock, strict bool
	var format string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the project manifest and lockfile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, &gf, validateOpts{
				sources:  checkSources,
				resolve:  resolve,
				paths:    checkPaths,
				lockfile: checkLock,
				strict:   strict,
				format:   format,
			})
		},
	}
	addGlobalFlags(cmd, &gf)
	cmd.Flags().BoolVar(&checkSources, "sources", false, "check that every declared source is reachable")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "run a full dry-run resolution")
	cmd.Flags().BoolVar(&checkPaths, "paths", false, "check for install target path conflicts")
	cmd.Flags().BoolVar(&checkLock, "check-lock", false, "check the lockfile matches the manifest's fingerprint")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as failures")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json")
	return cmd
}

type validateOpts struct {
	sources, resolve, paths, lockfile, strict bool
	format                                     string
}

func runValidate(cmd *cobra.Command, gf *globalFlags, opts validateOpts) error {
	ctx := cmdContext(cmd, gf)
	m, projectRoot, err := loadProject(gf)
	if err != nil {
		return err
	}

	runAll := !opts.sources && !opts.resolve && !opts.paths && !opts.lockfile
	var issues []validateIssue

	if runAll || opts.sources {
		issues = append(issues, validateSources(m)...)
	}

	if runAll || opts.resolve || opts.paths {
		pool, err := cachePool()
		if err != nil {
			return err
		}
		if _, err := orchestrator.Resolve(ctx, m, projectRoot, pool, orchestrator.Options{}); err != nil {
			issues = append(issues, validateIssue{Check: "resolve", Message: err.Error()})
		}
	}

	if runAll || opts.lockfile {
		issues = append(issues, validateLockfileMatch(m, projectRoot)...)
	}

	return reportValidation(opts, issues)
}

func validateSources(m *manifest.Manifest) []validateIssue {
	var issues []validateIssue
	for name, url := range m.Sources {
		if sourceutil.IsLocal(url) {
			if _, err := os.Stat(sourceutil.LocalPath(url)); err != nil {
				issues = append(issues, validateIssue{Check: "sources", Message: fmt.Sprintf("source %q: local path unreachable: %v", name, err)})
			}
			continue
		}
		if sourceutil.DetectScheme(url) == sourceutil.SchemeUnknown {
			issues = append(issues, validateIssue{Check: "sources", Message: fmt.Sprintf("source %q: unrecognized URL scheme %q", name, url)})
		}
	}
	return issues
}

func validateLockfileMatch(m *manifest.Manifest, projectRoot string) []validateIssue {
	var issues []validateIssue
	lf, err := lockfile.Load(lockfilePath(projectRoot))
	if err != nil {
		issues = append(issues, validateIssue{Check: "check-lock", Message: err.Error()})
		return issues
	}
	fp, err := m.Fingerprint()
	if err != nil {
		issues = append(issues, validateIssue{Check: "check-lock", Message: err.Error()})
		return issues
	}
	if fp != lf.ManifestHash {
		issues = append(issues, validateIssue{Check: "check-lock", Message: "lockfile is stale: manifest has changed since it was generated"})
	}
	return issues
}

func reportValidation(opts validateOpts, issues []validateIssue) error {
	if opts.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(issues); err != nil {
			return err
		}
	} else if len(issues) == 0 {
		fmt.Fprintln(os.Stdout, console.FormatSuccessMessage("no problems found"))
	} else {
		for _, i := range issues {
			fmt.Fprintln(os.Stdout, console.FormatWarningMessage(fmt.Sprintf("[%s] %s", i.Check, i.Message)))
		}
	}

	if len(issues) > 0 && opts.strict {
		return fmt.Errorf("%d validation issue(s) found", len(issues))
	}
	if len(issues) > 0 {
		for _, i := range issues {
			if i.Check == "resolve" || i.Check == "check-lock" {
				return fmt.Errorf("%d validation issue(s) found", len(issues))
			}
		}
	}
	return nil
}
