package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/aig787/agpm/pkg/console"
	"github.com/aig787/agpm/pkg/lockfile"
	"github.com/aig787/agpm/pkg/sliceutil"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var validListFormats = []string{"table", "json", "yaml", "compact"}
var validSortKeys = []string{"name", "version", "source"}

// listRow is one rendered line of "agpm list" output, in every format.
type listRow struct {
	Alias   string `json:"alias" yaml:"alias" console:"header:Name"`
	Type    string `json:"type" yaml:"type" console:"header:Type"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty" console:"header:Source"`
	Version string `json:"version,omitempty" yaml:"version,omitempty" console:"header:Version"`
	Path    string `json:"path" yaml:"path" console:"header:Path"`
	Target  string `json:"install_target_path,omitempty" yaml:"install_target_path,omitempty" console:"-"`
}

// NewListCommand builds "agpm list" (spec.md §6: filter/sort/format the
// installed dependency set from the lockfile).
func NewListCommand() *cobra.Command {
	var gf globalFlags
	var format, source, rtype, search, sortBy string
	var showFiles, detailed bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List resolved dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(&gf, format, source, rtype, search, sortBy, showFiles, detailed)
		},
	}
	addGlobalFlags(cmd, &gf)
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json, yaml, compact")
	cmd.Flags().StringVar(&source, "source", "", "filter by source name")
	cmd.Flags().StringVar(&rtype, "type", "", "filter by resource type")
	cmd.Flags().StringVar(&search, "search", "", "filter by substring match on alias or path")
	cmd.Flags().StringVar(&sortBy, "sort", "name", "sort order: name, version, source")
	cmd.Flags().BoolVar(&showFiles, "files", false, "include the installed file path in output")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "add an install path column (filled in only with --files)")
	return cmd
}

func runList(gf *globalFlags, format, source, rtype, search, sortBy string, showFiles, detailed bool) error {
	if !sliceutil.Contains(validListFormats, format) {
		return fmt.Errorf("invalid --format %q: must be one of %v", format, validListFormats)
	}
	if !sliceutil.Contains(validSortKeys, sortBy) {
		return fmt.Errorf("invalid --sort %q: must be one of %v", sortBy, validSortKeys)
	}

	_, projectRoot, err := loadProject(gf)
	if err != nil {
		return err
	}
	lf, err := lockfile.Load(lockfilePath(projectRoot))
	if err != nil {
		return err
	}

	rows := buildListRows(lf, source, rtype, search, showFiles)
	sortListRows(rows, sortBy)

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		data, err := yaml.Marshal(rows)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "compact":
		for _, r := range rows {
			fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", r.Alias, r.Type, r.Version)
		}
		return nil
	default:
		return renderListTable(rows, detailed)
	}
}

func buildListRows(lf *lockfile.Lockfile, source, rtype, search string, showFiles bool) []listRow {
	var rows []listRow
	for rt, entries := range lf.Sections() {
		if rtype != "" && string(rt) != rtype {
			continue
		}
		for _, e := range *entries {
			if source != "" && e.Source != source {
				continue
			}
			if search != "" && !sliceutil.ContainsIgnoreCase(e.Alias, search) && !sliceutil.ContainsIgnoreCase(e.Path, search) {
				continue
			}
			row := listRow{
				Alias:   e.Alias,
				Type:    string(rt),
				Source:  e.Source,
				Version: e.ResolvedVersion,
				Path:    e.Path,
			}
			if row.Version == "" {
				row.Version = e.SHA
			}
			if showFiles {
				row.Target = e.InstallTargetPath
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func sortListRows(rows []listRow, sortBy string) {
	sort.Slice(rows, func(i, j int) bool {
		switch sortBy {
		case "version":
			return rows[i].Version < rows[j].Version
		case "source":
			if rows[i].Source != rows[j].Source {
				return rows[i].Source < rows[j].Source
			}
			return rows[i].Alias < rows[j].Alias
		default:
			return rows[i].Alias < rows[j].Alias
		}
	})
}

func renderListTable(rows []listRow, detailed bool) error {
	headers := []string{"Name", "Type", "Source", "Version", "Path"}
	var out [][]string
	for _, r := range rows {
		cells := []string{r.Alias, r.Type, r.Source, r.Version, r.Path}
		if detailed && r.Target != "" {
			cells = append(cells, r.Target)
		}
		out = append(out, cells)
	}
	if detailed {
		headers = append(headers, "Install Path")
	}
	fmt.Fprint(os.Stdout, console.RenderTable(console.TableConfig{Headers: headers, Rows: out}))
	return nil
}
