package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aig787/agpm/pkg/console"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/spf13/cobra"
)

var initCommandLog = logger.New("cli:init_command")

const templateManifest = `[sources]

[target]
gitignore = true

[tools.claude-code]
path = ".claude"

[agents]

[snippets]

[commands]

[hooks]

[mcp-servers]

[scripts]
`

// NewInitCommand builds "agpm init" (spec.md §6: "write a template
// manifest; --force to overwrite; --path DIR").
func NewInitCommand() *cobra.Command {
	var force bool
	var dir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a template project manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = wd
			}
			path := filepath.Join(dir, defaultManifestName)
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(templateManifest), 0o644); err != nil {
				return err
			}
			initCommandLog.Printf("wrote template manifest to %s", path)
			fmt.Fprintln(os.Stdout, console.FormatSuccessMessage("wrote "+path))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing manifest")
	cmd.Flags().StringVar(&dir, "path", "", "directory to write the manifest into (default: current directory)")
	return cmd
}
