package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/aig787/agpm/pkg/config"
	"github.com/aig787/agpm/pkg/console"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/spf13/cobra"
)

var configCommandLog = logger.New("cli:config_command")

// NewConfigCommand builds "agpm config" (spec.md §6: init, show, edit,
// add-source, remove-source, list-sources, path — the global-config
// counterpart to "add source", scoped to user-level source overrides and
// auth tokens rather than the project manifest).
func NewConfigCommand() *cobra.Command {
	var gf globalFlags
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the global agpm configuration",
	}
	cmd.AddCommand(newConfigInitCommand(&gf))
	cmd.AddCommand(newConfigShowCommand(&gf))
	cmd.AddCommand(newConfigEditCommand(&gf))
	cmd.AddCommand(newConfigAddSourceCommand(&gf))
	cmd.AddCommand(newConfigRemoveSourceCommand(&gf))
	cmd.AddCommand(newConfigListSourcesCommand(&gf))
	cmd.AddCommand(newConfigPathCommand(&gf))
	for _, sub := range cmd.Commands() {
		addGlobalFlags(sub, &gf)
	}
	return cmd
}

func newConfigInitCommand(gf *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a template global config",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := gf.resolveConfigPath()
			if err != nil {
				return err
			}
			if err := config.Init(path, force); err != nil {
				return err
			}
			configCommandLog.Printf("wrote global config to %s", path)
			fmt.Fprintln(os.Stdout, console.FormatSuccessMessage("wrote "+path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func newConfigShowCommand(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the global config with tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(gf)
			if err != nil {
				return err
			}
			for _, name := range c.SourceNames() {
				src := c.Sources[name]
				fmt.Fprintf(os.Stdout, "%s = %s", name, config.MaskedURL(src.URL))
				if masked := config.MaskedToken(src.Token); masked != "" {
					fmt.Fprintf(os.Stdout, " (token: %s)", masked)
				}
				fmt.Fprintln(os.Stdout)
			}
			return nil
		},
	}
}

func newConfigEditCommand(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open the global config in $EDITOR",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := gf.resolveConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := config.Init(path, false); err != nil {
					return err
				}
			}
			editor := os.Getenv("EDITOR")
			if editor == "" {
				editor = "vi"
			}
			editCmd := exec.Command(editor, path)
			editCmd.Stdin = os.Stdin
			editCmd.Stdout = os.Stdout
			editCmd.Stderr = os.Stderr
			return editCmd.Run()
		},
	}
}

func newConfigAddSourceCommand(gf *globalFlags) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "add-source NAME URL",
		Short: "Register a source override in the global config",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(gf)
			if err != nil {
				return err
			}
			if err := c.AddSource(args[0], args[1], token); err != nil {
				return err
			}
			if err := c.Save(); err != nil {
				return err
			}
			configCommandLog.Printf("added global source %s", args[0])
			fmt.Fprintln(os.Stdout, console.FormatSuccessMessage(fmt.Sprintf("added source %q", args[0])))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token to use when fetching this source")
	return cmd
}

func newConfigRemoveSourceCommand(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-source NAME",
		Short: "Remove a source override from the global config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(gf)
			if err != nil {
				return err
			}
			if err := c.RemoveSource(args[0]); err != nil {
				return err
			}
			if err := c.Save(); err != nil {
				return err
			}
			configCommandLog.Printf("removed global source %s", args[0])
			fmt.Fprintln(os.Stdout, console.FormatSuccessMessage(fmt.Sprintf("removed source %q", args[0])))
			return nil
		},
	}
}

func newConfigListSourcesCommand(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list-sources",
		Short: "List source overrides with tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(gf)
			if err != nil {
				return err
			}
			for _, name := range c.SourceNames() {
				fmt.Fprintln(os.Stdout, name)
			}
			return nil
		},
	}
}

func newConfigPathCommand(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the global config file's path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := gf.resolveConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, path)
			return nil
		},
	}
}

func loadConfig(gf *globalFlags) (*config.Config, error) {
	path, err := gf.resolveConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}
