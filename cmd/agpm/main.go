package main

import (
	"fmt"
	"os"

	"github.com/aig787/agpm/pkg/cli"
	"github.com/aig787/agpm/pkg/console"
	"github.com/spf13/cobra"
)

// version is set by GoReleaser at build time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "agpm",
	Short:   "A Git-based package manager for AI coding assistant resources",
	Version: version,
	Long: `agpm installs and pins agent prompts, snippets, commands, hooks,
MCP server configs, and scripts from Git repositories into the layout your
AI coding assistant expects.

Common tasks:
  agpm init                      # write a template manifest
  agpm add source NAME URL       # register a source repository
  agpm add dep SPEC              # add a dependency
  agpm install                   # resolve and install
  agpm update                    # re-resolve mutable dependencies
  agpm list                      # show what's installed

For detailed help on any command, use:
  agpm [command] --help`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "pipeline", Title: "Resolution & Install Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "inspect", Title: "Inspection Commands:"})

	rootCmd.SetOut(os.Stderr)
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s\n", console.FormatInfoMessage("agpm version {{.Version}}")))

	initCmd := cli.NewInitCommand()
	addCmd := cli.NewAddCommand()
	installCmd := cli.NewInstallCommand()
	updateCmd := cli.NewUpdateCommand()
	listCmd := cli.NewListCommand()
	validateCmd := cli.NewValidateCommand()
	cacheCmd := cli.NewCacheCommand()
	configCmd := cli.NewConfigCommand()

	initCmd.GroupID = "setup"
	addCmd.GroupID = "setup"
	configCmd.GroupID = "setup"

	installCmd.GroupID = "pipeline"
	updateCmd.GroupID = "pipeline"

	listCmd.GroupID = "inspect"
	validateCmd.GroupID = "inspect"
	cacheCmd.GroupID = "inspect"

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(1)
	}
}
