package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aig787/agpm/pkg/console"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var cacheCommandLog = logger.New("cli:cache_command")

// NewCacheCommand builds "agpm cache", the parent of "cache info" and
// "cache clean" (spec.md §6).
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local source/blob cache",
	}
	cmd.AddCommand(newCacheInfoCommand())
	cmd.AddCommand(newCacheCleanCommand())
	return cmd
}

func newCacheInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the cache directory and its size",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return err
			}
			size, count, err := dirStats(dir)
			if err != nil && !os.IsNotExist(err) {
				return err
			}
			fmt.Fprintln(os.Stdout, console.FormatInfoMessage("cache directory: "+dir))
			fmt.Fprintln(os.Stdout, console.FormatInfoMessage(fmt.Sprintf("%s across %d files", console.FormatFileSize(size), count)))
			return nil
		},
	}
	return cmd
}

func newCacheCleanCommand() *cobra.Command {
	var all, yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove cached clones and blobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return err
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				fmt.Fprintln(os.Stdout, console.FormatInfoMessage("cache is already empty"))
				return nil
			}
			if !yes && isatty.IsTerminal(os.Stdin.Fd()) {
				confirmed, err := console.ConfirmAction(
					fmt.Sprintf("Remove the entire cache at %s?", dir), "Remove", "Cancel")
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(os.Stdout, console.FormatInfoMessage("cache clean cancelled"))
					return nil
				}
			}
			if err := os.RemoveAll(dir); err != nil {
				return err
			}
			cacheCommandLog.Printf("removed cache directory %s (all=%v)", dir, all)
			fmt.Fprintln(os.Stdout, console.FormatSuccessMessage("cache cleared"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", true, "remove the entire cache (the only supported mode)")
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func cacheDir() (string, error) {
	dir := os.Getenv(EnvCacheDir)
	if dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "agpm"), nil
}

func dirStats(dir string) (size int64, count int, err error) {
	err = filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			size += info.Size()
			count++
		}
		return nil
	})
	return size, count, err
}
