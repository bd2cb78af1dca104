package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/aig787/agpm/pkg/console"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/aig787/agpm/pkg/manifest"
	"github.com/aig787/agpm/pkg/specparse"
	"github.com/aig787/agpm/pkg/toolconfig"
	"github.com/spf13/cobra"
)

var addCommandLog = logger.New("cli:add_command")

// NewAddCommand builds "agpm add", the parent of "add source" and "add dep"
// (spec.md §6 CLI surface).
func NewAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a source or dependency to the manifest",
	}
	cmd.AddCommand(newAddSourceCommand())
	cmd.AddCommand(newAddDepCommand())
	return cmd
}

// newAddSourceCommand builds "add source NAME URL" (spec.md: "insert into
// [sources]; fail if name exists").
func newAddSourceCommand() *cobra.Command {
	var gf globalFlags
	cmd := &cobra.Command{
		Use:   "source NAME URL",
		Short: "Register a named source repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, url := args[0], args[1]
			path, err := gf.resolveManifestPath()
			if err != nil {
				return err
			}
			m, err := manifest.Load(path)
			if err != nil {
				return err
			}
			if _, exists := m.Sources[name]; exists {
				return fmt.Errorf("source %q already exists in %s", name, path)
			}
			if m.Sources == nil {
				m.Sources = map[string]string{}
			}
			m.Sources[name] = url
			if err := m.Save(path); err != nil {
				return err
			}
			addCommandLog.Printf("added source %s -> %s", name, url)
			fmt.Fprintln(os.Stdout, console.FormatSuccessMessage(fmt.Sprintf("added source %q", name)))
			return nil
		},
	}
	addGlobalFlags(cmd, &gf)
	return cmd
}

// newAddDepCommand builds "add dep SPEC [--agent|--snippet] [--name N]
// [--force]" (spec.md §6).
func newAddDepCommand() *cobra.Command {
	var gf globalFlags
	var isAgent, isSnippet, force bool
	var name string

	cmd := &cobra.Command{
		Use:   "dep SPEC",
		Short: "Add a dependency to the manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := specparse.Parse(args[0])
			if err != nil {
				return err
			}

			rt, err := resourceTypeFor(spec, isAgent, isSnippet)
			if err != nil {
				return err
			}

			alias := name
			if alias == "" {
				alias = spec.Alias()
			}

			path, err := gf.resolveManifestPath()
			if err != nil {
				return err
			}
			m, err := manifest.Load(path)
			if err != nil {
				return err
			}

			dep := spec.Dependency()
			if spec.SourceURL != "" {
				dep.Source = sourceNameForURL(m, spec.SourceURL)
				if m.Sources == nil {
					m.Sources = map[string]string{}
				}
				m.Sources[dep.Source] = spec.SourceURL
			}

			section := sectionFor(m, rt)
			if _, exists := section[alias]; exists && !force {
				return fmt.Errorf("dependency %q already exists (use --force to overwrite)", alias)
			}
			section[alias] = dep
			setSectionFor(m, rt, section)

			if err := m.Save(path); err != nil {
				return err
			}
			addCommandLog.Printf("added dependency %s (%s) to %s section", alias, dep.Path, rt)
			fmt.Fprintln(os.Stdout, console.FormatSuccessMessage(fmt.Sprintf("added %s %q", rt, alias)))
			return nil
		},
	}

	addGlobalFlags(cmd, &gf)
	cmd.Flags().BoolVar(&isAgent, "agent", false, "treat SPEC as an agent dependency")
	cmd.Flags().BoolVar(&isSnippet, "snippet", false, "treat SPEC as a snippet dependency")
	cmd.Flags().StringVar(&name, "name", "", "manifest alias (default: derived from the path)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing alias")
	return cmd
}

// resourceTypeFor picks the resource type from explicit flags first, then
// falls back to inferring it from the spec's path (spec.md: "Infers type
// from path if neither flag given").
func resourceTypeFor(spec *specparse.Spec, isAgent, isSnippet bool) (toolconfig.ResourceType, error) {
	switch {
	case isAgent:
		return toolconfig.Agents, nil
	case isSnippet:
		return toolconfig.Snippets, nil
	}
	if rt, ok := spec.InferResourceType(); ok {
		return rt, nil
	}
	return "", fmt.Errorf("cannot infer resource type from %q: pass --agent or --snippet", spec.Path)
}

// sourceNameForURL returns the existing [sources] key whose URL matches, or
// a freshly derived name (the repo slug's last path segment) if none match.
func sourceNameForURL(m *manifest.Manifest, url string) string {
	for name, existing := range m.Sources {
		if existing == url {
			return name
		}
	}
	trimmed := strings.TrimSuffix(url, ".git")
	parts := strings.Split(trimmed, "/")
	base := parts[len(parts)-1]
	name := base
	for i := 1; ; i++ {
		if _, exists := m.Sources[name]; !exists {
			return name
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
}

func sectionFor(m *manifest.Manifest, rt toolconfig.ResourceType) map[string]manifest.Dependency {
	sections := m.DependencySections()
	out := map[string]manifest.Dependency{}
	for k, v := range sections[rt] {
		out[k] = v
	}
	return out
}

func setSectionFor(m *manifest.Manifest, rt toolconfig.ResourceType, section map[string]manifest.Dependency) {
	switch rt {
	case toolconfig.Agents:
		m.Agents = section
	case toolconfig.Snippets:
		m.Snippets = section
	case toolconfig.Commands:
		m.Commands = section
	case toolconfig.Hooks:
		m.Hooks = section
	case toolconfig.MCPServers:
		m.MCPServers = section
	case toolconfig.Scripts:
		m.Scripts = section
	}
}
