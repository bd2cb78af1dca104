// Package toolconfig carries the data-driven table of per-tool install
// layout (spec.md §3 "tools", §9 "Polymorphism over tools"). Tool-specific
// quirks — base directory, per-resource-type target subpath, JSON
// merge-target for hooks/MCP — live here, not in per-tool code paths; the
// installer (pkg/installer) dispatches purely on this table.
package toolconfig

// ResourceType enumerates the resource-type sections a manifest may declare.
type ResourceType string

const (
	Agents      ResourceType = "agents"
	Snippets    ResourceType = "snippets"
	Commands    ResourceType = "commands"
	Hooks       ResourceType = "hooks"
	MCPServers  ResourceType = "mcp-servers"
	Scripts     ResourceType = "scripts"
)

// AllResourceTypes lists every resource-type section in manifest order.
var AllResourceTypes = []ResourceType{Agents, Snippets, Commands, Hooks, MCPServers, Scripts}

// ResourceTypeLayout describes how one resource type installs under a tool.
type ResourceTypeLayout struct {
	// Target is the subpath under the tool's base directory, e.g. "agents".
	Target string
	// MergeTarget, if non-empty, names a "<file>#<jsonPath>" location that
	// this resource type's JSON gets merged into instead of being written
	// as a standalone file (spec.md §4.9 "Merged-JSON resources").
	MergeTarget string
	// Flatten discards the resource's repo-relative subdirectories, using
	// only the filename when laying out install_target_path. Defaults to
	// false (snippets keep their subpath) unless set true.
	Flatten bool
}

// ToolConfig is one [tools.<name>] entry: a base directory plus a layout
// per supported resource type. A resource type absent from Layouts is
// unsupported by this tool.
type ToolConfig struct {
	Name    string
	Path    string
	Layouts map[ResourceType]ResourceTypeLayout
}

// Supports reports whether this tool has a layout for the given resource type.
func (tc ToolConfig) Supports(rt ResourceType) bool {
	_, ok := tc.Layouts[rt]
	return ok
}

// defaultRegistry holds the built-in tool configs shipped by agpm:
// claude-code, opencode, and agpm itself, each with sensible per-type
// target subpaths. A manifest [tools.<name>] section may override any
// field of a built-in entry, or define an entirely new tool.
var defaultRegistry = map[string]ToolConfig{
	"claude-code": {
		Name: "claude-code",
		Path: ".claude",
		Layouts: map[ResourceType]ResourceTypeLayout{
			Agents:     {Target: "agents"},
			Snippets:   {Target: "snippets"},
			Commands:   {Target: "commands"},
			Hooks:      {Target: "hooks", MergeTarget: "settings.json#hooks"},
			MCPServers: {Target: "mcp", MergeTarget: ".mcp.json#mcpServers"},
			Scripts:    {Target: "scripts", Flatten: true},
		},
	},
	"opencode": {
		Name: "opencode",
		Path: ".opencode",
		Layouts: map[ResourceType]ResourceTypeLayout{
			Agents:     {Target: "agent"},
			Snippets:   {Target: "snippets"},
			Commands:   {Target: "command"},
			MCPServers: {Target: "mcp", MergeTarget: "opencode.json#mcp"},
			Scripts:    {Target: "scripts", Flatten: true},
		},
	},
	"agpm": {
		Name: "agpm",
		Path: ".agpm",
		Layouts: map[ResourceType]ResourceTypeLayout{
			Agents:   {Target: "agents"},
			Snippets: {Target: "snippets"},
			Commands: {Target: "commands"},
			Scripts:  {Target: "scripts", Flatten: true},
		},
	},
}

// Default returns the built-in config for the named tool, if one exists.
func Default(name string) (ToolConfig, bool) {
	tc, ok := defaultRegistry[name]
	return tc, ok
}

// Merge overlays manifest-declared overrides onto a (possibly empty)
// built-in default, producing the effective ToolConfig. Fields present in
// override replace the default; Layouts are merged per resource type so a
// manifest can override a single type's target without restating the rest.
func Merge(base ToolConfig, override ToolConfig) ToolConfig {
	merged := base
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Path != "" {
		merged.Path = override.Path
	}
	if merged.Layouts == nil {
		merged.Layouts = map[ResourceType]ResourceTypeLayout{}
	} else {
		cloned := make(map[ResourceType]ResourceTypeLayout, len(merged.Layouts))
		for k, v := range merged.Layouts {
			cloned[k] = v
		}
		merged.Layouts = cloned
	}
	for rt, layout := range override.Layouts {
		merged.Layouts[rt] = layout
	}
	return merged
}
