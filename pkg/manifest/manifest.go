// Package manifest parses and validates the project manifest (agpm.toml),
// implementing spec.md §3 "Manifest (input)" and §4.3 "Manifest & lockfile
// model (C3)".
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/aig787/agpm/pkg/toolconfig"
	"github.com/pelletier/go-toml/v2"
)

var log = logger.New("manifest")

// Dependency is one entry under a resource-type section, in either the
// simple (local path string) or detailed (table) form.
type Dependency struct {
	Source       string            `toml:"source,omitempty"`
	Path         string            `toml:"path"`
	Version      string            `toml:"version,omitempty"`
	Branch       string            `toml:"branch,omitempty"`
	Rev          string            `toml:"rev,omitempty"`
	Prefix       string            `toml:"prefix,omitempty"`
	Tool         string            `toml:"tool,omitempty"`
	Target       string            `toml:"target,omitempty"`
	Filename     string            `toml:"filename,omitempty"`
	Flatten      *bool             `toml:"flatten,omitempty"`
	TemplateVars map[string]string `toml:"template_vars,omitempty"`
	Install      string            `toml:"install,omitempty"`
	Args         []string          `toml:"args,omitempty"`
	Command      string            `toml:"command,omitempty"`
}

// UnmarshalTOML supports the manifest's "simple form": a dependency may be
// written as a bare path string instead of a table.
func (d *Dependency) UnmarshalTOML(value any) error {
	switch v := value.(type) {
	case string:
		d.Path = v
		return nil
	case map[string]any:
		raw, err := toml.Marshal(v)
		if err != nil {
			return err
		}
		type alias Dependency
		var a alias
		if err := toml.Unmarshal(raw, &a); err != nil {
			return err
		}
		*d = Dependency(a)
		return nil
	default:
		return fmt.Errorf("dependency must be a string or table, got %T", value)
	}
}

// IsLocal reports whether this dependency has no source (a local file/glob).
func (d Dependency) IsLocal() bool {
	return d.Source == ""
}

// VersionSpec returns whichever of version/branch/rev was set, and which
// field it came from ("version", "branch", or "rev").
func (d Dependency) VersionSpec() (value, kind string) {
	switch {
	case d.Version != "":
		return d.Version, "version"
	case d.Branch != "":
		return d.Branch, "branch"
	case d.Rev != "":
		return d.Rev, "rev"
	default:
		return "", ""
	}
}

// Target describes the project's global install-root options.
type Target struct {
	Gitignore bool `toml:"gitignore,omitempty"`
}

// ToolSection is a raw [tools.<name>] entry as parsed from TOML; it mirrors
// toolconfig.ToolConfig but keeps per-resource-type layouts inline, the
// shape the manifest actually uses on the wire.
type ToolSection struct {
	Path       string                  `toml:"path,omitempty"`
	Agents     *ResourceLayoutSection  `toml:"agents,omitempty"`
	Snippets   *ResourceLayoutSection  `toml:"snippets,omitempty"`
	Commands   *ResourceLayoutSection  `toml:"commands,omitempty"`
	Hooks      *ResourceLayoutSection  `toml:"hooks,omitempty"`
	MCPServers *ResourceLayoutSection  `toml:"mcp-servers,omitempty"`
	Scripts    *ResourceLayoutSection  `toml:"scripts,omitempty"`
}

// ResourceLayoutSection is one [tools.<name>.<resource-type>] entry.
type ResourceLayoutSection struct {
	Target      string `toml:"target,omitempty"`
	MergeTarget string `toml:"merge_target,omitempty"`
	Flatten     *bool  `toml:"flatten,omitempty"`
}

// Manifest is the parsed form of agpm.toml.
type Manifest struct {
	Sources    map[string]string          `toml:"sources"`
	Tools      map[string]ToolSection     `toml:"tools,omitempty"`
	Target     Target                     `toml:"target,omitempty"`
	Agents     map[string]Dependency      `toml:"agents,omitempty"`
	Snippets   map[string]Dependency      `toml:"snippets,omitempty"`
	Commands   map[string]Dependency      `toml:"commands,omitempty"`
	Hooks      map[string]Dependency      `toml:"hooks,omitempty"`
	MCPServers map[string]Dependency      `toml:"mcp-servers,omitempty"`
	Scripts    map[string]Dependency      `toml:"scripts,omitempty"`

	// path records where this manifest was loaded from, for error messages.
	path string
}

// Parse decodes manifest TOML bytes. It does not validate cross-references;
// call Validate for that.
func Parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, &agpmerrors.ManifestError{Path: path, Reason: "invalid TOML", Err: err}
	}
	m.path = path
	log.Printf("parsed manifest %s: %d sources, %d tools", path, len(m.Sources), len(m.Tools))
	return &m, nil
}

// Load reads and parses a manifest file from disk.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &agpmerrors.ManifestError{Path: path, Reason: "cannot read manifest", Err: err}
	}
	return Parse(data, path)
}

// DependencySections returns the map of resource-type -> (alias -> Dependency).
// The map is unordered; toolconfig.AllResourceTypes holds the fixed section order.
func (m *Manifest) DependencySections() map[toolconfig.ResourceType]map[string]Dependency {
	return map[toolconfig.ResourceType]map[string]Dependency{
		toolconfig.Agents:     m.Agents,
		toolconfig.Snippets:   m.Snippets,
		toolconfig.Commands:   m.Commands,
		toolconfig.Hooks:      m.Hooks,
		toolconfig.MCPServers: m.MCPServers,
		toolconfig.Scripts:    m.Scripts,
	}
}

// EffectiveToolConfig resolves the manifest's [tools.<name>] override (if
// any) against the built-in default for that tool name.
func (m *Manifest) EffectiveToolConfig(name string) toolconfig.ToolConfig {
	base, _ := toolconfig.Default(name)
	section, ok := m.Tools[name]
	if !ok {
		base.Name = name
		return base
	}
	override := toolconfig.ToolConfig{Name: name, Path: section.Path, Layouts: map[toolconfig.ResourceType]toolconfig.ResourceTypeLayout{}}
	addLayout := func(rt toolconfig.ResourceType, s *ResourceLayoutSection) {
		if s == nil {
			return
		}
		layout := toolconfig.ResourceTypeLayout{Target: s.Target, MergeTarget: s.MergeTarget}
		if s.Flatten != nil {
			layout.Flatten = *s.Flatten
		}
		override.Layouts[rt] = layout
	}
	addLayout(toolconfig.Agents, section.Agents)
	addLayout(toolconfig.Snippets, section.Snippets)
	addLayout(toolconfig.Commands, section.Commands)
	addLayout(toolconfig.Hooks, section.Hooks)
	addLayout(toolconfig.MCPServers, section.MCPServers)
	addLayout(toolconfig.Scripts, section.Scripts)
	return toolconfig.Merge(base, override)
}

// Fingerprint computes manifest_hash: a SHA-256 over a normalised
// re-serialisation of the manifest (sorted keys), so comment-only or
// formatting-only edits don't invalidate the fast path (spec.md §8 P7),
// while any semantic edit does.
func (m *Manifest) Fingerprint() (string, error) {
	normalized, err := normalize(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(normalized)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// normalize re-serialises the manifest with deterministic key order. TOML
// marshalling of a Go struct already emits fields in struct-declaration
// order and map keys are sorted by pelletier/go-toml/v2 by default, so this
// simply re-marshals through the typed struct (dropping comments/whitespace).
func normalize(m *Manifest) ([]byte, error) {
	return toml.Marshal(m)
}

// Path returns the path this manifest was loaded from, or "" if constructed in memory.
func (m *Manifest) Path() string { return m.path }

// Save re-serialises the manifest to path, used by "agpm add" to persist a
// new source or dependency. Comments and formatting in a hand-edited
// manifest are lost on save, the same tradeoff the teacher's own
// config-rewrite commands make.
func (m *Manifest) Save(path string) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return &agpmerrors.ManifestError{Path: path, Reason: "cannot serialise manifest", Err: err}
	}
	return os.WriteFile(path, data, 0o644)
}
