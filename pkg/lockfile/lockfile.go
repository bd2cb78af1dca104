// Package lockfile implements the lockfile model (spec.md §3 "Lockfile
// (output)", §4.3): a deterministic, content-addressed record of every
// resolved dependency, keyed so that re-running install against an
// unchanged manifest reproduces byte-identical output.
package lockfile

import (
	"fmt"
	"os"
	"sort"

	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/aig787/agpm/pkg/toolconfig"
	"github.com/pelletier/go-toml/v2"
)

// SchemaVersion is bumped whenever the lockfile's on-disk shape changes in
// a way older agpm binaries cannot read.
const SchemaVersion = 1

// Entry is one resolved dependency, written under its resource-type table.
type Entry struct {
	Alias            string            `toml:"alias"`
	ResourceID       string            `toml:"resource_id"`
	Source           string            `toml:"source,omitempty"`
	Path             string            `toml:"path"`
	ResolvedVersion  string            `toml:"resolved_version,omitempty"`
	SHA              string            `toml:"sha,omitempty"`
	Tool             string            `toml:"tool"`
	InstallTargetPath string           `toml:"install_target_path"`
	ContentHash      string            `toml:"content_hash"`
	Dependencies     []string          `toml:"dependencies,omitempty"`
	TemplateVars     map[string]string `toml:"template_vars,omitempty"`
	// Mutable records whether this entry's version constraint can resolve to
	// a different commit without the manifest changing (branch, local path,
	// or unspecified version — spec.md §3 invariant 5).
	Mutable bool `toml:"mutable,omitempty"`
	// URL is the source's resolved Git URL at install time, used by
	// --frozen to detect a source whose URL has since changed.
	URL string `toml:"url,omitempty"`
	// InstalledAt is an RFC3339 timestamp, project-root relative semantics
	// per spec.md §6; omitted from determinism checks (P1).
	InstalledAt string `toml:"installed_at,omitempty"`
}

// Lockfile is the parsed/in-memory form of agpm.lock.
type Lockfile struct {
	SchemaVersion int                                          `toml:"schema_version"`
	ManifestHash  string                                        `toml:"manifest_hash"`
	MutableDeps   bool                                          `toml:"has_mutable_deps"`
	SourceCommits map[string]string                              `toml:"source_commits,omitempty"`
	Agents        []Entry                                       `toml:"agents,omitempty"`
	Snippets      []Entry                                       `toml:"snippets,omitempty"`
	Commands      []Entry                                       `toml:"commands,omitempty"`
	Hooks         []Entry                                       `toml:"hooks,omitempty"`
	MCPServers    []Entry                                       `toml:"mcp-servers,omitempty"`
	Scripts       []Entry                                       `toml:"scripts,omitempty"`

	path string
}

// New creates an empty lockfile stamped with the current schema version.
func New(manifestHash string) *Lockfile {
	return &Lockfile{SchemaVersion: SchemaVersion, ManifestHash: manifestHash, SourceCommits: map[string]string{}}
}

// Load reads and parses a lockfile from disk.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &agpmerrors.LockfileError{Path: path, Reason: "cannot read lockfile", Err: err}
	}
	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, &agpmerrors.LockfileError{Path: path, Reason: "invalid TOML", Err: err}
	}
	if lf.SchemaVersion > SchemaVersion {
		return nil, &agpmerrors.LockfileError{Path: path, Reason: fmt.Sprintf("lockfile schema_version %d is newer than supported %d", lf.SchemaVersion, SchemaVersion)}
	}
	lf.path = path
	if lf.SourceCommits == nil {
		lf.SourceCommits = map[string]string{}
	}
	return &lf, nil
}

// Sections returns the resource-type -> entries slices, keyed by resource
// type (an unordered map), sortable/settable by the orchestrator.
func (lf *Lockfile) Sections() map[toolconfig.ResourceType]*[]Entry {
	return map[toolconfig.ResourceType]*[]Entry{
		toolconfig.Agents:     &lf.Agents,
		toolconfig.Snippets:   &lf.Snippets,
		toolconfig.Commands:   &lf.Commands,
		toolconfig.Hooks:      &lf.Hooks,
		toolconfig.MCPServers: &lf.MCPServers,
		toolconfig.Scripts:    &lf.Scripts,
	}
}

// SetEntries replaces the entries for a resource type and sorts them by
// alias, so repeated runs against the same inputs produce byte-identical
// output regardless of resolution order (spec.md §3 invariant 4).
func (lf *Lockfile) SetEntries(rt toolconfig.ResourceType, entries []Entry) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Alias < sorted[j].Alias })
	*lf.Sections()[rt] = sorted
}

// Save writes the lockfile to path with stable key order.
func (lf *Lockfile) Save(path string) error {
	data, err := toml.Marshal(lf)
	if err != nil {
		return &agpmerrors.LockfileError{Path: path, Reason: "marshal failed", Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &agpmerrors.LockfileError{Path: path, Reason: "write failed", Err: err}
	}
	lf.path = path
	return nil
}

// Path returns the path this lockfile was loaded from or last saved to.
func (lf *Lockfile) Path() string { return lf.path }

// AllEntries returns every entry across all resource types, in section
// order then alias order, the iteration order used for install and for
// fast-path presence checks.
func (lf *Lockfile) AllEntries() []Entry {
	var all []Entry
	for _, rt := range toolconfig.AllResourceTypes {
		all = append(all, *lf.Sections()[rt]...)
	}
	return all
}
