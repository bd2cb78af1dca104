// Package transitive discovers the dependencies a resource itself declares,
// by reading its YAML frontmatter (spec.md §4.7 "Transitive dependency
// extractor (C7)"), and expands any glob patterns it names against the
// source repository's tree at a pinned commit.
package transitive

import (
	"fmt"
	"strings"

	"github.com/aig787/agpm/pkg/logger"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
)

var log = logger.New("transitive")

const delimiter = "---"

// Frontmatter is the subset of a resource's YAML frontmatter that agpm
// understands: declared dependencies and free-form metadata passed through
// to the installer untouched.
type Frontmatter struct {
	Dependencies []RawDependency        `yaml:"dependencies,omitempty"`
	Metadata     map[string]interface{} `yaml:",inline"`
}

// RawDependency is one entry under a resource's "dependencies:" block,
// either a simple path string or a detailed table with its own version.
// Dependencies are declared as a flat list rather than grouped by resource
// type (see DESIGN.md's Open Question decision); ResourceType lets an entry
// declare a type other than its parent's when omitted it is inherited.
type RawDependency struct {
	Source       string `yaml:"source,omitempty"`
	Path         string `yaml:"path"`
	Version      string `yaml:"version,omitempty"`
	Branch       string `yaml:"branch,omitempty"`
	Rev          string `yaml:"rev,omitempty"`
	Tool         string `yaml:"tool,omitempty"`
	ResourceType string `yaml:"resource_type,omitempty"`
	Prefix       string `yaml:"prefix,omitempty"`
}

// VersionSpec returns whichever of version/branch/rev was set on this
// dependency, and which field it came from, mirroring
// manifest.Dependency.VersionSpec for the orchestrator's resolution code.
func (d RawDependency) VersionSpec() (value, kind string) {
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

// UnmarshalYAML accepts either a bare path string or a mapping, implementing
// goccy/go-yaml's BytesUnmarshaler interface.
func (d *RawDependency) UnmarshalYAML(data []byte) error {
	var s string
	if err := yaml.Unmarshal(data, &s); err == nil {
		d.Path = s
		return nil
	}
	type alias RawDependency
	var a alias
	if err := yaml.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = RawDependency(a)
	return nil
}

// ExtractFrontmatter splits a resource's markdown content into its parsed
// frontmatter (if any) and the remaining body.
func ExtractFrontmatter(content string) (*Frontmatter, string, error) {
	trimmed := strings.TrimLeft(content, "\xef\xbb\xbf")
	if !strings.HasPrefix(trimmed, delimiter) {
		return &Frontmatter{}, content, nil
	}

	rest := trimmed[len(delimiter):]
	idx := strings.Index(rest, "\n"+delimiter)
	if idx < 0 {
		return nil, "", fmt.Errorf("unterminated frontmatter block: no closing %q delimiter", delimiter)
	}

	yamlBlock := rest[:idx]
	body := rest[idx+len("\n"+delimiter):]
	body = strings.TrimPrefix(body, "\n")

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
		return nil, "", fmt.Errorf("invalid frontmatter YAML: %w", err)
	}
	log.Printf("extracted frontmatter with %d declared dependencies", len(fm.Dependencies))
	return &fm, body, nil
}

// ExpandGlob matches a dependency path pattern against every file path in a
// source's tree (as listed by gitrepo.LsTree at the pinned commit),
// returning the concrete matches in sorted order. A pattern containing no
// glob metacharacters is returned as-is without requiring a tree match,
// since C7 callers resolve existence separately.
func ExpandGlob(pattern string, treePaths []string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}, nil
	}
	var matches []string
	for _, p := range treePaths {
		ok, err := doublestar.Match(pattern, p)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if ok {
			matches = append(matches, p)
		}
	}
	return matches, nil
}
