// Package specparse parses the dependency specification strings accepted by
// "agpm add dep" (spec.md CLI surface "add dep SPEC"), independent of the
// manifest file format. It is grounded on the teacher's RepoSpec/WorkflowSpec
// parsing family (pkg/cli/spec.go), generalized from GitHub workflow URLs to
// any agpm resource type and any named source.
package specparse

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/aig787/agpm/pkg/gitutil"
	"github.com/aig787/agpm/pkg/manifest"
	"github.com/aig787/agpm/pkg/toolconfig"
	"github.com/Masterminds/semver/v3"
)

// Spec is a parsed "add dep" specification, one of:
//
//	source:path@version   -> SourceName, Path, Version set
//	source:path            -> SourceName, Path set
//	file:path               -> Local, Path set
//	path                    -> Local, Path set
//	a github.com/raw.githubusercontent.com URL -> SourceURL, Path, Version set
type Spec struct {
	// SourceName is the [sources] key named by a "source:path" spec.
	SourceName string
	// SourceURL is a resolved repository clone URL, set only when the spec
	// was a full Git-host URL rather than a named source key. The caller
	// ("add dep") is responsible for matching SourceURL against an existing
	// [sources] entry or registering a new one.
	SourceURL string
	Path      string
	Version   string
	Local     bool
}

// Parse parses one "add dep" SPEC argument.
func Parse(raw string) (*Spec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty dependency spec")
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return parseGitHostURL(raw)
	}

	if path, ok := strings.CutPrefix(raw, "file:"); ok {
		if path == "" {
			return nil, fmt.Errorf("file: spec is missing a path")
		}
		return &Spec{Local: true, Path: path}, nil
	}

	withoutVersion, version, _ := strings.Cut(raw, "@")
	if idx := strings.Index(withoutVersion, ":"); idx > 0 && isSourceName(withoutVersion[:idx]) {
		sourceName, path := withoutVersion[:idx], withoutVersion[idx+1:]
		if path == "" {
			return nil, fmt.Errorf("dependency spec %q is missing a path after %q", raw, sourceName+":")
		}
		return &Spec{SourceName: sourceName, Path: path, Version: version}, nil
	}

	return &Spec{Local: true, Path: withoutVersion}, nil
}

// isSourceName reports whether s looks like a bare source identifier rather
// than the start of a local path (a Windows drive letter, "." / ".." / "/"
// prefix, or a path segment containing a slash).
func isSourceName(s string) bool {
	if s == "" || strings.ContainsAny(s, "/\\") || s == "." || s == ".." {
		return false
	}
	if len(s) == 1 && (s[0] >= 'a' && s[0] <= 'z' || s[0] >= 'A' && s[0] <= 'Z') {
		return false
	}
	return true
}

// Dependency builds a manifest.Dependency from this spec, classifying the
// optional version suffix into exactly one of Version/Branch/Rev, the way
// the manifest's own VersionSpec expects: a 7+ character hex string is a
// commit rev, a string that parses as a semver constraint (or the "latest"
// keywords) is a version, anything else is treated as a branch name.
func (s *Spec) Dependency() manifest.Dependency {
	dep := manifest.Dependency{Source: s.SourceName, Path: s.Path}
	if s.Local {
		dep.Source = ""
	}
	switch {
	case s.Version == "":
	case gitutil.IsHexString(s.Version) && len(s.Version) >= 7:
		dep.Rev = s.Version
	case isVersionConstraint(s.Version):
		dep.Version = s.Version
	default:
		dep.Branch = s.Version
	}
	return dep
}

func isVersionConstraint(raw string) bool {
	if raw == "latest" || raw == "latest-prerelease" || raw == "*" {
		return true
	}
	_, err := semver.NewConstraint(raw)
	return err == nil
}

// Alias returns the default manifest alias for this spec: the file's base
// name with its extension stripped, matching the teacher's WorkflowName
// derivation.
func (s *Spec) Alias() string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// InferResourceType guesses a resource type from the spec's leading path
// component ("agents/x.md" -> Agents), for "add dep" invocations that pass
// neither --agent nor --snippet. Returns ok=false if the path's first
// segment doesn't name a resource-type section, in which case the caller
// must fall back to an explicit flag or fail.
func (s *Spec) InferResourceType() (toolconfig.ResourceType, bool) {
	trimmed := strings.TrimPrefix(s.Path, "./")
	first, _, _ := strings.Cut(trimmed, "/")
	for _, rt := range toolconfig.AllResourceTypes {
		if first == string(rt) {
			return rt, true
		}
	}
	return "", false
}

// parseGitHostURL parses a full GitHub/raw.githubusercontent.com URL into a
// Spec, generalized from the teacher's parseGitHubURL/parseRawGitHubURL:
// any file extension is accepted (not just ".md"), since agpm resources
// aren't limited to workflow markdown.
//
// Supports:
//
//	https://github.com/owner/repo/blob/ref/path/to/file
//	https://github.com/owner/repo/tree/ref/path/to/file
//	https://github.com/owner/repo/raw/ref/path/to/file
//	https://raw.githubusercontent.com/owner/repo/refs/heads/branch/path/to/file
//	https://raw.githubusercontent.com/owner/repo/refs/tags/tag/path/to/file
//	https://raw.githubusercontent.com/owner/repo/COMMIT_SHA/path/to/file
func parseGitHostURL(raw string) (*Spec, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Host == "raw.githubusercontent.com" {
		return parseRawGitHubURL(parsed)
	}
	if parsed.Host != "github.com" {
		return nil, fmt.Errorf("URL must be from github.com or raw.githubusercontent.com, got %q", parsed.Host)
	}

	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 5 {
		return nil, fmt.Errorf("invalid github.com URL: path too short")
	}
	owner, repo, urlType, ref := parts[0], parts[1], parts[2], parts[3]
	if urlType != "blob" && urlType != "tree" && urlType != "raw" {
		return nil, fmt.Errorf("invalid github.com URL: expected /blob/, /tree/, or /raw/, got /%s/", urlType)
	}
	if err := validateOwnerRepo(owner, repo); err != nil {
		return nil, err
	}

	return &Spec{
		SourceURL: fmt.Sprintf("https://github.com/%s/%s.git", owner, repo),
		Path:      strings.Join(parts[4:], "/"),
		Version:   ref,
	}, nil
}

func parseRawGitHubURL(parsed *url.URL) (*Spec, error) {
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid raw.githubusercontent.com URL: path too short")
	}
	owner, repo := parts[0], parts[1]

	var ref, path string
	if parts[2] == "refs" {
		if len(parts) < 5 {
			return nil, fmt.Errorf("invalid raw.githubusercontent.com URL: refs path too short")
		}
		ref = parts[4]
		path = strings.Join(parts[5:], "/")
	} else {
		ref = parts[2]
		path = strings.Join(parts[3:], "/")
	}
	if err := validateOwnerRepo(owner, repo); err != nil {
		return nil, err
	}

	return &Spec{
		SourceURL: fmt.Sprintf("https://github.com/%s/%s.git", owner, repo),
		Path:      path,
		Version:   ref,
	}, nil
}

func validateOwnerRepo(owner, repo string) error {
	if owner == "" || repo == "" {
		return fmt.Errorf("invalid GitHub URL: owner and repo cannot be empty")
	}
	if !isValidGitHubIdentifier(owner) || !isValidGitHubIdentifier(repo) {
		return fmt.Errorf("invalid GitHub URL: %q does not look like owner/repo", owner+"/"+repo)
	}
	return nil
}

// isValidGitHubIdentifier checks if a string looks like a valid GitHub
// username or repository name: alphanumeric, hyphens, underscores, never
// starting or ending with a hyphen.
func isValidGitHubIdentifier(identifier string) bool {
	if identifier == "" || identifier[0] == '-' || identifier[len(identifier)-1] == '-' {
		return false
	}
	for _, r := range identifier {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}
