// Package sourceutil provides utility functions for working with the
// repository source URLs and local paths accepted in manifest [sources]
// entries (see spec.md §6 "Source URLs").
package sourceutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Scheme identifies the kind of source URL a manifest entry points at.
type Scheme int

const (
	SchemeUnknown Scheme = iota
	SchemeHTTPS
	SchemeHTTP
	SchemeSSH
	SchemeFile
	SchemeLocalPath
)

// DetectScheme classifies a source URL per spec.md §6: "https://",
// "http://", "git@host:", "file://", or an absolute/relative local path.
func DetectScheme(url string) Scheme {
	switch {
	case strings.HasPrefix(url, "https://"):
		return SchemeHTTPS
	case strings.HasPrefix(url, "http://"):
		return SchemeHTTP
	case strings.HasPrefix(url, "file://"):
		return SchemeFile
	case strings.HasPrefix(url, "/"):
		return SchemeLocalPath
	case strings.HasPrefix(url, "./") || strings.HasPrefix(url, "../"):
		return SchemeLocalPath
	case isSCPLike(url):
		return SchemeSSH
	default:
		return SchemeUnknown
	}
}

// isSCPLike reports whether url looks like "user@host:path", the
// traditional scp/ssh shorthand git accepts (e.g. "git@github.com:org/repo.git").
func isSCPLike(url string) bool {
	at := strings.Index(url, "@")
	colon := strings.Index(url, ":")
	if at < 0 || colon < 0 || colon < at {
		return false
	}
	// Exclude scheme-qualified URLs like "ssh://user@host:port/path".
	return !strings.Contains(url[:at], "://")
}

// IsLocal reports whether a source resolves to a path on the local
// filesystem rather than a remote Git transport. Local sources are
// mutable deps per spec.md §3 invariant 5.
func IsLocal(url string) bool {
	scheme := DetectScheme(url)
	return scheme == SchemeFile || scheme == SchemeLocalPath
}

// LocalPath strips a "file://" prefix, if any, returning a filesystem path.
func LocalPath(url string) string {
	return strings.TrimPrefix(url, "file://")
}

// SplitRepoSlug splits a repository slug ("owner/repo") into its parts.
func SplitRepoSlug(slug string) (owner, repo string, err error) {
	parts := strings.Split(slug, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format: %s", slug)
	}
	return parts[0], parts[1], nil
}

// SanitizeForDirName converts a source URL or slug into a filesystem-safe
// directory component, used to lay out "<cache_root>/sources/<name>/".
func SanitizeForDirName(name string) string {
	replacer := strings.NewReplacer("/", "-", ":", "-", "@", "-", ".", "-")
	sanitized := replacer.Replace(name)
	sanitized = strings.TrimPrefix(sanitized, "-")
	if sanitized == "" {
		return "source"
	}
	return sanitized
}

// BaseName returns the last path segment of a repo-relative resource path
// without its extension, used when deriving a canonical name for local files.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
