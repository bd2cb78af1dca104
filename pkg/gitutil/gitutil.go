// Package gitutil classifies raw `git` stderr/stdout text into the failure
// categories spec.md §4.1 requires C1 to distinguish: auth, network, ref
// not found, repository not found, and worktree conflicts. gitrepo.classify
// is the sole caller of these classifiers (IsHexString also serves
// pkg/version and pkg/specparse); splitting the pattern tables out here
// keeps them unit-testable independent of actually shelling out to git.
package gitutil

import "strings"

// IsAuthError reports whether a git failure's output indicates missing or
// invalid credentials (private repo over https/ssh without a usable token).
func IsAuthError(errMsg string) bool {
	lowerMsg := strings.ToLower(errMsg)
	return strings.Contains(lowerMsg, "gh_token") ||
		strings.Contains(lowerMsg, "github_token") ||
		strings.Contains(lowerMsg, "authentication") ||
		strings.Contains(lowerMsg, "not logged into") ||
		strings.Contains(lowerMsg, "unauthorized") ||
		strings.Contains(lowerMsg, "forbidden") ||
		strings.Contains(lowerMsg, "permission denied")
}

// IsNetworkError reports whether a git failure's output indicates the
// remote was unreachable rather than rejecting the request.
func IsNetworkError(errMsg string) bool {
	lowerMsg := strings.ToLower(errMsg)
	return strings.Contains(lowerMsg, "could not resolve host") ||
		strings.Contains(lowerMsg, "network is unreachable") ||
		strings.Contains(lowerMsg, "timed out") ||
		strings.Contains(lowerMsg, "connection refused") ||
		strings.Contains(lowerMsg, "connection reset")
}

// IsRefNotFoundError reports whether a git failure's output indicates a
// requested tag, branch, or commit doesn't exist in the remote.
func IsRefNotFoundError(errMsg string) bool {
	lowerMsg := strings.ToLower(errMsg)
	return strings.Contains(lowerMsg, "not found in upstream") ||
		strings.Contains(lowerMsg, "couldn't find remote ref") ||
		strings.Contains(lowerMsg, "did not match any") ||
		strings.Contains(lowerMsg, "unknown revision or path")
}

// IsRepositoryNotFoundError reports whether a git failure's output indicates
// the source URL itself doesn't resolve to a repository.
func IsRepositoryNotFoundError(errMsg string) bool {
	lowerMsg := strings.ToLower(errMsg)
	return strings.Contains(lowerMsg, "repository not found") ||
		strings.Contains(lowerMsg, "does not exist")
}

// IsWorktreeConflictError reports whether a `git worktree add` failure is
// because the target ref or directory is already checked out in another
// worktree (spec.md §4.2: worktree creation for the same (source, ref) is
// deduplicated, but a stale worktree left behind by a killed process can
// still collide with a fresh `add`).
func IsWorktreeConflictError(errMsg string) bool {
	lowerMsg := strings.ToLower(errMsg)
	return strings.Contains(lowerMsg, "already checked out") ||
		strings.Contains(lowerMsg, "already exists")
}

// IsHexString reports whether s contains only hexadecimal characters,
// used to recognize a pinned commit SHA rather than a tag/branch name in a
// version constraint or an `add` spec (spec.md §4.4/§4.13).
func IsHexString(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
