// Package agpmerrors defines the typed error taxonomy surfaced to users
// (spec.md §7). Every error kind carries the user-visible identity (alias,
// resource_id, file path) and, where relevant, a required-by chain, so the
// cause is reproducible from the error text alone.
package agpmerrors

import (
	"fmt"
	"strings"
)

// ManifestError reports malformed TOML, a missing field, an unknown source
// reference, or mutually-exclusive version fields in the manifest.
type ManifestError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ManifestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest error in %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("manifest error in %s: %s", e.Path, e.Reason)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// ToolCompatibilityError reports a resource type not supported by a tool,
// with a suggestion of compatible tools.
type ToolCompatibilityError struct {
	ResourceType string
	Tool         string
	Compatible   []string
}

func (e *ToolCompatibilityError) Error() string {
	msg := fmt.Sprintf("tool %q does not support resource type %q", e.Tool, e.ResourceType)
	if len(e.Compatible) > 0 {
		msg += fmt.Sprintf(" (compatible tools: %s)", strings.Join(e.Compatible, ", "))
	}
	return msg
}

// SourceError reports an inaccessible source, unsupported URL scheme, or a
// ref that does not exist in that source.
type SourceError struct {
	Source string
	Reason string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %q: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("source %q: %s", e.Source, e.Reason)
}

func (e *SourceError) Unwrap() error { return e.Err }

// RequiredBy describes one edge in a requirement's dependency chain, used
// by VersionConflictError and BacktrackFailureError to explain how a
// requirement was introduced.
type RequiredBy struct {
	Alias      string // manifest alias, if this is a direct requirement
	ResourceID string // parent resource_id, if this is a transitive requirement
	Constraint string
}

func (r RequiredBy) String() string {
	if r.Alias != "" {
		return fmt.Sprintf("manifest alias %q (constraint %s)", r.Alias, r.Constraint)
	}
	return fmt.Sprintf("transitive from %q (constraint %s)", r.ResourceID, r.Constraint)
}

// VersionConflictError reports that two or more requirements for the same
// resource_id resolved to different commit SHAs with no backtracking
// alternative (spec.md §3 invariant 2, §8 P5).
type VersionConflictError struct {
	ResourceID  string
	SHAs        []string
	RequiredBy  []RequiredBy
}

func (e *VersionConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "version conflict for %s: requirements resolve to different commits %s\n", e.ResourceID, strings.Join(e.SHAs, ", "))
	for _, rb := range e.RequiredBy {
		fmt.Fprintf(&b, "  required by %s\n", rb)
	}
	return strings.TrimRight(b.String(), "\n")
}

// TargetPathConflictError reports that two resources would install to the
// same path with different content (spec.md §3 invariant 3).
type TargetPathConflictError struct {
	TargetPath string
	NameA      string
	NameB      string
}

func (e *TargetPathConflictError) Error() string {
	return fmt.Sprintf("target path conflict at %q: %q and %q would both install here with different content", e.TargetPath, e.NameA, e.NameB)
}

// CircularDependencyError reports a transitive-dependency cycle.
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Cycle, " -> "))
}

// TerminationReason explains why the backtracking resolver stopped (spec.md §4.6).
type TerminationReason string

const (
	TerminationSuccess            TerminationReason = "success"
	TerminationTimeout            TerminationReason = "timeout"
	TerminationMaxIterations      TerminationReason = "max_iterations"
	TerminationMaxAttempts        TerminationReason = "max_attempts"
	TerminationNoProgress         TerminationReason = "no_progress"
	TerminationOscillation        TerminationReason = "oscillation"
	TerminationNoCompatibleVersion TerminationReason = "no_compatible_version"
)

// BacktrackFailureError reports that the resolver could not reconcile all
// conflicts, carrying the termination reason and the unresolved conflicts.
type BacktrackFailureError struct {
	Reason    TerminationReason
	Conflicts []*VersionConflictError
}

func (e *BacktrackFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dependency resolution failed (%s):\n", e.Reason)
	for _, c := range e.Conflicts {
		fmt.Fprintf(&b, "- %v\n", c)
	}
	return strings.TrimRight(b.String(), "\n")
}

// InstallError reports a filesystem failure while copying or merging a
// resource into the project tree.
type InstallError struct {
	Destination string
	Err         error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("failed to install %s: %v", e.Destination, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// LockfileError reports a lockfile parse failure, schema mismatch, or
// (under --check-lock) an inconsistency with the manifest.
type LockfileError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LockfileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lockfile error in %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("lockfile error in %s: %s", e.Path, e.Reason)
}

func (e *LockfileError) Unwrap() error { return e.Err }

// CancelledError reports that an operation's deadline was exceeded.
type CancelledError struct {
	Operation string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s cancelled: deadline exceeded", e.Operation)
}

// FrozenMismatchError reports that --frozen detected a source URL that no
// longer matches the lockfile (spec.md §4.10 security guard, §8 P10).
type FrozenMismatchError struct {
	Source      string
	LockfileURL string
	ManifestURL string
}

func (e *FrozenMismatchError) Error() string {
	return fmt.Sprintf("frozen install: source %q URL changed (lockfile has %q, manifest has %q)", e.Source, e.LockfileURL, e.ManifestURL)
}
