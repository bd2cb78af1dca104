// Package gitrepo wraps the `git` CLI (spec.md §4.1 "Git command wrapper
// (C1)"), shelling out exactly the way the teacher's pkg/cli/git.go does,
// but generalized: every operation takes a context.Context for cancellation
// and returns a typed error distinguishing network/auth failures from
// generic ones.
package gitrepo

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/aig787/agpm/pkg/gitutil"
	"github.com/aig787/agpm/pkg/logger"
)

var log = logger.New("gitrepo")

// Ref identifies a single line of `git ls-remote`/`git tag --list` output.
type Ref struct {
	Name string
	SHA  string
}

// run executes git with the given args and working directory, returning
// combined stdout (trimmed) on success and a classified *agpmerrors.SourceError
// on failure.
func run(ctx context.Context, source, dir string, args ...string) (string, error) {
	log.Printf("git %s", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if ctx.Err() != nil {
			return "", &agpmerrors.CancelledError{Operation: "git " + args[0]}
		}
		reason := classify(output)
		return output, &agpmerrors.SourceError{Source: source, Reason: reason, Err: fmt.Errorf("%w: %s", err, output)}
	}
	return output, nil
}

func classify(output string) string {
	switch {
	case gitutil.IsAuthError(output):
		return "authentication failed"
	case gitutil.IsNetworkError(output):
		return "network error"
	case gitutil.IsRefNotFoundError(output):
		return "ref not found"
	case gitutil.IsRepositoryNotFoundError(output):
		return "repository not found"
	case gitutil.IsWorktreeConflictError(output):
		return "worktree conflict"
	default:
		return "git command failed"
	}
}

// CloneBare creates a blob-less bare clone of source at dir. Like
// `git clone`, it fails if dir already exists and is not empty.
func CloneBare(ctx context.Context, source, dir string) error {
	_, err := run(ctx, source, "", "clone", "--bare", "--filter=blob:none", source, dir)
	return err
}

// FetchAll fetches all branches and tags into a bare repo, pruning removed refs.
func FetchAll(ctx context.Context, source, bareDir string) error {
	_, err := run(ctx, source, bareDir, "fetch", "--prune", "--tags", "--force", "origin", "+refs/heads/*:refs/heads/*")
	return err
}

// RevParse resolves a ref to its full commit SHA within a bare repo.
func RevParse(ctx context.Context, source, bareDir, ref string) (string, error) {
	out, err := run(ctx, source, bareDir, "rev-parse", ref)
	if err != nil {
		return "", err
	}
	return out, nil
}

// LsRemoteTags lists all tags (and their SHAs) advertised by a remote
// without needing a local clone first, used by version resolution before
// the cache is populated.
func LsRemoteTags(ctx context.Context, source string) ([]Ref, error) {
	out, err := run(ctx, source, "", "ls-remote", "--tags", "--refs", source)
	if err != nil {
		return nil, err
	}
	return parseRefs(out, "refs/tags/"), nil
}

// LsRemoteBranches lists all branches advertised by a remote.
func LsRemoteBranches(ctx context.Context, source string) ([]Ref, error) {
	out, err := run(ctx, source, "", "ls-remote", "--heads", source)
	if err != nil {
		return nil, err
	}
	return parseRefs(out, "refs/heads/"), nil
}

func parseRefs(output, prefix string) []Ref {
	var refs []Ref
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		sha, name := fields[0], fields[1]
		refs = append(refs, Ref{Name: strings.TrimPrefix(name, prefix), SHA: sha})
	}
	return refs
}

// WorktreeAdd checks out commit sha into a new worktree at dir, from a bare repo.
func WorktreeAdd(ctx context.Context, source, bareDir, dir, sha string) error {
	_, err := run(ctx, source, bareDir, "worktree", "add", "--detach", dir, sha)
	return err
}

// WorktreeRemove removes a worktree previously created with WorktreeAdd.
func WorktreeRemove(ctx context.Context, source, bareDir, dir string) error {
	_, err := run(ctx, source, bareDir, "worktree", "remove", "--force", dir)
	return err
}

// ShowFile reads a file's content at a given commit without needing a worktree.
func ShowFile(ctx context.Context, source, bareDir, sha, path string) (string, error) {
	out, err := run(ctx, source, bareDir, "show", fmt.Sprintf("%s:%s", sha, path))
	if err != nil {
		return "", err
	}
	return out, nil
}

// LsTree lists every file path in the tree at sha, recursively, used by
// glob expansion when resolving transitive dependencies (spec.md §4.7).
func LsTree(ctx context.Context, source, bareDir, sha string) ([]string, error) {
	out, err := run(ctx, source, bareDir, "ls-tree", "-r", "--name-only", sha)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// TagList returns every tag name in a bare repo, for constraint matching
// (spec.md §4.4) once the repo is already cached locally.
func TagList(ctx context.Context, source, bareDir string) ([]string, error) {
	out, err := run(ctx, source, bareDir, "tag", "--list")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// DefaultBranch resolves the remote's HEAD symbolic ref to a branch name.
func DefaultBranch(ctx context.Context, source, bareDir string) (string, error) {
	out, err := run(ctx, source, bareDir, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err != nil {
		// Fall back to asking the remote directly (symbolic-ref may be unset after --filter clones).
		out2, err2 := run(ctx, source, "", "ls-remote", "--symref", source, "HEAD")
		if err2 != nil {
			return "", err
		}
		for _, line := range strings.Split(out2, "\n") {
			if strings.HasPrefix(line, "ref: refs/heads/") {
				fields := strings.Fields(line)
				if len(fields) >= 2 {
					return strings.TrimPrefix(fields[1], "refs/heads/"), nil
				}
			}
		}
		return "", err
	}
	return strings.TrimPrefix(out, "origin/"), nil
}
