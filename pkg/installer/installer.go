// Package installer materialises a resolved lockfile into a project's
// tool-specific directories (spec.md §4.9 "Installer (C9)"): atomic writes,
// content-addressed skip-if-unchanged, JSON-merge for hooks/MCP resources,
// and removal of files an earlier lockfile installed that the new one no
// longer names.
package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/aig787/agpm/pkg/lockfile"
	"github.com/aig787/agpm/pkg/mathutil"
	"github.com/aig787/agpm/pkg/toolconfig"
	"github.com/sourcegraph/conc/pool"
)

var log = logger.New("installer")

// ContentFunc returns the fully-rendered bytes to install for one lockfile
// entry (post-template-substitution), so the installer never has to know
// about worktrees or blob caches itself.
type ContentFunc func(ctx context.Context, entry lockfile.Entry) ([]byte, error)

// Plan is everything the installer needs to bring a project tree into
// compliance with a freshly resolved (or reused) lockfile.
type Plan struct {
	ProjectRoot string
	Tools       map[string]toolconfig.ToolConfig
	Entries     []lockfile.Entry
	Previous    []lockfile.Entry // entries installed by the prior lockfile, for removal diffing
	Content     ContentFunc
}

// Outcome records what Install actually did to the filesystem, used for
// user-facing reporting.
type Outcome struct {
	Written []string
	Skipped []string
	Removed []string
	Errors  []error
}

// pathLocks serialises concurrent writers to the same install_target_path
// (spec.md §5 "Locking discipline for installs").
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLocks() *pathLocks { return &pathLocks{locks: map[string]*sync.Mutex{}} }

func (p *pathLocks) get(path string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[path]
	if !ok {
		l = &sync.Mutex{}
		p.locks[path] = l
	}
	return l
}

// Install writes every entry in plan.Entries to its install_target_path,
// merging JSON-configured resource types instead of writing standalone
// files, then deletes files the previous lockfile installed that are no
// longer present. A single resource's failure does not abort the batch
// (spec.md §4.9 "Error isolation"); all errors are returned together.
func Install(ctx context.Context, plan Plan) (*Outcome, error) {
	outcome := &Outcome{}
	var mu sync.Mutex
	locks := newPathLocks()

	merges, direct := partitionByMergeTarget(plan)

	concurrency := mathutil.Max(1, 2*runtime.NumCPU())
	// A plain WithErrors pool, not WithContext: a ContextPool cancels every
	// other goroutine on the first error, which would violate the "single
	// resource failure does not abort the batch" isolation rule.
	p := pool.New().WithErrors().WithMaxGoroutines(concurrency)

	for _, e := range direct {
		e := e
		p.Go(func() error {
			written, err := installDirect(ctx, plan, e, locks)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcome.Errors = append(outcome.Errors, err)
				return nil
			}
			if written {
				outcome.Written = append(outcome.Written, e.InstallTargetPath)
			} else {
				outcome.Skipped = append(outcome.Skipped, e.InstallTargetPath)
			}
			return nil
		})
	}
	_ = p.Wait()

	// Merged-JSON targets are serialised per target file (spec.md §5
	// "Merged-JSON writes"), so they run after the direct-write pool rather
	// than inside it: multiple resource types can share one target file.
	for target, entries := range merges {
		if err := installMerged(ctx, plan, target, entries, &outcome.Written); err != nil {
			outcome.Errors = append(outcome.Errors, err)
		}
	}

	removed, err := removeStale(plan)
	outcome.Removed = append(outcome.Removed, removed...)
	if err != nil {
		outcome.Errors = append(outcome.Errors, err)
	}

	if len(outcome.Errors) > 0 {
		return outcome, fmt.Errorf("install failed with %d error(s): %w", len(outcome.Errors), outcome.Errors[0])
	}
	return outcome, nil
}

// mergeKey identifies one tool's merge-target JSON file.
type mergeKey struct {
	tool         string
	target       string
	resourceType toolconfig.ResourceType
}

// partitionByMergeTarget splits entries into those whose tool config
// declares a merge_target for their resource type and those installed as
// standalone files.
func partitionByMergeTarget(plan Plan) (map[mergeKey][]lockfile.Entry, []lockfile.Entry) {
	merges := map[mergeKey][]lockfile.Entry{}
	var direct []lockfile.Entry
	for _, e := range plan.Entries {
		tc, ok := plan.Tools[e.Tool]
		if !ok {
			direct = append(direct, e)
			continue
		}
		rt, layout, ok := layoutFor(tc, e)
		if !ok || layout.MergeTarget == "" {
			direct = append(direct, e)
			continue
		}
		key := mergeKey{tool: e.Tool, target: layout.MergeTarget, resourceType: rt}
		merges[key] = append(merges[key], e)
	}
	return merges, direct
}

// layoutFor finds the resource type and ResourceTypeLayout governing e by
// scanning the tool's layouts for the one whose Target prefixes e's
// install_target_path. The lockfile entry itself doesn't carry its resource
// type, so this infers it from how the path was built (installTargetPath
// always nests under <tool.path>/<layout.target>/...).
func layoutFor(tc toolconfig.ToolConfig, e lockfile.Entry) (toolconfig.ResourceType, toolconfig.ResourceTypeLayout, bool) {
	for _, rt := range toolconfig.AllResourceTypes {
		layout, ok := tc.Layouts[rt]
		if !ok {
			continue
		}
		if layout.MergeTarget != "" && matchesMergeTarget(e, tc, layout) {
			return rt, layout, true
		}
	}
	return "", toolconfig.ResourceTypeLayout{}, false
}

func matchesMergeTarget(e lockfile.Entry, tc toolconfig.ToolConfig, layout toolconfig.ResourceTypeLayout) bool {
	file, _ := SplitMergeTarget(layout.MergeTarget)
	return e.InstallTargetPath == filepath.ToSlash(filepath.Join(tc.Path, file))
}

// installDirect writes one standalone resource file atomically, skipping
// the write if the destination already holds identical content (spec.md
// §4.9 "Content addressing").
func installDirect(ctx context.Context, plan Plan, e lockfile.Entry, locks *pathLocks) (wrote bool, err error) {
	dest := filepath.Join(plan.ProjectRoot, filepath.FromSlash(e.InstallTargetPath))
	lock := locks.get(dest)
	lock.Lock()
	defer lock.Unlock()

	if existingHash, ok := hashFile(dest); ok && existingHash == e.ContentHash {
		return false, nil
	}

	content, err := plan.Content(ctx, e)
	if err != nil {
		return false, &agpmerrors.InstallError{Destination: dest, Err: err}
	}

	if err := atomicWrite(dest, content, 0o644); err != nil {
		return false, &agpmerrors.InstallError{Destination: dest, Err: err}
	}
	log.Printf("installed %s (%s)", e.InstallTargetPath, e.ContentHash)
	return true, nil
}

// atomicWrite writes data to a sibling temp file then renames it over dest,
// fsyncing the parent directory on POSIX so the rename itself is durable
// (spec.md §4.9 "Atomic write").
func atomicWrite(dest string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".agpm-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return err
	}
	if dirFile, err := os.Open(dir); err == nil {
		_ = dirFile.Sync()
		_ = dirFile.Close()
	}
	return nil
}

// hashFile returns the sha256:... content hash of an existing file, or
// false if it doesn't exist or can't be read.
func hashFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:]), true
}

// removeStale deletes any file the previous lockfile installed that the new
// set of entries no longer names (spec.md §4.9 "Removal"). It never removes
// directories it did not itself create files into.
func removeStale(plan Plan) ([]string, error) {
	keep := map[string]bool{}
	for _, e := range plan.Entries {
		keep[e.InstallTargetPath] = true
	}
	var removed []string
	var firstErr error
	for _, prev := range plan.Previous {
		if keep[prev.InstallTargetPath] {
			continue
		}
		full := filepath.Join(plan.ProjectRoot, filepath.FromSlash(prev.InstallTargetPath))
		if err := os.Remove(full); err != nil {
			if !os.IsNotExist(err) && firstErr == nil {
				firstErr = &agpmerrors.InstallError{Destination: full, Err: err}
			}
			continue
		}
		removed = append(removed, prev.InstallTargetPath)
	}
	return removed, firstErr
}
