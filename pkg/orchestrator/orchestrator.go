// Package orchestrator drives the resolution fixed-point (spec.md §4.8
// "Resolution orchestrator (C8)"): seed requirements from the manifest,
// resolve versions, extract each resolved resource's own transitive
// dependencies, fold newly discovered requirements back in, and repeat
// until nothing new is found — then emit a lockfile.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/aig787/agpm/pkg/cache"
	"github.com/aig787/agpm/pkg/conflict"
	"github.com/aig787/agpm/pkg/installer"
	"github.com/aig787/agpm/pkg/lockfile"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/aig787/agpm/pkg/manifest"
	"github.com/aig787/agpm/pkg/mathutil"
	"github.com/aig787/agpm/pkg/resolver"
	"github.com/aig787/agpm/pkg/sourceutil"
	"github.com/aig787/agpm/pkg/toolconfig"
	"github.com/aig787/agpm/pkg/transitive"
	"github.com/aig787/agpm/pkg/version"
	"github.com/sourcegraph/conc/pool"
)

var log = logger.New("orchestrator")

const maxFixedPointRounds = 20

// node is one requirement awaiting or having completed resolution, whether
// it came directly from the manifest or transitively from another node's
// frontmatter.
type node struct {
	resourceID   string
	alias        string // non-empty only for direct manifest dependencies
	resourceType toolconfig.ResourceType
	source       string
	path         string
	tool         string
	targetOver   string
	filename     string
	flatten      *bool
	templateVars map[string]string
	requiredBy   agpmerrors.RequiredBy

	constraintKind   string // "version", "branch", "rev", or "" (unspecified -> latest)
	constraintRaw    string
	constraintPrefix string // custom tag prefix (spec.md §4.4), beyond v/V/version-/release-

	sha     string
	tag     string
	mutable bool

	// rawContent is this node's own fetched content, including frontmatter,
	// populated once during extraction so finalize can render template_vars
	// and hash the result without refetching (spec.md §4.9 "Template
	// rendering" happens before content_hash is computed, so installs can
	// skip-if-unchanged against the rendered bytes).
	rawContent string
}

// Options controls resolver backtracking limits and manifest-level flags.
type Options struct {
	Resolver resolver.Options
}

// Result is everything Resolve produced: a ready-to-save lockfile plus the
// effective tool configs the installer needs.
type Result struct {
	Lockfile *lockfile.Lockfile
	Tools    map[string]toolconfig.ToolConfig
}

// Resolve runs the full C8 fixed point over a manifest: expand globs, pull
// in transitive dependencies discovered in each resource's frontmatter,
// backtrack on version conflicts, and detect cycles and target-path clashes.
func Resolve(ctx context.Context, m *manifest.Manifest, projectRoot string, p *cache.Pool, opts Options) (*Result, error) {
	for name, url := range m.Sources {
		if sourceutil.IsLocal(url) {
			continue
		}
		if err := p.EnsureCloned(ctx, name, url); err != nil {
			return nil, err
		}
	}

	nodes, err := seedDirect(ctx, m, projectRoot, p)
	if err != nil {
		return nil, err
	}

	var allEdges []transitive.Edge

	for round := 0; round < maxFixedPointRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, &agpmerrors.CancelledError{Operation: "resolve"}
		}

		if err := resolveVersions(ctx, nodes, p, opts.Resolver); err != nil {
			return nil, err
		}

		discovered, edges, err := extractTransitive(ctx, m, nodes, p, projectRoot)
		if err != nil {
			return nil, err
		}
		allEdges = append(allEdges, edges...)
		if cyc := transitive.DetectCycle(allEdges); cyc != nil {
			return nil, cyc
		}

		if len(discovered) == 0 {
			log.Printf("fixed point reached after %d round(s), %d total resources", round+1, len(nodes))
			return finalize(m, nodes)
		}
		nodes = mergeNodes(nodes, discovered)
	}
	return nil, fmt.Errorf("orchestrator: fixed point did not converge after %d rounds", maxFixedPointRounds)
}

// seedDirect builds one node per manifest dependency, expanding any glob
// pattern in Path (local or remote) into one node per concrete match.
func seedDirect(ctx context.Context, m *manifest.Manifest, projectRoot string, p *cache.Pool) ([]*node, error) {
	var out []*node
	for rt, deps := range m.DependencySections() {
		for alias, dep := range deps {
			expanded, err := expandDependency(ctx, projectRoot, p, dep)
			if err != nil {
				return nil, err
			}
			for _, path := range expanded {
				value, kind := dep.VersionSpec()
				n := &node{
					resourceID:       transitive.ResourceID(string(rt), dep.Source, path, dep.Tool),
					alias:            alias,
					resourceType:     rt,
					source:           dep.Source,
					path:             path,
					tool:             dep.Tool,
					targetOver:       dep.Target,
					filename:         dep.Filename,
					flatten:          dep.Flatten,
					templateVars:     dep.TemplateVars,
					requiredBy:       agpmerrors.RequiredBy{Alias: alias, Constraint: value},
					constraintKind:   kind,
					constraintRaw:    value,
					constraintPrefix: dep.Prefix,
				}
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// expandDependency resolves a dependency's Path, which may be a bare path, a
// local glob, or a remote glob, into the concrete repo-relative paths it
// names. A local dependency with no source is expanded against
// projectRoot; a remote one needs the source's tree at its resolved ref.
func expandDependency(ctx context.Context, projectRoot string, p *cache.Pool, dep manifest.Dependency) ([]string, error) {
	if dep.IsLocal() {
		if !strings.ContainsAny(dep.Path, "*?[{") {
			full := filepath.Join(projectRoot, filepath.FromSlash(dep.Path))
			info, err := os.Stat(full)
			if err != nil {
				if os.IsNotExist(err) {
					return []string{dep.Path}, nil
				}
				return nil, &agpmerrors.SourceError{Source: "local", Reason: "cannot stat local dependency", Err: err}
			}
			if !info.IsDir() {
				return []string{dep.Path}, nil
			}
			return expandLocalDir(projectRoot, dep.Path)
		}
		matches, err := filepath.Glob(filepath.Join(projectRoot, dep.Path))
		if err != nil {
			return nil, fmt.Errorf("invalid local glob %q: %w", dep.Path, err)
		}
		rels := make([]string, 0, len(matches))
		for _, mtch := range matches {
			rel, err := filepath.Rel(projectRoot, mtch)
			if err != nil {
				return nil, err
			}
			rels = append(rels, filepath.ToSlash(rel))
		}
		sort.Strings(rels)
		return rels, nil
	}

	if !strings.ContainsAny(dep.Path, "*?[{") {
		return []string{dep.Path}, nil
	}

	value, kind := dep.VersionSpec()
	sha, err := resolveFixedOrLatest(ctx, p, dep.Source, value, kind, dep.Prefix)
	if err != nil {
		return nil, err
	}
	tree, err := p.ListTree(ctx, dep.Source, sha)
	if err != nil {
		return nil, err
	}
	return transitive.ExpandGlob(dep.Path, tree)
}

// expandLocalDir walks a local-path dependency that names a directory
// rather than a single file, returning one project-relative path per
// regular file it contains so each gets its own node, content hash, and
// install target through the same pipeline a single-file or glob
// dependency uses (spec.md §3: a local dependency's path may name a
// directory).
func expandLocalDir(projectRoot, relDir string) ([]string, error) {
	root := filepath.Join(projectRoot, filepath.FromSlash(relDir))
	var out []string
	err := filepath.WalkDir(root, func(full string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(projectRoot, full)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &agpmerrors.SourceError{Source: "local", Reason: "cannot walk local directory dependency", Err: err}
	}
	sort.Strings(out)
	return out, nil
}

// resolveFixedOrLatest resolves a constraint to a concrete SHA up front,
// used only for glob expansion (which needs a tree to match against before
// the main resolver runs). Branch/rev resolve directly; a semver-ish or
// empty constraint takes the source's newest tag (HEAD when it has no
// tags), since glob expansion only needs *a* tree shape, not the final
// pinned version.
func resolveFixedOrLatest(ctx context.Context, p *cache.Pool, source, value, kind, prefix string) (string, error) {
	switch kind {
	case "branch":
		return p.ResolveRef(ctx, source, value)
	case "rev":
		return p.ResolveRef(ctx, source, value)
	default:
		tags, err := p.ListTags(ctx, source, prefix)
		if err != nil {
			return "", err
		}
		if len(tags) > 0 {
			return tags[0].SHA, nil
		}
		branch, err := p.ResolveRef(ctx, source, "HEAD")
		if err != nil {
			return "", err
		}
		return branch, nil
	}
}

// resolveVersions fills in sha/tag/mutable for every node whose sha isn't
// already set: branch/rev pins resolve directly against the source, local
// dependencies are identity-pinned to their own path, and everything else
// (semver ranges, "latest", unspecified) goes through the backtracking
// resolver as a batch so conflicts across nodes are caught together.
func resolveVersions(ctx context.Context, nodes []*node, p *cache.Pool, opts resolver.Options) error {
	var reqs []resolver.Requirement
	index := map[string]*node{}

	for _, n := range nodes {
		if n.sha != "" {
			continue
		}
		if n.source == "" {
			n.sha = "local:" + n.path
			n.mutable = true
			continue
		}
		switch n.constraintKind {
		case "branch":
			sha, err := p.ResolveRef(ctx, n.source, n.constraintRaw)
			if err != nil {
				return err
			}
			n.sha = sha
			n.tag = n.constraintRaw
			n.mutable = true
		case "rev":
			sha, err := p.ResolveRef(ctx, n.source, n.constraintRaw)
			if err != nil {
				return err
			}
			n.sha = sha
			n.mutable = false
		default:
			value := n.constraintRaw
			if value == "" {
				value = "latest"
			}
			c, err := version.Parse(value, "version", n.constraintPrefix)
			if err != nil {
				return &agpmerrors.ManifestError{Reason: fmt.Sprintf("dependency %q: %v", n.resourceID, err)}
			}
			reqs = append(reqs, resolver.Requirement{
				ResourceID: n.resourceID,
				Source:     n.source,
				Constraint: c,
				RequiredBy: n.requiredBy,
			})
			index[n.resourceID+"|"+n.requiredBy.String()] = n
			n.mutable = c.IsMutable()
		}
	}

	if len(reqs) == 0 {
		return nil
	}

	tagProvider := func(ctx context.Context, source, prefix string) ([]version.TagVersion, error) {
		return p.ListTags(ctx, source, prefix)
	}

	result, err := resolver.Resolve(ctx, reqs, tagProvider, opts)
	if err != nil {
		return err
	}
	if !result.Resolved {
		return result.Error()
	}
	for _, r := range result.Requirements {
		n, ok := index[r.ResourceID+"|"+r.RequiredBy.String()]
		if !ok {
			continue
		}
		n.sha = r.SHA
		n.tag = r.Tag
	}
	return nil
}

// extractTransitive reads each resolved node's own frontmatter, returning
// every dependency edge it declares (whether or not the target resource was
// already known — DetectCycle needs the full edge set to catch a cycle
// closing back onto an already-resolved node) plus one new *node per
// dependency that isn't already known.
func extractTransitive(ctx context.Context, m *manifest.Manifest, nodes []*node, p *cache.Pool, projectRoot string) ([]*node, []transitive.Edge, error) {
	known := map[string]bool{}
	for _, n := range nodes {
		known[n.resourceID] = true
	}

	type extraction struct {
		parent *node
		raw    []transitive.RawDependency
		err    error
	}
	results := make([]extraction, len(nodes))

	wp := pool.New().WithErrors().WithMaxGoroutines(maxParallel())
	for i, n := range nodes {
		i, n := i, n
		wp.Go(func() error {
			content, err := readNodeContent(ctx, n, p, projectRoot)
			if err != nil {
				results[i] = extraction{parent: n, err: err}
				return nil
			}
			n.rawContent = content
			fm, _, err := transitive.ExtractFrontmatter(content)
			if err != nil {
				results[i] = extraction{parent: n, err: err}
				return nil
			}
			results[i] = extraction{parent: n, raw: fm.Dependencies}
			return nil
		})
	}
	_ = wp.Wait()

	var discovered []*node
	var edges []transitive.Edge
	for _, res := range results {
		if res.err != nil {
			return nil, nil, res.err
		}
		for _, rd := range res.raw {
			source := rd.Source
			if source == "" {
				source = res.parent.source
			}
			resourceType := res.parent.resourceType
			if rd.ResourceType != "" {
				resourceType = toolconfig.ResourceType(rd.ResourceType)
			}
			tool := rd.Tool
			if tool == "" {
				tool = res.parent.tool
			}

			rid := transitive.ResourceID(string(resourceType), source, rd.Path, tool)
			edges = append(edges, transitive.Edge{
				ParentResourceID: res.parent.resourceID,
				ChildResourceID:  rid,
				Source:           source,
				Path:             rd.Path,
			})
			if known[rid] {
				continue
			}
			known[rid] = true

			value, kind := rd.VersionSpec()
			discovered = append(discovered, &node{
				resourceID:       rid,
				resourceType:     resourceType,
				source:           source,
				path:             rd.Path,
				tool:             tool,
				requiredBy:       agpmerrors.RequiredBy{ResourceID: res.parent.resourceID, Constraint: value},
				constraintKind:   kind,
				constraintRaw:    value,
				constraintPrefix: rd.Prefix,
			})
		}
	}
	return discovered, edges, nil
}

func readNodeContent(ctx context.Context, n *node, p *cache.Pool, projectRoot string) (string, error) {
	if n.source == "" {
		data, err := os.ReadFile(filepath.Join(projectRoot, filepath.FromSlash(n.path)))
		if err != nil {
			if os.IsNotExist(err) {
				return "", nil
			}
			return "", &agpmerrors.SourceError{Source: "local", Reason: "cannot read local dependency", Err: err}
		}
		return string(data), nil
	}
	content, err := p.ReadBlob(ctx, n.source, n.sha, n.path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func mergeNodes(existing []*node, discovered []*node) []*node {
	return append(existing, discovered...)
}

func maxParallel() int {
	return mathutil.Max(10, 2*runtime.NumCPU())
}

// finalize builds the Result's lockfile from a converged node set: computes
// install_target_path per node, detects target-path conflicts, and groups
// entries by resource type.
func finalize(m *manifest.Manifest, nodes []*node) (*Result, error) {
	tools := map[string]toolconfig.ToolConfig{}
	for name := range m.Tools {
		tools[name] = m.EffectiveToolConfig(name)
	}
	for _, n := range nodes {
		toolName := n.tool
		if toolName == "" {
			toolName = "claude-code"
		}
		if _, ok := tools[toolName]; !ok {
			tools[toolName] = m.EffectiveToolConfig(toolName)
		}
	}

	fingerprint, err := m.Fingerprint()
	if err != nil {
		return nil, err
	}
	lf := lockfile.New(fingerprint)

	byType := map[toolconfig.ResourceType][]lockfile.Entry{}
	var placements []conflict.Placement

	for _, n := range nodes {
		toolName := n.tool
		if toolName == "" {
			toolName = "claude-code"
		}
		tc := tools[toolName]
		targetPath, err := installTargetPath(tc, n)
		if err != nil {
			return nil, err
		}

		rendered := installer.RenderTemplate(n.rawContent, n.templateVars)
		entry := lockfile.Entry{
			Alias:             n.alias,
			ResourceID:        n.resourceID,
			Source:            n.source,
			Path:              n.path,
			ResolvedVersion:   n.tag,
			SHA:               n.sha,
			Tool:              toolName,
			InstallTargetPath: targetPath,
			ContentHash:       hashContent(rendered),
			TemplateVars:      n.templateVars,
			Mutable:           n.mutable,
			URL:               m.Sources[n.source],
		}
		if entry.Alias == "" {
			entry.Alias = sourceutil.BaseName(n.path)
		}
		byType[n.resourceType] = append(byType[n.resourceType], entry)
		placements = append(placements, conflict.Placement{TargetPath: targetPath, Name: entry.Alias, ContentHash: entry.ContentHash})
	}

	if conflicts := conflict.DetectTargetPathConflicts(placements); len(conflicts) > 0 {
		return nil, conflicts[0]
	}

	for rt, entries := range byType {
		lf.SetEntries(rt, entries)
	}
	lf.RecomputeMutableDeps()

	return &Result{Lockfile: lf, Tools: tools}, nil
}

// installTargetPath computes a node's project-relative install path from
// its tool's layout, honoring a per-dependency target/filename override.
func installTargetPath(tc toolconfig.ToolConfig, n *node) (string, error) {
	layout, ok := tc.Layouts[n.resourceType]
	if !ok {
		return "", &agpmerrors.ToolCompatibilityError{ResourceType: string(n.resourceType), Tool: tc.Name}
	}

	subdir := layout.Target
	if n.targetOver != "" {
		subdir = n.targetOver
	}

	flatten := layout.Flatten
	if n.flatten != nil {
		flatten = *n.flatten
	}

	name := n.path
	if n.filename != "" {
		name = n.filename
	} else if flatten {
		name = filepath.Base(n.path)
	}

	full := filepath.ToSlash(filepath.Join(tc.Path, subdir, name))
	return full, nil
}

// ContentFunc builds an installer.ContentFunc that re-reads a lockfile
// entry's pinned content (via the blob cache for remote entries, from disk
// for local ones) and renders its template_vars, so Install can be called
// against a lockfile loaded from disk without re-running resolution.
func ContentFunc(p *cache.Pool, projectRoot string) installer.ContentFunc {
	return func(ctx context.Context, e lockfile.Entry) ([]byte, error) {
		var content string
		if e.Source == "" {
			data, err := os.ReadFile(filepath.Join(projectRoot, filepath.FromSlash(e.Path)))
			if err != nil {
				return nil, &agpmerrors.SourceError{Source: "local", Reason: "cannot read local dependency", Err: err}
			}
			content = string(data)
		} else {
			data, err := p.ReadBlob(ctx, e.Source, e.SHA, e.Path)
			if err != nil {
				return nil, err
			}
			content = string(data)
		}
		return []byte(installer.RenderTemplate(content, e.TemplateVars)), nil
	}
}
