// Package version parses and resolves dependency version constraints
// (spec.md §4.4 "Version constraint system (C4)"): exact/caret/tilde/range
// semver constraints, Git branches, commits, and the "latest"/
// "latest-prerelease" keywords, resolved against a repo's discovered tags.
package version

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/aig787/agpm/pkg/gitrepo"
	"github.com/aig787/agpm/pkg/gitutil"
	"github.com/aig787/agpm/pkg/logger"
)

var log = logger.New("version")

// Kind classifies how a constraint string should be resolved.
type Kind string

const (
	KindSemver            Kind = "semver"
	KindLatest            Kind = "latest"
	KindLatestPrerelease  Kind = "latest-prerelease"
	KindBranch            Kind = "branch"
	KindCommit            Kind = "commit"
)

// Constraint is a parsed version/branch/rev field from a manifest dependency.
type Constraint struct {
	Raw    string
	Kind   Kind
	Prefix string // custom tag prefix (manifest's "prefix" field), beyond the built-in v/V/version-/release- forms
	semver *semver.Constraints
}

// Parse classifies a raw version/branch/rev string. fieldKind is "version",
// "branch", or "rev" (from Dependency.VersionSpec), which disambiguates a
// bare commit-like string from a semver range when the manifest already
// said which field it came from. prefix carries a dependency's custom tag
// prefix (spec.md §4.4), used by DiscoverTags when the source's tags don't
// follow any of the built-in v/V/version-/release- conventions.
func Parse(raw, fieldKind, prefix string) (Constraint, error) {
	raw = strings.TrimSpace(raw)
	switch fieldKind {
	case "branch":
		return Constraint{Raw: raw, Kind: KindBranch, Prefix: prefix}, nil
	case "rev":
		if !gitutil.IsHexString(raw) {
			return Constraint{}, fmt.Errorf("rev %q is not a hex commit SHA", raw)
		}
		return Constraint{Raw: raw, Kind: KindCommit, Prefix: prefix}, nil
	}

	switch raw {
	case "latest", "*":
		return Constraint{Raw: raw, Kind: KindLatest, Prefix: prefix}, nil
	case "latest-prerelease":
		return Constraint{Raw: raw, Kind: KindLatestPrerelease, Prefix: prefix}, nil
	}

	c, err := semver.NewConstraint(raw)
	if err != nil {
		return Constraint{}, fmt.Errorf("invalid version constraint %q: %w", raw, err)
	}
	return Constraint{Raw: raw, Kind: KindSemver, Prefix: prefix, semver: c}, nil
}

// TagVersion pairs a discovered Git tag with its parsed semver, if it parses.
type TagVersion struct {
	Tag        string
	SHA        string
	Version    *semver.Version
	Prerelease bool
}

// builtinTagPrefixes are the tag-naming conventions DiscoverTags always
// recognizes, tried longest-first so "version-" doesn't get shadowed by a
// bare "v" match (spec.md §4.4 lists all four as required forms).
var builtinTagPrefixes = []string{"version-", "release-", "v", "V"}

// stripTagPrefix removes the first matching prefix from name: customPrefix
// (the dependency's own "prefix" field) takes priority when set, then each
// built-in convention in turn. A tag matching none of them is returned
// unchanged, typically failing the subsequent semver parse.
func stripTagPrefix(name, customPrefix string) string {
	if customPrefix != "" && strings.HasPrefix(name, customPrefix) {
		return strings.TrimPrefix(name, customPrefix)
	}
	for _, p := range builtinTagPrefixes {
		if strings.HasPrefix(name, p) {
			return strings.TrimPrefix(name, p)
		}
	}
	return name
}

// DiscoverTags fetches every tag in a bare repo and parses it as a semver,
// skipping tags that aren't valid versions once their prefix is stripped.
// customPrefix, if non-empty, is tried before the built-in v/V/version-/
// release- conventions (spec.md §4.4).
func DiscoverTags(ctx context.Context, source, bareDir, customPrefix string) ([]TagVersion, error) {
	names, err := gitrepo.TagList(ctx, source, bareDir)
	if err != nil {
		return nil, err
	}
	var out []TagVersion
	for _, name := range names {
		trimmed := stripTagPrefix(name, customPrefix)
		v, err := semver.NewVersion(trimmed)
		if err != nil {
			log.Printf("skipping non-semver tag %q: %v", name, err)
			continue
		}
		sha, err := gitrepo.RevParse(ctx, source, bareDir, name)
		if err != nil {
			return nil, err
		}
		out = append(out, TagVersion{Tag: name, SHA: sha, Version: v, Prerelease: v.Prerelease() != ""})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version.GreaterThan(out[j].Version) })
	return out, nil
}

// Resolve picks the best tag satisfying a constraint from a descending-sorted
// candidate list. For KindBranch/KindCommit, the caller resolves via
// gitrepo directly; Resolve only handles the semver-shaped kinds.
func (c Constraint) Resolve(tags []TagVersion) (TagVersion, bool) {
	switch c.Kind {
	case KindLatest:
		for _, t := range tags {
			if !t.Prerelease {
				return t, true
			}
		}
		return TagVersion{}, false
	case KindLatestPrerelease:
		if len(tags) == 0 {
			return TagVersion{}, false
		}
		return tags[0], true
	case KindSemver:
		for _, t := range tags {
			if t.Prerelease && !constraintMentionsPrerelease(c.Raw) {
				continue
			}
			if c.semver.Check(t.Version) {
				return t, true
			}
		}
		return TagVersion{}, false
	default:
		return TagVersion{}, false
	}
}

// constraintMentionsPrerelease reports whether the raw constraint itself
// pins a prerelease version (e.g. "1.0.0-beta.1"), the one case where a
// semver constraint is allowed to match a prerelease tag.
func constraintMentionsPrerelease(raw string) bool {
	return strings.Contains(raw, "-")
}

// IsMutable reports whether this constraint's resolution can change without
// the manifest changing (branches and the "latest" keywords), used by the
// fast-path detector (spec.md §4.10).
func (c Constraint) IsMutable() bool {
	switch c.Kind {
	case KindBranch, KindLatest, KindLatestPrerelease:
		return true
	default:
		return false
	}
}
