// Package resolver implements automatic version backtracking (spec.md §4.6
// "Backtracking resolver (C6)"): when two requirements for the same
// resource_id resolve to different commits, try alternative versions of the
// minority requirements until they land on the same commit as the majority,
// or give up with a typed termination reason.
package resolver

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/aig787/agpm/pkg/conflict"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/aig787/agpm/pkg/version"
)

var log = logger.New("resolver")

const (
	defaultMaxAttempts   = 100
	defaultMaxIterations = 10
	defaultTimeout       = 10 * time.Second
)

// Requirement is one manifest or transitive dependency edge awaiting
// version resolution.
type Requirement struct {
	ResourceID string
	Source     string
	Constraint version.Constraint
	RequiredBy agpmerrors.RequiredBy

	// SHA and Tag are filled in by Resolve; zero until then.
	SHA string
	Tag string
}

// TagProvider fetches the candidate tags for a source, used to find
// alternative versions during backtracking. prefix is the requirement's
// constraint's custom tag prefix, if any. Implementations typically wrap
// pkg/version.DiscoverTags against a pkg/cache-managed bare repo.
type TagProvider func(ctx context.Context, source, prefix string) ([]version.TagVersion, error)

// Update records one requirement whose resolved version was changed during backtracking.
type Update struct {
	ResourceID string
	OldSHA     string
	NewSHA     string
	NewTag     string
}

// Iteration captures one pass of the backtracking loop, for diagnostics.
type Iteration struct {
	Conflicts []*agpmerrors.VersionConflictError
	Updates   []Update
}

// Result is the outcome of a Resolve call.
type Result struct {
	Requirements []Requirement
	Resolved     bool
	Reason       agpmerrors.TerminationReason
	Updates      []Update
	Iterations   []Iteration
	Attempts     int
}

// Options tunes the backtracking limits (spec.md §4.6 performance limits).
type Options struct {
	MaxAttempts   int
	MaxIterations int
	Timeout       time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return o
}

// Resolve performs the initial per-requirement version resolution, then
// iteratively backtracks on any SHA conflicts it finds.
func Resolve(ctx context.Context, reqs []Requirement, tags TagProvider, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	start := time.Now()

	resolved := make([]Requirement, len(reqs))
	copy(resolved, reqs)
	for i, r := range resolved {
		// A requirement whose SHA is already populated (branch/commit/local
		// pins resolved outside the tag-based constraint system by the
		// caller) is fixed: it still participates in conflict detection and
		// majority voting below, but it has no alternative to backtrack to.
		if r.SHA != "" {
			continue
		}
		candidates, err := tags(ctx, r.Source, r.Constraint.Prefix)
		if err != nil {
			return nil, err
		}
		tv, ok := r.Constraint.Resolve(candidates)
		if !ok {
			return nil, &agpmerrors.VersionConflictError{ResourceID: r.ResourceID, RequiredBy: []agpmerrors.RequiredBy{r.RequiredBy}}
		}
		resolved[i].SHA = tv.SHA
		resolved[i].Tag = tv.Tag
	}

	result := &Result{Requirements: resolved}
	attempts := 0

	for iterationNum := 1; iterationNum <= opts.MaxIterations; iterationNum++ {
		if time.Since(start) > opts.Timeout {
			result.Reason = agpmerrors.TerminationTimeout
			return result, nil
		}

		conflicts := detect(resolved)
		if len(conflicts) == 0 {
			result.Resolved = true
			result.Reason = agpmerrors.TerminationSuccess
			result.Attempts = attempts
			return result, nil
		}

		var iterUpdates []Update
		progressed := false
		for _, c := range conflicts {
			target := majoritySHA(resolved, c.ResourceID)
			for i, r := range resolved {
				if r.ResourceID != c.ResourceID || r.SHA == target {
					continue
				}
				if attempts >= opts.MaxAttempts {
					result.Reason = agpmerrors.TerminationMaxAttempts
					result.Attempts = attempts
					return result, nil
				}
				attempts++

				candidates, err := tags(ctx, r.Source, r.Constraint.Prefix)
				if err != nil {
					return nil, err
				}
				alt, ok := findAlternative(r.Constraint, candidates, target)
				if !ok {
					continue
				}
				log.Printf("backtracking %s: %s -> %s (%s)", r.ResourceID, r.SHA, alt.SHA, alt.Tag)
				iterUpdates = append(iterUpdates, Update{ResourceID: r.ResourceID, OldSHA: r.SHA, NewSHA: alt.SHA, NewTag: alt.Tag})
				resolved[i].SHA = alt.SHA
				resolved[i].Tag = alt.Tag
				progressed = true
			}
		}

		result.Iterations = append(result.Iterations, Iteration{Conflicts: conflicts, Updates: iterUpdates})
		result.Updates = append(result.Updates, iterUpdates...)

		if !progressed {
			result.Reason = agpmerrors.TerminationNoCompatibleVersion
			result.Attempts = attempts
			return result, nil
		}

		if oscillating(result.Iterations) {
			result.Reason = agpmerrors.TerminationOscillation
			result.Attempts = attempts
			return result, nil
		}
	}

	result.Reason = agpmerrors.TerminationMaxIterations
	result.Attempts = attempts
	return result, nil
}

func detect(reqs []Requirement) []*agpmerrors.VersionConflictError {
	var creqs []conflict.Requirement
	for _, r := range reqs {
		creqs = append(creqs, conflict.Requirement{ResourceID: r.ResourceID, SHA: r.SHA, RequiredBy: r.RequiredBy})
	}
	return conflict.DetectVersionConflicts(creqs)
}

// directVoteWeight outvotes a transitive requirement on a tie: a direct
// manifest dependency (RequiredBy.Alias set) reflects what the project
// author actually asked for, so it counts for more than a requirement
// pulled in as someone else's transitive dependency (spec.md §4.6).
const (
	directVoteWeight     = 2
	transitiveVoteWeight = 1
)

// majoritySHA picks the SHA with the most weighted requirements behind it
// among the current resolutions for resourceID. Direct requirements outvote
// transitive ones; remaining ties break toward the highest resolved semver
// version, then lexicographically by SHA for full determinism.
func majoritySHA(resolved []Requirement, resourceID string) string {
	weights := map[string]int{}
	tags := map[string]string{}
	for _, r := range resolved {
		if r.ResourceID != resourceID {
			continue
		}
		w := transitiveVoteWeight
		if r.RequiredBy.Alias != "" {
			w = directVoteWeight
		}
		weights[r.SHA] += w
		if tags[r.SHA] == "" {
			tags[r.SHA] = r.Tag
		}
	}
	var shas []string
	for sha := range weights {
		shas = append(shas, sha)
	}
	sort.Slice(shas, func(i, j int) bool {
		if weights[shas[i]] != weights[shas[j]] {
			return weights[shas[i]] > weights[shas[j]]
		}
		vi, ei := semver.NewVersion(strings.TrimPrefix(tags[shas[i]], "v"))
		vj, ej := semver.NewVersion(strings.TrimPrefix(tags[shas[j]], "v"))
		if ei == nil && ej == nil && !vi.Equal(vj) {
			return vi.GreaterThan(vj)
		}
		return shas[i] < shas[j]
	})
	return shas[0]
}

// findAlternative looks for a tag satisfying the constraint whose SHA
// matches target.
func findAlternative(c version.Constraint, candidates []version.TagVersion, target string) (version.TagVersion, bool) {
	for _, t := range candidates {
		if t.SHA != target {
			continue
		}
		if tv, ok := c.Resolve([]version.TagVersion{t}); ok {
			return tv, true
		}
	}
	return version.TagVersion{}, false
}

// oscillating reports whether the latest iteration's conflict set exactly
// matches an earlier one, meaning backtracking is looping without converging.
func oscillating(history []Iteration) bool {
	if len(history) < 2 {
		return false
	}
	latest := signature(history[len(history)-1].Conflicts)
	for _, it := range history[:len(history)-1] {
		if signature(it.Conflicts) == latest {
			return true
		}
	}
	return false
}

func signature(conflicts []*agpmerrors.VersionConflictError) string {
	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		shas := append([]string(nil), c.SHAs...)
		sort.Strings(shas)
		ids = append(ids, c.ResourceID+":"+joinShas(shas))
	}
	sort.Strings(ids)
	return joinShas(ids)
}

func joinShas(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += "|"
		}
		out += s
	}
	return out
}

// Error builds the typed failure error for an unresolved Result.
func (r *Result) Error() error {
	if r.Resolved {
		return nil
	}
	conflicts := detect(r.Requirements)
	return &agpmerrors.BacktrackFailureError{Reason: r.Reason, Conflicts: conflicts}
}
