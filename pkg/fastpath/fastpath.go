// Package fastpath implements the install-time fast-path detector (spec.md
// §4.10 "Fast-path detector (C10)"): decide whether a project is already in
// compliance with its manifest (ultra-fast: skip everything), merely
// missing some installed files (fast: reinstall only), or needs a full
// re-resolution (cold).
package fastpath

import (
	"os"
	"path/filepath"

	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/aig787/agpm/pkg/logger"
	"github.com/aig787/agpm/pkg/lockfile"
	"github.com/aig787/agpm/pkg/manifest"
)

var log = logger.New("fastpath")

// Tier is the outcome of Detect.
type Tier int

const (
	// Cold means run full resolution and installation.
	Cold Tier = iota
	// Fast means reuse the lockfile but run installation (some files missing).
	Fast
	// UltraFast means skip resolution and installation entirely.
	UltraFast
)

func (t Tier) String() string {
	switch t {
	case UltraFast:
		return "ultra-fast"
	case Fast:
		return "fast"
	default:
		return "cold"
	}
}

// Detect implements spec.md §4.10's three tiers plus the --frozen security
// guard. projectRoot is used to check install_target_path presence/size.
func Detect(m *manifest.Manifest, lf *lockfile.Lockfile, projectRoot string, frozen bool) (Tier, error) {
	if lf == nil {
		log.Printf("no lockfile present: cold path")
		return Cold, nil
	}

	// The --frozen security guard must run before any fingerprint check can
	// short-circuit to Cold: a changed source URL changes the fingerprint
	// too, and silently re-resolving instead of aborting is exactly what
	// --frozen exists to prevent (spec.md §8 P10).
	if frozen {
		if err := checkFrozenSources(m, lf); err != nil {
			return Cold, err
		}
	}

	fingerprint, err := m.Fingerprint()
	if err != nil {
		return Cold, err
	}
	if fingerprint != lf.ManifestHash {
		log.Printf("manifest_hash mismatch: cold path")
		return Cold, nil
	}

	if lf.MutableDeps {
		log.Printf("lockfile has mutable deps: at most fast path")
		return Fast, nil
	}

	allPresent := true
	for _, e := range lf.AllEntries() {
		full := filepath.Join(projectRoot, filepath.FromSlash(e.InstallTargetPath))
		info, err := os.Stat(full)
		if err != nil || info.Size() == 0 {
			allPresent = false
			break
		}
	}
	if allPresent {
		log.Printf("ultra-fast path: every installed file present and non-empty")
		return UltraFast, nil
	}
	log.Printf("fast path: at least one installed file missing")
	return Fast, nil
}

// checkFrozenSources implements the §4.10 security guard: in --frozen mode,
// every source URL recorded in the lockfile must match the manifest's
// current URL for that source name (spec.md §8 P10).
func checkFrozenSources(m *manifest.Manifest, lf *lockfile.Lockfile) error {
	for _, e := range lf.AllEntries() {
		if e.Source == "" || e.URL == "" {
			continue
		}
		current, ok := m.Sources[e.Source]
		if !ok {
			return &agpmerrors.FrozenMismatchError{Source: e.Source, LockfileURL: e.URL, ManifestURL: ""}
		}
		if current != e.URL {
			return &agpmerrors.FrozenMismatchError{Source: e.Source, LockfileURL: e.URL, ManifestURL: current}
		}
	}
	return nil
}
