// Package gitignore maintains the managed block inside the project's
// .gitignore (spec.md §4.11 "`.gitignore` updater (C11)").
package gitignore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aig787/agpm/pkg/logger"
)

var log = logger.New("gitignore")

const (
	startMarker = "# >>> agpm managed <<<"
	endMarker   = "# <<< agpm managed >>>"
)

// Update rewrites the managed block inside projectRoot/.gitignore (creating
// it if necessary) to list every path in installedPaths, relative to
// projectRoot, in sorted order, leaving any unmanaged lines untouched
// (spec.md §8 P9 "gitignore idempotence").
func Update(projectRoot string, installedPaths []string) error {
	path := filepath.Join(projectRoot, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	before, _, after := splitManaged(string(existing))

	sorted := append([]string(nil), installedPaths...)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(before)
	if before != "" && !strings.HasSuffix(before, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(startMarker + "\n")
	for _, p := range sorted {
		b.WriteString("/" + filepath.ToSlash(p) + "\n")
	}
	b.WriteString(endMarker + "\n")
	b.WriteString(after)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	log.Printf("updated managed block with %d entries", len(sorted))
	return nil
}

// splitManaged splits content into the text before the managed block, the
// block's current entries (unused by Update but kept for callers that want
// to inspect it), and the text after the block. If no managed block exists,
// before is the whole file and after is "".
func splitManaged(content string) (before string, managed []string, after string) {
	startIdx := strings.Index(content, startMarker)
	if startIdx < 0 {
		return content, nil, ""
	}
	endIdx := strings.Index(content, endMarker)
	if endIdx < 0 || endIdx < startIdx {
		return content, nil, ""
	}
	before = content[:startIdx]
	block := content[startIdx+len(startMarker) : endIdx]
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			managed = append(managed, line)
		}
	}
	after = content[endIdx+len(endMarker):]
	after = strings.TrimPrefix(after, "\n")
	return before, managed, after
}
