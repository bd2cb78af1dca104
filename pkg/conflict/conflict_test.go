package conflict

import (
	"testing"

	"github.com/aig787/agpm/pkg/agpmerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectVersionConflictsFindsMismatch(t *testing.T) {
	reqs := []Requirement{
		{ResourceID: "community/agents/a.md", SHA: "sha1", RequiredBy: agpmerrors.RequiredBy{Alias: "a", Constraint: "^1.0.0"}},
		{ResourceID: "community/agents/a.md", SHA: "sha2", RequiredBy: agpmerrors.RequiredBy{ResourceID: "community/agents/parent.md", Constraint: "^2.0.0"}},
		{ResourceID: "community/agents/b.md", SHA: "sha3", RequiredBy: agpmerrors.RequiredBy{Alias: "b", Constraint: "1.0.0"}},
	}
	conflicts := DetectVersionConflicts(reqs)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "community/agents/a.md", conflicts[0].ResourceID)
	assert.ElementsMatch(t, []string{"sha1", "sha2"}, conflicts[0].SHAs)
}

func TestDetectVersionConflictsNoneWhenAllAgree(t *testing.T) {
	reqs := []Requirement{
		{ResourceID: "community/agents/a.md", SHA: "sha1", RequiredBy: agpmerrors.RequiredBy{Alias: "a", Constraint: "^1.0.0"}},
		{ResourceID: "community/agents/a.md", SHA: "sha1", RequiredBy: agpmerrors.RequiredBy{ResourceID: "community/agents/parent.md", Constraint: "^1.0.0"}},
	}
	assert.Empty(t, DetectVersionConflicts(reqs))
}

func TestDetectTargetPathConflicts(t *testing.T) {
	placements := []Placement{
		{TargetPath: ".claude/agents/a.md", Name: "alias-a", ContentHash: "sha256:aaa"},
		{TargetPath: ".claude/agents/a.md", Name: "alias-b", ContentHash: "sha256:bbb"},
		{TargetPath: ".claude/agents/c.md", Name: "alias-c", ContentHash: "sha256:ccc"},
	}
	conflicts := DetectTargetPathConflicts(placements)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ".claude/agents/a.md", conflicts[0].TargetPath)
}

func TestDetectTargetPathConflictsIdenticalContentIsNotConflict(t *testing.T) {
	placements := []Placement{
		{TargetPath: ".claude/agents/a.md", Name: "alias-a", ContentHash: "sha256:aaa"},
		{TargetPath: ".claude/agents/a.md", Name: "alias-b", ContentHash: "sha256:aaa"},
	}
	assert.Empty(t, DetectTargetPathConflicts(placements))
}
