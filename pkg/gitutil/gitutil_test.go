package gitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError("remote: Support for password authentication was removed"))
	assert.True(t, IsAuthError("fatal: Authentication failed for 'https://example.com/repo.git'"))
	assert.False(t, IsAuthError("fatal: repository 'https://example.com/repo.git' does not exist"))
}

func TestIsNetworkError(t *testing.T) {
	assert.True(t, IsNetworkError("fatal: unable to access: Could not resolve host: example.com"))
	assert.True(t, IsNetworkError("ssh: connect to host example.com port 22: Connection refused"))
	assert.False(t, IsNetworkError("fatal: repository not found"))
}

func TestIsRefNotFoundError(t *testing.T) {
	assert.True(t, IsRefNotFoundError("fatal: couldn't find remote ref refs/tags/v9.9.9"))
	assert.True(t, IsRefNotFoundError("fatal: no tag 'v9.9.9' not found in upstream origin"))
	assert.False(t, IsRefNotFoundError("fatal: Authentication failed"))
}

func TestIsRepositoryNotFoundError(t *testing.T) {
	assert.True(t, IsRepositoryNotFoundError("remote: Repository not found."))
	assert.False(t, IsRepositoryNotFoundError("fatal: couldn't find remote ref main"))
}

func TestIsWorktreeConflictError(t *testing.T) {
	assert.True(t, IsWorktreeConflictError("fatal: 'abc123' is already checked out at '/cache/worktrees/community/abc123'"))
	assert.True(t, IsWorktreeConflictError("fatal: '/cache/worktrees/community/abc123' already exists"))
	assert.False(t, IsWorktreeConflictError("fatal: network is unreachable"))
}

func TestIsHexString(t *testing.T) {
	assert.True(t, IsHexString("abc123"))
	assert.True(t, IsHexString("DEADBEEF"))
	assert.False(t, IsHexString(""))
	assert.False(t, IsHexString("v1.0.0"))
	assert.False(t, IsHexString("main"))
}
