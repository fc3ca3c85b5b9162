package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoFormatting(t *testing.T) {
	t.Parallel()

	info := Info{Version: "0.3.0", GoVersion: "go1.23.3"}
	assert.Equal(t, "0.3.0", info.Short())
	assert.Equal(t, "slotguard version 0.3.0\n  Go version: go1.23.3\n", info.String())

	info.GitCommit = "1a2b3c4d5e6f"
	info.GitCommitTime = "2024-05-01T10:00:00Z"
	info.GitTreeDirty = true
	assert.Equal(t, "1a2b3c4-dirty", info.ShortCommit())
	assert.Equal(t, "0.3.0+1a2b3c4-dirty", info.Short())
	assert.Contains(t, info.String(), "  Built:      2024-05-01 10:00:00 UTC\n")
}

func TestApplyBuildSettings(t *testing.T) {
	commit, commitTime, dirty := GitCommit, GitCommitTime, GitTreeDirty
	defer func() {
		GitCommit, GitCommitTime, GitTreeDirty = commit, commitTime, dirty
	}()

	GitCommit, GitCommitTime, GitTreeDirty = "ldflags", "", ""
	applyBuildSettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "embedded"},
		{Key: "vcs.time", Value: "2024-05-01T10:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "GOOS", Value: "linux"},
	})

	info := GetInfo()
	assert.Equal(t, "ldflags", info.GitCommit)
	assert.Equal(t, "2024-05-01T10:00:00Z", info.GitCommitTime)
	assert.True(t, info.GitTreeDirty)
}
