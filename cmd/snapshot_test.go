package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSnapshotProject ensures that snapshots are only recorded when a layout changes, unless forced.
func TestSnapshotProject(t *testing.T) {
	projectConfig := testProjectConfig(t, writeBoxBuild(t, boxVariable{"value", "uint256"}))

	stored, err := snapshotProject(projectConfig, nil, false)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Box", stored[0].ContractName)
	assert.Equal(t, "contracts/Box.sol", stored[0].SourcePath)
	assert.NotEmpty(t, stored[0].BuildHash)

	// An unchanged layout is skipped
	stored, err = snapshotProject(projectConfig, nil, false)
	require.NoError(t, err)
	assert.Empty(t, stored)

	stored, err = snapshotProject(projectConfig, []string{"Box"}, true)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	projectConfig.Artifacts.BuildDirectory = writeBoxBuild(t, boxVariable{"value", "uint256"}, boxVariable{"owner", "address"})
	stored, err = snapshotProject(projectConfig, nil, false)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Len(t, stored[0].Layout.Storage, 2)

	// Every recorded snapshot is part of the history, the latest one is listed on its own
	var history bytes.Buffer
	require.NoError(t, writeHistory(&history, projectConfig, "Box"))
	lines := strings.Split(strings.TrimSpace(history.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "CONTRACT"))
	assert.Contains(t, lines[3], shortHash(stored[0].Fingerprint))

	var latest bytes.Buffer
	require.NoError(t, writeHistory(&latest, projectConfig, ""))
	lines = strings.Split(strings.TrimSpace(latest.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], stored[0].ID.String())

	// Unknown contracts have no history
	var empty bytes.Buffer
	require.NoError(t, writeHistory(&empty, projectConfig, "Unknown"))
	assert.Empty(t, empty.String())
}

// TestSnapshotProjectErrors ensures that snapshots require an enabled store and known contracts.
func TestSnapshotProjectErrors(t *testing.T) {
	projectConfig := testProjectConfig(t, writeBoxBuild(t, boxVariable{"value", "uint256"}))

	_, err := snapshotProject(projectConfig, []string{"Unknown"}, false)
	assert.Error(t, err)

	projectConfig.Store.Enabled = false
	_, err = snapshotProject(projectConfig, nil, false)
	assert.ErrorContains(t, err, "disabled")
	assert.ErrorContains(t, writeHistory(&bytes.Buffer{}, projectConfig, ""), "disabled")
}

// TestShortHash ensures that hashes are shortened to twelve characters.
func TestShortHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
	assert.Equal(t, "abc", shortHash("abc"))
}
