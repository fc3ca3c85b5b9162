package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/slotguard/utils"
	"github.com/stretchr/testify/require"
)

// CopyToTestDirectory copies a file or directory, given relative to the working directory, into a fresh temporary
// directory and returns the absolute path of the copy. Tests which write next to their fixtures, such as the artifact
// hash cache, use the copy so that the package's testdata stays untouched.
func CopyToTestDirectory(t *testing.T, relativePath string) string {
	workingDirectory, err := os.Getwd()
	require.NoError(t, err)
	sourcePath := filepath.Join(workingDirectory, relativePath)

	info, err := os.Stat(sourcePath)
	require.NoError(t, err, "test fixture '%s' does not exist", relativePath)

	targetPath := filepath.Join(t.TempDir(), "slotguardTest", info.Name())
	if info.IsDir() {
		require.NoError(t, utils.CopyDirectory(sourcePath, targetPath, true))
	} else {
		require.NoError(t, utils.CopyFile(sourcePath, targetPath))
	}

	targetPath, err = filepath.Abs(targetPath)
	require.NoError(t, err)
	return targetPath
}

// ExecuteInDirectory runs method with the working directory set to testPath, or to its parent directory if it refers
// to a file. The previous working directory is restored afterward, even if method changed it. Tests calling it must
// not run in parallel.
func ExecuteInDirectory(t *testing.T, testPath string, method func()) {
	previousDirectory, err := os.Getwd()
	require.NoError(t, err)

	info, err := os.Stat(testPath)
	require.NoError(t, err)
	directory := testPath
	if !info.IsDir() {
		directory = filepath.Dir(testPath)
	}

	require.NoError(t, os.Chdir(directory))
	defer func() {
		require.NoError(t, os.Chdir(previousDirectory))
	}()
	method()
}
