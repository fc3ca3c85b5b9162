package compilation

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/logging"
	"github.com/pkg/errors"
)

// DefaultBuildDirectory is the truffle-style build directory artifacts are read from when none is configured.
var DefaultBuildDirectory = filepath.Join("build", "contracts")

// LoadArtifactsFromDirectory reads every truffle-format JSON artifact in the provided directory. Files which are not
// artifacts, or which carry no AST, are skipped with a debug message. Returns the artifacts sorted by source path and
// contract name, or an error if the directory cannot be read or contains no usable artifact.
func LoadArtifactsFromDirectory(buildDirectory string) ([]*types.Artifact, error) {
	logger := logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE)

	info, err := os.Stat(buildDirectory)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read build directory '%s'", buildDirectory)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("build directory '%s' is not a directory", buildDirectory)
	}

	// Find all the compiled truffle artifacts
	matches, err := filepath.Glob(filepath.Join(buildDirectory, "*.json"))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	artifacts := make([]*types.Artifact, 0, len(matches))
	for _, match := range matches {
		// Read the compiled JSON file data
		data, err := os.ReadFile(match)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read artifact '%s'", match)
		}

		artifact, err := types.ParseArtifact(data)
		if err != nil {
			logger.Debug("Skipping ", match, ": ", err)
			continue
		}
		if artifact.FileName == "" {
			artifact.FileName = filepath.Base(artifact.SourcePath)
		}
		artifacts = append(artifacts, artifact)
	}

	if len(artifacts) == 0 {
		return nil, errors.Errorf("no artifacts with an AST were found in '%s', compile the project first", buildDirectory)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].SourcePath != artifacts[j].SourcePath {
			return artifacts[i].SourcePath < artifacts[j].SourcePath
		}
		return artifacts[i].ContractName < artifacts[j].ContractName
	})
	logger.Debug("Loaded ", len(artifacts), " artifacts from ", buildDirectory)
	return artifacts, nil
}

// LoadArtifactIndex loads every artifact in the provided directory and indexes them. A warning is logged when the
// artifacts were produced by more than one compiler version, since node ids are then no longer guaranteed to be
// unique.
func LoadArtifactIndex(buildDirectory string) (*types.ArtifactIndex, error) {
	artifacts, err := LoadArtifactsFromDirectory(buildDirectory)
	if err != nil {
		return nil, err
	}

	index := types.NewArtifactIndex(artifacts)
	if versions := index.CompilerVersions(); len(versions) > 1 {
		logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE).Warn(
			"Artifacts in ", buildDirectory, " were produced by multiple compiler versions ", versions,
			", the build may be stale",
		)
	}
	return index, nil
}
