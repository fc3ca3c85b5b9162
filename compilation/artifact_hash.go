package compilation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/logging"
	"github.com/crytic/slotguard/logging/colors"
	"github.com/crytic/slotguard/utils"
	"github.com/pkg/errors"
)

// ArtifactHashCacheFileName is the name of the file used to store the artifact hash.
const ArtifactHashCacheFileName = ".slotguard-artifact-hash"

// ArtifactHashCache stores the hash of a set of build artifacts along with metadata.
type ArtifactHashCache struct {
	// Hash is the SHA-256 hash of the artifacts.
	Hash string `json:"hash"`
	// Timestamp is when the hash was computed.
	Timestamp time.Time `json:"timestamp"`
}

// ComputeArtifactHash computes a SHA-256 hash over the identity and bytecode of every provided artifact. The hash
// is computed deterministically by sorting artifacts by source path and contract name before hashing.
func ComputeArtifactHash(artifacts []*types.Artifact) string {
	hasher := sha256.New()

	sorted := make([]*types.Artifact, len(artifacts))
	copy(sorted, artifacts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SourcePath != sorted[j].SourcePath {
			return sorted[i].SourcePath < sorted[j].SourcePath
		}
		return sorted[i].ContractName < sorted[j].ContractName
	})

	for _, artifact := range sorted {
		hasher.Write([]byte(artifact.SourcePath))
		hasher.Write([]byte{0})
		hasher.Write([]byte(artifact.ContractName))
		hasher.Write([]byte{0})
		hasher.Write([]byte(artifact.Bytecode))
		hasher.Write([]byte{0})
		hasher.Write([]byte(artifact.DeployedBytecode))
		hasher.Write([]byte{0})
	}

	return hex.EncodeToString(hasher.Sum(nil))
}

// LoadArtifactHashCache loads the artifact hash cache from the specified directory.
// Returns nil if the cache file does not exist or cannot be parsed.
func LoadArtifactHashCache(directory string) *ArtifactHashCache {
	cachePath := filepath.Join(directory, ArtifactHashCacheFileName)
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil
	}

	var cache ArtifactHashCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil
	}

	return &cache
}

// SaveArtifactHashCache saves the artifact hash cache to the specified directory.
// Returns an error if the cache cannot be written.
func SaveArtifactHashCache(directory string, cache *ArtifactHashCache) error {
	if err := utils.MakeDirectory(directory); err != nil {
		return errors.Wrap(err, "failed to create cache directory")
	}

	cachePath := filepath.Join(directory, ArtifactHashCacheFileName)
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal cache")
	}

	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write cache file")
	}

	return nil
}

// NotifyArtifactHashStatus compares the current artifact hash with a cached hash and logs whether the artifacts
// changed since the last run. It also updates the cache with the new hash and returns it.
func NotifyArtifactHashStatus(
	artifacts []*types.Artifact,
	cacheDirectory string,
	logger *logging.Logger,
) string {
	currentHash := ComputeArtifactHash(artifacts)
	if len(artifacts) == 0 {
		return currentHash
	}

	cachedHash := LoadArtifactHashCache(cacheDirectory)
	if cachedHash == nil || cachedHash.Hash != currentHash {
		logger.Info(
			colors.Bold, "artifacts: ", colors.Reset,
			"analyzing a ", colors.GreenBold, "new", colors.Reset, " set of build artifacts",
		)
	} else {
		timeSince := time.Since(cachedHash.Timestamp)
		logger.Warn(
			colors.Bold, "artifacts: ", colors.Reset,
			"analyzing the ", colors.YellowBold, "same", colors.Reset,
			" build artifacts as previously (last run: ", formatDuration(timeSince), " ago), recompile if sources changed",
		)
	}

	newCache := &ArtifactHashCache{
		Hash:      currentHash,
		Timestamp: time.Now(),
	}
	if err := SaveArtifactHashCache(cacheDirectory, newCache); err != nil {
		logger.Warn("Failed to save artifact hash cache", err)
	}
	return currentHash
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
