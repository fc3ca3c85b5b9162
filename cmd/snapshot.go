package cmd

import (
	"os"

	"github.com/crytic/slotguard/compilation"
	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/config"
	"github.com/crytic/slotguard/layout"
	"github.com/crytic/slotguard/layoutstore"
	"github.com/crytic/slotguard/logging/colors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// snapshotCmd represents the command provider for recording storage layouts
var snapshotCmd = &cobra.Command{
	Use:               "snapshot [contract...]",
	Short:             "Records the storage layouts of the current build",
	Long:              `Records the storage layouts of the current build in the layout store, so that later builds can be validated against them. Run it once a version is deployed.`,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunSnapshot,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the snapshot command
	addSnapshotFlags()

	// Add the snapshot command and its associated flags to the root command
	rootCmd.AddCommand(snapshotCmd)
}

// cmdRunSnapshot executes the CLI snapshot command
func cmdRunSnapshot(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the snapshot command", err)
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		cmdLogger.Error("Failed to run the snapshot command", err)
		return err
	}
	if err = setupLogging(projectConfig, os.Stdout); err != nil {
		cmdLogger.Error("Failed to run the snapshot command", err)
		return err
	}

	if _, err = snapshotProject(projectConfig, args, force); err != nil {
		cmdLogger.Error("Failed to run the snapshot command", err)
		return withExitCode(err)
	}
	return nil
}

// snapshotProject records the layouts of the selected contracts of the configured build and returns the snapshots
// that were stored. A contract whose layout is identical to its latest snapshot is skipped unless force is set.
func snapshotProject(projectConfig *config.ProjectConfig, contractNames []string, force bool) ([]*layoutstore.Snapshot, error) {
	if !projectConfig.Store.Enabled {
		return nil, errors.New("the layout store is disabled")
	}

	artifacts, err := compilation.LoadArtifactsFromDirectory(projectConfig.Artifacts.BuildDirectory)
	if err != nil {
		return nil, err
	}
	index := types.NewArtifactIndex(artifacts)
	buildHash := compilation.ComputeArtifactHash(artifacts)

	contractNames = selectContracts(contractNames, projectConfig, index)
	if len(contractNames) == 0 {
		return nil, errors.Errorf("no deployable contracts were found in '%s'", projectConfig.Artifacts.BuildDirectory)
	}

	store, err := layoutstore.Open(projectConfig.Store.Directory)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	stored := make([]*layoutstore.Snapshot, 0, len(contractNames))
	for _, name := range contractNames {
		artifact, err := index.ByQualifiedName(name)
		if err != nil {
			return nil, err
		}
		storageLayout, err := layout.NewBuilder().Build(index, artifact)
		if err != nil {
			return nil, errors.WithMessagef(err, "could not build the layout of '%s'", name)
		}
		snapshot, err := layoutstore.NewSnapshot(artifact, storageLayout, buildHash)
		if err != nil {
			return nil, err
		}
		// Snapshots are keyed by the name validation looks them up with
		snapshot.ContractName = name

		latest, err := store.Get(name)
		if err != nil && !errors.Is(err, layoutstore.ErrSnapshotNotFound) {
			return nil, err
		}
		if latest != nil && latest.Fingerprint == snapshot.Fingerprint && !force {
			cmdLogger.Info("The layout of ", colors.Bold, name, colors.Reset, " is unchanged since its last snapshot, skipping")
			continue
		}

		if err = store.Put(snapshot); err != nil {
			return nil, err
		}
		stored = append(stored, snapshot)
		cmdLogger.Info(
			"Recorded the layout of ", colors.Bold, name, colors.Reset, " (", len(storageLayout.Storage), " variables, fingerprint ",
			colors.DarkGray, shortHash(snapshot.Fingerprint), colors.Reset, ")",
		)
	}
	return stored, nil
}

// shortHash returns the first 12 characters of a hex hash.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
