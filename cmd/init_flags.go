package cmd

import (
	"fmt"

	"github.com/crytic/slotguard/config"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() {
	// Prevent alphabetical sorting of usage message
	initCmd.Flags().SortFlags = false

	// Output path for configuration
	initCmd.Flags().String("out", "", fmt.Sprintf("output path for the new project configuration file (default is %q)", config.DefaultProjectConfigFilename))

	// Overwrite without asking
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration file without asking")

	// Build directory
	initCmd.Flags().String("build-dir", "", "directory of the build artifacts to analyze")

	// Original build
	initCmd.Flags().String("original-build", "", "directory of the build artifacts of the deployed version")

	// Contracts to validate
	initCmd.Flags().StringSlice("contracts", []string{}, "contracts to validate, instead of every deployable contract")
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to
// the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update build directory
	if cmd.Flags().Changed("build-dir") {
		projectConfig.Artifacts.BuildDirectory, err = cmd.Flags().GetString("build-dir")
		if err != nil {
			return err
		}
	}

	// Update original build directory
	if cmd.Flags().Changed("original-build") {
		projectConfig.Artifacts.OriginalBuildDirectory, err = cmd.Flags().GetString("original-build")
		if err != nil {
			return err
		}
	}

	// Update contracts
	if cmd.Flags().Changed("contracts") {
		projectConfig.Validation.Contracts, err = cmd.Flags().GetStringSlice("contracts")
		if err != nil {
			return err
		}
	}

	return projectConfig.Validate()
}
