package cmd

import (
	"fmt"

	"github.com/crytic/slotguard/config"
	"github.com/spf13/cobra"
)

// addValidateFlags adds the various flags for the validate command
func addValidateFlags() error {
	defaultConfig := config.GetDefaultProjectConfig()

	// Config, build and store flags
	addProjectFlags(validateCmd)

	// Original build
	validateCmd.Flags().String("original-build", "",
		"directory of the build artifacts of the deployed version (takes precedence over the layout store)")

	// Number of workers
	validateCmd.Flags().Int("workers", 0,
		fmt.Sprintf("number of contracts validated concurrently (unless a config file is provided, default is %d)", defaultConfig.Validation.Workers))

	// Warnings policy
	validateCmd.Flags().Bool("fail-on-warnings", false,
		fmt.Sprintf("fail validation on storage appends, renames, type changes and pops (unless a config file is provided, default is %t)", defaultConfig.Validation.FailOnWarnings))

	// Output format
	validateCmd.Flags().Bool("json", false, "print the validation results as JSON")
	return nil
}

// updateProjectConfigWithValidateFlags will update the given projectConfig with any CLI arguments that were provided
// to the validate command
func updateProjectConfigWithValidateFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update original build directory
	if cmd.Flags().Changed("original-build") {
		projectConfig.Artifacts.OriginalBuildDirectory, err = cmd.Flags().GetString("original-build")
		if err != nil {
			return err
		}
	}

	// Update number of workers
	if cmd.Flags().Changed("workers") {
		projectConfig.Validation.Workers, err = cmd.Flags().GetInt("workers")
		if err != nil {
			return err
		}
	}

	// Update warnings policy
	if cmd.Flags().Changed("fail-on-warnings") {
		projectConfig.Validation.FailOnWarnings, err = cmd.Flags().GetBool("fail-on-warnings")
		if err != nil {
			return err
		}
	}
	return projectConfig.Validate()
}
