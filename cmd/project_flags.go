package cmd

import (
	"fmt"

	"github.com/crytic/slotguard/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// addProjectFlags adds the flags shared by every command which analyzes a build
func addProjectFlags(cmd *cobra.Command) {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	cmd.Flags().SortFlags = false

	// Config file
	cmd.Flags().String("config", "", "path to config file")

	// Build directory
	cmd.Flags().String("build-dir", "",
		fmt.Sprintf("directory of the build artifacts to analyze (unless a config file is provided, default is %q)", defaultConfig.Artifacts.BuildDirectory))

	// Store directory
	cmd.Flags().String("store-dir", "",
		fmt.Sprintf("directory of the layout store (unless a config file is provided, default is %q)", defaultConfig.Store.Directory))

	// Store enablement
	cmd.Flags().Bool("no-store", false, "do not read or write the layout store")

	// Logging color
	cmd.Flags().Bool("no-color", false, "disable colored terminal output")

	// Verbose logging
	cmd.Flags().Bool("verbose", false, "show debug logs")
}

// updateProjectConfigWithProjectFlags will update the given projectConfig with any CLI arguments that were provided
// to the shared project flags
func updateProjectConfigWithProjectFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update build directory
	if cmd.Flags().Changed("build-dir") {
		projectConfig.Artifacts.BuildDirectory, err = cmd.Flags().GetString("build-dir")
		if err != nil {
			return err
		}
	}

	// Update store directory
	if cmd.Flags().Changed("store-dir") {
		projectConfig.Store.Directory, err = cmd.Flags().GetString("store-dir")
		if err != nil {
			return err
		}
	}

	// Update store enablement
	if cmd.Flags().Changed("no-store") {
		noStore, err := cmd.Flags().GetBool("no-store")
		if err != nil {
			return err
		}
		projectConfig.Store.Enabled = !noStore
	}

	// Update logging color mode
	if cmd.Flags().Changed("no-color") {
		projectConfig.Logging.NoColor, err = cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
	}

	// Update verbosity
	if cmd.Flags().Changed("verbose") {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}
		if verbose {
			projectConfig.Logging.Level = zerolog.DebugLevel
		}
	}
	return nil
}
