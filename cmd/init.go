package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/crytic/slotguard/config"
	"github.com/crytic/slotguard/logging/colors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// initCmd represents the command provider for init
var initCmd = &cobra.Command{
	Use:               "init",
	Short:             "Writes a project configuration file",
	Long:              `Writes a project configuration file holding the default settings, updated with any flags provided`,
	Args:              cmdValidateInitArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunInit,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add flags to init command
	addInitFlags()

	// Add the init command and its associated flags to the root command
	rootCmd.AddCommand(initCmd)
}

// cmdValidateInitArgs makes sure that there are no positional arguments provided to the init command
func cmdValidateInitArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("init does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the init command", err)
		return err
	}
	return nil
}

// cmdRunInit executes the init CLI command
func cmdRunInit(cmd *cobra.Command, args []string) error {
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	if outputPath == "" {
		outputPath = config.DefaultProjectConfigFilename
	}

	projectConfig := config.GetDefaultProjectConfig()
	if err = updateProjectConfigWithInitFlags(cmd, projectConfig); err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	written, err := writeProjectConfig(projectConfig, outputPath, force, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	if !written {
		fmt.Fprintln(cmd.OutOrStdout(), "Operation canceled.")
		return nil
	}

	if absoluteOutputPath, err := filepath.Abs(outputPath); err == nil {
		outputPath = absoluteOutputPath
	}
	cmdLogger.Info("Project configuration successfully output to: ", colors.Bold, outputPath, colors.Reset)
	return nil
}

// writeProjectConfig writes the project configuration to outputPath and reports whether it was written. An existing
// file is only overwritten if force is set or if the answer read from in confirms the prompt written to out.
func writeProjectConfig(projectConfig *config.ProjectConfig, outputPath string, force bool, in io.Reader, out io.Writer) (bool, error) {
	if _, err := os.Stat(outputPath); err == nil && !force {
		fmt.Fprintf(out, "The file %s already exists. Overwrite? (y/n): ", outputPath)
		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, errors.WithStack(err)
		}
		if response = strings.TrimSpace(response); response != "y" && response != "Y" {
			return false, nil
		}
	}

	if err := projectConfig.WriteToFile(outputPath); err != nil {
		return false, err
	}
	return true, nil
}
