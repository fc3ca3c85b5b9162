package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/crytic/slotguard/compilation"
	"github.com/crytic/slotguard/layout"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// layoutCmd represents the command provider for printing storage layouts
var layoutCmd = &cobra.Command{
	Use:               "layout <contract>",
	Short:             "Prints the storage layout of a contract",
	Long:              `Prints the storage variables of a contract in storage order, base contracts first, together with their types`,
	Args:              cmdValidateLayoutArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunLayout,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the layout command
	addLayoutFlags()

	// Add the layout command and its associated flags to the root command
	rootCmd.AddCommand(layoutCmd)
}

// cmdValidateLayoutArgs makes sure that exactly one contract is provided to the layout command
func cmdValidateLayoutArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		err = fmt.Errorf("layout expects exactly one contract name, optionally qualified as <sourcePath>:<name>")
		cmdLogger.Error("Failed to validate args to the layout command", err)
		return err
	}
	return nil
}

// cmdRunLayout executes the CLI layout command
func cmdRunLayout(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the layout command", err)
		return err
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		cmdLogger.Error("Failed to run the layout command", err)
		return err
	}
	if err = setupLogging(projectConfig, os.Stderr); err != nil {
		cmdLogger.Error("Failed to run the layout command", err)
		return err
	}

	index, err := compilation.LoadArtifactIndex(projectConfig.Artifacts.BuildDirectory)
	if err != nil {
		cmdLogger.Error("Failed to run the layout command", err)
		return err
	}
	storageLayout, err := layout.BuildLayout(index, args[0])
	if err != nil {
		cmdLogger.Error("Failed to run the layout command", err)
		return withExitCode(err)
	}

	if jsonOutput {
		err = writeLayoutJSON(cmd.OutOrStdout(), storageLayout)
	} else {
		err = writeLayoutTable(cmd.OutOrStdout(), storageLayout)
	}
	if err != nil {
		cmdLogger.Error("Failed to run the layout command", err)
		return err
	}
	return nil
}

// writeLayoutJSON writes a storage layout as an indented JSON document.
func writeLayoutJSON(out io.Writer, storageLayout *layout.StorageLayout) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return errors.WithStack(encoder.Encode(storageLayout))
}

// writeLayoutTable writes one row per storage variable, in storage order.
func writeLayoutTable(out io.Writer, storageLayout *layout.StorageLayout) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "#\tVARIABLE\tTYPE\tCONTRACT\tSOURCE")
	for i, slot := range storageLayout.Storage {
		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n", i, slot.Label, typeLabel(storageLayout, slot.Type), slot.Contract, slot.SourcePath)
	}
	return errors.WithStack(writer.Flush())
}
