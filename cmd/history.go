package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/crytic/slotguard/config"
	"github.com/crytic/slotguard/layoutstore"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// historyCmd represents the command provider for listing recorded storage layouts
var historyCmd = &cobra.Command{
	Use:               "history [contract]",
	Short:             "Lists the recorded storage layouts",
	Long:              `Lists the latest snapshot of every contract in the layout store or, if a contract is provided, every snapshot of that contract, oldest first`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunHistory,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Config, build and store flags
	addProjectFlags(historyCmd)

	// Add the history command and its associated flags to the root command
	rootCmd.AddCommand(historyCmd)
}

// cmdRunHistory executes the CLI history command
func cmdRunHistory(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the history command", err)
		return err
	}
	if err = setupLogging(projectConfig, os.Stderr); err != nil {
		cmdLogger.Error("Failed to run the history command", err)
		return err
	}

	contractName := ""
	if len(args) == 1 {
		contractName = args[0]
	}
	if err = writeHistory(cmd.OutOrStdout(), projectConfig, contractName); err != nil {
		cmdLogger.Error("Failed to run the history command", err)
		return err
	}
	return nil
}

// writeHistory writes one row per snapshot: the history of contractName, or the latest snapshot of every contract if
// it is empty.
func writeHistory(out io.Writer, projectConfig *config.ProjectConfig, contractName string) error {
	if !projectConfig.Store.Enabled {
		return errors.New("the layout store is disabled")
	}
	store, err := layoutstore.Open(projectConfig.Store.Directory)
	if err != nil {
		return err
	}
	defer store.Close()

	var snapshots []*layoutstore.Snapshot
	if contractName == "" {
		snapshots, err = store.List()
	} else {
		snapshots, err = store.History(contractName)
	}
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		cmdLogger.Info("No layout snapshots were found in ", store.Path())
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "CONTRACT\tRECORDED\tVARIABLES\tFINGERPRINT\tCOMPILER\tID")
	for _, snapshot := range snapshots {
		variables := 0
		if snapshot.Layout != nil {
			variables = len(snapshot.Layout.Storage)
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\t%s\t%s\t%s\n",
			snapshot.ContractName, snapshot.CreatedAt.Local().Format(time.DateTime), variables,
			shortHash(snapshot.Fingerprint), snapshot.CompilerVersion, snapshot.ID)
	}
	return errors.WithStack(writer.Flush())
}
