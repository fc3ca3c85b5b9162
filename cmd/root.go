package cmd

import (
	"os"

	"github.com/crytic/slotguard/logging"
	"github.com/crytic/slotguard/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "slotguard",
	Short:   "An upgrade-safety checker for Solidity contracts",
	Long:    "slotguard checks that a new version of an upgradeable Solidity contract keeps a compatible storage layout and avoids constructs that are unsafe behind a proxy",
	Version: version.GetInfo().Short(),
}

// cmdLogger is the logger that will be used for the cmd package
var cmdLogger = logging.NewLogger(zerolog.InfoLevel)

func init() {
	cmdLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, true)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
