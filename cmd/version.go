package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/crytic/slotguard/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the command provider for build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version and build information",
	Long:  `Prints the version of slotguard along with the commit, commit time and Go version it was built with`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.GetInfo()
		jsonOutput, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Fprint(cmd.OutOrStdout(), info.String())
			return nil
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	},
	SilenceUsage: true,
}

func init() {
	versionCmd.Flags().Bool("json", false, "print the build information as JSON")
	rootCmd.AddCommand(versionCmd)
}
