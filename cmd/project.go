package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/crytic/slotguard/cmd/exitcodes"
	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/config"
	"github.com/crytic/slotguard/inheritance"
	"github.com/crytic/slotguard/layout"
	"github.com/crytic/slotguard/logging"
	"github.com/crytic/slotguard/logging/colors"
	"github.com/crytic/slotguard/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cmdValidFlagArgs returns the flags of a command which have not been used yet, for dynamic completion.
func cmdValidFlagArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Gather a list of flags that are available to be used in the current command but have not been used yet
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			// Include the "--" prefix so that the suggestions are not mistaken for positional arguments
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}

// loadProjectConfig resolves the project configuration of a command and navigates through the following
// possibilities:
// #1: We will search for either a custom config file (via --config) or the default (slotguard.json).
// If we find it, read it. If we can't read it, throw an error.
// #2: If a custom file was provided (--config was used), and we can't find the file, throw an error.
// #3: If slotguard.json can't be found, use the default project configuration.
// The working directory is changed to the directory of the configuration file, as the paths it holds are relative to
// it.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	var projectConfig *config.ProjectConfig

	// Check to see if --config flag was used and store the value of --config flag
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If --config was not used, look for `slotguard.json` in the current work directory
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(workingDirectory, config.DefaultProjectConfigFilename)
	}

	// Check to see if the file exists at configPath
	_, existenceError := os.Stat(configPath)

	// Possibility #1: File was found
	if existenceError == nil {
		cmdLogger.Debug("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err = config.ReadProjectConfigFromFile(configPath)
		if err != nil {
			return nil, err
		}

		// Change our working directory to the parent directory of the project configuration file
		if err = os.Chdir(filepath.Dir(configPath)); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
	if configFlagUsed && existenceError != nil {
		return nil, errors.Wrapf(existenceError, "could not find the config file at %v", configPath)
	}

	// Possibility #3: --config flag was not used and slotguard.json was not found, so use the default project config
	if !configFlagUsed && existenceError != nil {
		cmdLogger.Debug(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration instead", configPath))
		projectConfig = config.GetDefaultProjectConfig()
	}

	// Update the project configuration given whatever flags were set using the CLI
	if err = updateProjectConfigWithProjectFlags(cmd, projectConfig); err != nil {
		return nil, err
	}

	if err = projectConfig.Validate(); err != nil {
		return nil, err
	}
	return projectConfig, nil
}

// setupLogging configures the command and global loggers from the project configuration. Console logs are written
// to out. If a log directory is configured, structured logs are written to a file within it as well.
func setupLogging(projectConfig *config.ProjectConfig, out io.Writer) error {
	colored := !projectConfig.Logging.NoColor
	if !colored {
		colors.DisableColor()
	}

	cmdLogger.RemoveWriter(os.Stdout, logging.UNSTRUCTURED, true)
	cmdLogger.AddWriter(out, logging.UNSTRUCTURED, colored)
	cmdLogger.SetLevel(projectConfig.Logging.Level)

	// The core packages only log at debug level, so their output is only shown when asked for
	logging.GlobalLogger = logging.NewLogger(projectConfig.Logging.Level)
	logging.GlobalLogger.AddWriter(out, logging.UNSTRUCTURED, colored)

	if projectConfig.Logging.LogDirectory != "" {
		file, err := utils.CreateFile(projectConfig.Logging.LogDirectory, "slotguard.log")
		if err != nil {
			return err
		}
		logging.GlobalLogger.AddWriter(file, logging.STRUCTURED, false)
		cmdLogger.AddWriter(file, logging.STRUCTURED, false)
	}
	return nil
}

// deployableContracts returns the names of the contracts in an index which can be deployed behind a proxy, that is,
// every non-abstract contract which is neither a library nor an interface. Names declared in several sources are
// qualified with their source path.
func deployableContracts(index *types.ArtifactIndex) []string {
	names := make([]string, 0)
	for _, artifact := range index.Artifacts() {
		contract, err := artifact.ContractDefinition()
		if err != nil || contract.Kind != types.ContractKindContract || contract.Abstract {
			continue
		}

		name := artifact.ContractName
		if _, err := index.ByContractName(name); err != nil {
			name = artifact.SourcePath + ":" + artifact.ContractName
		}
		names = append(names, name)
	}
	return names
}

// selectContracts returns the contracts named on the command line, else those of the project configuration, else
// every deployable contract of the index.
func selectContracts(args []string, projectConfig *config.ProjectConfig, index *types.ArtifactIndex) []string {
	if len(args) > 0 {
		return args
	}
	if len(projectConfig.Validation.Contracts) > 0 {
		return projectConfig.Validation.Contracts
	}
	return deployableContracts(index)
}

// withExitCode attaches the exit code matching an analysis error. Errors caused by the artifacts themselves are
// distinguished from other failures.
func withExitCode(err error) error {
	if err == nil {
		return nil
	}

	var structuralErr *inheritance.StructuralArtifactError
	var unknownTypeErr *layout.UnknownTypeNodeError
	if errors.As(err, &structuralErr) || errors.As(err, &unknownTypeErr) {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeArtifactError)
	}
	return err
}
