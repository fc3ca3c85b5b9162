package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/crytic/slotguard/cmd/exitcodes"
	"github.com/crytic/slotguard/compilation"
	"github.com/crytic/slotguard/compilation/types"
	"github.com/crytic/slotguard/config"
	"github.com/crytic/slotguard/layout"
	"github.com/crytic/slotguard/layoutstore"
	"github.com/crytic/slotguard/logging"
	"github.com/crytic/slotguard/logging/colors"
	"github.com/crytic/slotguard/validation"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// validateCmd represents the command provider for validation
var validateCmd = &cobra.Command{
	Use:               "validate [contract...]",
	Short:             "Validates that contracts are safe to upgrade",
	Long:              `Validates that contracts are safe to deploy behind a proxy and, if a previous layout is available, that their storage layout is compatible with it`,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunValidate,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the validate command
	err := addValidateFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the validate command", err)
	}

	// Add the validate command and its associated flags to the root command
	rootCmd.AddCommand(validateCmd)
}

// validationReport is the JSON document printed by the validate command.
type validationReport struct {
	Results  []*validation.Result `json:"results"`
	Blocking int                  `json:"blocking"`
	Warnings int                  `json:"warnings"`
}

// cmdRunValidate executes the CLI validate command
func cmdRunValidate(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the validate command", err)
		return err
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithValidateFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the validate command", err)
		return err
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		cmdLogger.Error("Failed to run the validate command", err)
		return err
	}

	// Keep stdout clean for the JSON document
	logOutput := io.Writer(os.Stdout)
	if jsonOutput {
		logOutput = os.Stderr
	}
	if err = setupLogging(projectConfig, logOutput); err != nil {
		cmdLogger.Error("Failed to run the validate command", err)
		return err
	}

	// Stop validating on keyboard interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var out io.Writer
	if jsonOutput {
		out = cmd.OutOrStdout()
	}
	summary, err := validateProject(ctx, projectConfig, args, out)
	if err != nil {
		cmdLogger.Error("Failed to run the validate command", err)
		return withExitCode(err)
	}

	// Findings were already reported, so no error message is attached
	if summary.Blocking > 0 {
		return exitcodes.NewErrorWithExitCode(nil, exitcodes.ExitCodeValidationFailed)
	}
	return nil
}

// validateProject validates the contracts of the configured build. Each contract is compared against its layout in
// the original build directory if one is configured, else against its latest snapshot in the layout store. Results
// are logged, or written to jsonOut as a JSON document if it is not nil.
func validateProject(ctx context.Context, projectConfig *config.ProjectConfig, contractNames []string, jsonOut io.Writer) (reportSummary, error) {
	var summary reportSummary

	artifacts, err := compilation.LoadArtifactsFromDirectory(projectConfig.Artifacts.BuildDirectory)
	if err != nil {
		return summary, err
	}
	index := types.NewArtifactIndex(artifacts)
	if versions := index.CompilerVersions(); len(versions) > 1 {
		cmdLogger.Warn("The build artifacts were produced by multiple compiler versions ", versions, ", the build may be stale")
	}
	if projectConfig.Store.Enabled {
		compilation.NotifyArtifactHashStatus(artifacts, projectConfig.Store.Directory, cmdLogger)
	}

	contractNames = selectContracts(contractNames, projectConfig, index)
	if len(contractNames) == 0 {
		return summary, errors.Errorf("no deployable contracts were found in '%s'", projectConfig.Artifacts.BuildDirectory)
	}

	previousLayouts, err := loadPreviousLayouts(projectConfig, contractNames)
	if err != nil {
		return summary, err
	}

	requests := make([]validation.Request, len(contractNames))
	for i, name := range contractNames {
		requests[i] = validation.Request{ContractName: name, Previous: previousLayouts[name]}
	}

	validator, err := validation.NewValidator(projectConfig.Validation.CostModel)
	if err != nil {
		return summary, err
	}
	results, err := validator.ValidateAll(ctx, index, requests, projectConfig.Validation.Workers)
	if err != nil {
		return summary, err
	}

	r := newReporter(index, projectConfig.Validation.FailOnWarnings)
	for i, result := range results {
		buffer := logging.NewLogBuffer()
		resultSummary := r.report(buffer, result, requests[i].Previous)
		summary.add(resultSummary)
		if jsonOut == nil {
			switch {
			case resultSummary.Blocking > 0:
				cmdLogger.Error(buffer.Args()...)
			case resultSummary.Warnings > 0:
				cmdLogger.Warn(buffer.Args()...)
			default:
				cmdLogger.Info(buffer.Args()...)
			}
		}
	}

	if jsonOut != nil {
		encoder := json.NewEncoder(jsonOut)
		encoder.SetIndent("", "  ")
		report := validationReport{Results: results, Blocking: summary.Blocking, Warnings: summary.Warnings}
		if err = encoder.Encode(report); err != nil {
			return summary, errors.WithStack(err)
		}
		return summary, nil
	}

	status := colors.GreenBold
	if summary.Blocking > 0 {
		status = colors.RedBold
	}
	cmdLogger.Info(
		"Validated ", len(results), " contract(s): ",
		status, fmt.Sprintf("%d blocking", summary.Blocking), colors.Reset, ", ",
		colors.YellowBold, fmt.Sprintf("%d warning(s)", summary.Warnings), colors.Reset,
	)
	return summary, nil
}

// loadPreviousLayouts returns the layouts the named contracts upgrade, keyed by name. Contracts without a previous
// layout are absent from the result, as they are new.
func loadPreviousLayouts(projectConfig *config.ProjectConfig, contractNames []string) (map[string]*layout.StorageLayout, error) {
	previousLayouts := make(map[string]*layout.StorageLayout)

	// Possibility #1: compare against the artifacts of the deployed build
	if projectConfig.Artifacts.OriginalBuildDirectory != "" {
		originalIndex, err := compilation.LoadArtifactIndex(projectConfig.Artifacts.OriginalBuildDirectory)
		if err != nil {
			return nil, errors.WithMessage(err, "could not load the original build")
		}
		for _, name := range contractNames {
			if _, err := originalIndex.ByQualifiedName(name); err != nil {
				cmdLogger.Info("Contract ", colors.Bold, name, colors.Reset, " is not part of the original build, its storage will not be compared")
				continue
			}
			previous, err := layout.BuildLayout(originalIndex, name)
			if err != nil {
				return nil, errors.WithMessagef(err, "could not build the original layout of '%s'", name)
			}
			previousLayouts[name] = previous
		}
		return previousLayouts, nil
	}

	// Possibility #2: compare against the snapshots of the layout store
	if !projectConfig.Store.Enabled {
		cmdLogger.Warn("No original build directory is configured and the layout store is disabled, storage layouts will not be compared")
		return previousLayouts, nil
	}
	store, err := layoutstore.Open(projectConfig.Store.Directory)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	for _, name := range contractNames {
		snapshot, err := store.Get(name)
		if errors.Is(err, layoutstore.ErrSnapshotNotFound) {
			cmdLogger.Info("No layout snapshot of ", colors.Bold, name, colors.Reset, " was found, its storage will not be compared")
			continue
		}
		if err != nil {
			return nil, err
		}
		previousLayouts[name] = snapshot.Layout
	}
	return previousLayouts, nil
}
