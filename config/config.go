package config

import (
	"encoding/json"
	"os"

	"github.com/crytic/slotguard/layout"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ProjectConfig describes the configuration of a project analyzed by slotguard.
type ProjectConfig struct {
	// Artifacts describes where compiled build artifacts are read from.
	Artifacts ArtifactsConfig `json:"artifacts"`

	// Validation describes which contracts are checked and how storage layouts are compared.
	Validation ValidationConfig `json:"validation"`

	// Store describes the database of previously accepted storage layouts.
	Store StoreConfig `json:"store"`

	// Logging describes the configuration used for logging
	Logging LoggingConfig `json:"logging"`
}

// ArtifactsConfig describes the build artifacts consumed by an analysis.
type ArtifactsConfig struct {
	// BuildDirectory is the directory holding the truffle-format artifacts of the current build.
	BuildDirectory string `json:"buildDirectory"`

	// OriginalBuildDirectory is the directory holding the artifacts of the deployed build. If empty, previous layouts
	// are read from the layout store instead.
	OriginalBuildDirectory string `json:"originalBuildDirectory"`
}

// ValidationConfig describes the configuration options used by validation.Validator.
type ValidationConfig struct {
	// Contracts lists the contracts to validate, either by name or as "<sourcePath>:<name>". If empty, every
	// deployable contract of the build is validated.
	Contracts []string `json:"contracts"`

	// CostModel describes the edit costs used when aligning a previous storage layout with the current one.
	CostModel layout.CostModel `json:"costModel"`

	// Workers describes the amount of contracts validated concurrently.
	Workers int `json:"workers"`

	// FailOnWarnings describes whether storage changes that are only warnings by default (appends, renames, type
	// changes and pops) should fail validation as well.
	FailOnWarnings bool `json:"failOnWarnings"`
}

// StoreConfig describes the configuration of the layout store.
type StoreConfig struct {
	// Enabled describes whether layouts are read from and written to the store.
	Enabled bool `json:"enabled"`

	// Directory is the directory holding the store database.
	Directory string `json:"directory"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// LogDirectory describes the directory where structured log _files_ will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory"`

	// NoColor indicates whether or not log messages should be displayed with colored formatting.
	NoColor bool `json:"noColor"`
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path. Values absent from the
// file keep their defaults.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration
	projectConfig := GetDefaultProjectConfig()
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	// Verify a build directory was provided
	if p.Artifacts.BuildDirectory == "" {
		return errors.Errorf("a build directory must be provided")
	}

	// Comparing a build against itself can never report a change
	if p.Artifacts.OriginalBuildDirectory != "" && p.Artifacts.OriginalBuildDirectory == p.Artifacts.BuildDirectory {
		return errors.Errorf("the original build directory must differ from the build directory")
	}

	// Verify the worker count is a positive number.
	if p.Validation.Workers <= 0 {
		return errors.Errorf("validation worker count must be a positive number")
	}

	// Verify the cost model keeps the ordering the operation classification relies on
	if err := p.Validation.CostModel.Validate(); err != nil {
		return errors.WithMessage(err, "invalid cost model")
	}

	// Verify the store has somewhere to live
	if p.Store.Enabled && p.Store.Directory == "" {
		return errors.Errorf("a store directory must be provided when the layout store is enabled")
	}
	return nil
}
