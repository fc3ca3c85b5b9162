package config

import (
	"github.com/crytic/slotguard/compilation"
	"github.com/crytic/slotguard/layout"
	"github.com/rs/zerolog"
)

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "slotguard.json"

// GetDefaultProjectConfig obtains a default configuration for a project.
func GetDefaultProjectConfig() *ProjectConfig {
	// Create a project configuration
	projectConfig := &ProjectConfig{
		Artifacts: ArtifactsConfig{
			BuildDirectory:         compilation.DefaultBuildDirectory,
			OriginalBuildDirectory: "",
		},
		Validation: ValidationConfig{
			Contracts:      []string{},
			CostModel:      layout.DefaultCostModel,
			Workers:        4,
			FailOnWarnings: false,
		},
		Store: StoreConfig{
			Enabled:   true,
			Directory: ".slotguard",
		},
		Logging: LoggingConfig{
			Level:        zerolog.InfoLevel,
			LogDirectory: "",
			NoColor:      false,
		},
	}

	// Return the project configuration
	return projectConfig
}
