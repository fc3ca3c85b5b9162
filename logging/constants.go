package logging

// These constants name the services that create sub-loggers. They are attached under the "module" key.
const (
	// COMPILATION_SERVICE is the service that loads and indexes build artifacts
	COMPILATION_SERVICE = "compilation"
	// ANALYSIS_SERVICE is the service that resolves inheritance and builds storage layouts
	ANALYSIS_SERVICE = "analysis"
	// VALIDATION_SERVICE is the service that runs the upgrade-safety validators
	VALIDATION_SERVICE = "validation"
	// STORE_SERVICE is the service that persists layout snapshots
	STORE_SERVICE = "store"
	// CLI_SERVICE is the command-line interface
	CLI_SERVICE = "cli"
)
