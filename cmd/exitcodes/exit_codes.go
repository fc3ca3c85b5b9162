package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeArtifactError indicates that the build artifacts could not be analyzed, because they are stale,
	// corrupted or use a construct that is not modeled. Note that an error with error code ExitCodeGeneralError and
	// ExitCodeArtifactError are mutually exclusive errors
	ExitCodeArtifactError = 6

	// ExitCodeValidationFailed indicates that validation reported at least one blocking finding.
	ExitCodeValidationFailed = 7
)
