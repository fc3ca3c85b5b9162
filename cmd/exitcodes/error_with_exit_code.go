package exitcodes

import "errors"

// ErrorWithExitCode wraps an error with the exit code the process should terminate with once the error reaches the
// top-level. The wrapped error may be nil when the failure was already reported, e.g. for validation findings.
type ErrorWithExitCode struct {
	err      error
	exitCode int
}

// NewErrorWithExitCode wraps err with the provided exit code.
func NewErrorWithExitCode(err error, exitCode int) *ErrorWithExitCode {
	return &ErrorWithExitCode{
		err:      err,
		exitCode: exitCode,
	}
}

// Error returns the message of the wrapped error, or an empty string if there is none.
func (e *ErrorWithExitCode) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

// Unwrap returns the wrapped error.
func (e *ErrorWithExitCode) Unwrap() error {
	return e.err
}

// ExitCode returns the exit code carried by the error.
func (e *ErrorWithExitCode) ExitCode() int {
	return e.exitCode
}

// GetInnerErrorAndExitCode returns the error to report and the exit code to terminate with: ExitCodeSuccess for a nil
// error, the carried exit code and inner error if an ErrorWithExitCode is part of the chain, else
// ExitCodeGeneralError.
func GetInnerErrorAndExitCode(err error) (error, int) {
	if err == nil {
		return nil, ExitCodeSuccess
	}

	var exitCodeErr *ErrorWithExitCode
	if errors.As(err, &exitCodeErr) {
		return exitCodeErr.err, exitCodeErr.exitCode
	}
	return err, ExitCodeGeneralError
}
