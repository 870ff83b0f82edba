package cmd

import "errors"

// Exit codes for apiharness CLI
const (
	// ExitSuccess indicates the call succeeded and every expectation held
	ExitSuccess = 0

	// ExitTestFailure indicates an error response or a failed expectation
	ExitTestFailure = 1

	// ExitDecodeError indicates a success body no strategy could decode
	ExitDecodeError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code for a command error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitTestFailure
}
