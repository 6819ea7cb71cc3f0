package cli

import (
	"fmt"
	"io"
	"os"
)

// ExitError carries the process exit status a command wants.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// readInput reads a file argument, or stdin when the argument is "-" or
// missing.
func readInput(in io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}
