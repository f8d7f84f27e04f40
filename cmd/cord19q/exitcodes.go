package main

import "fmt"

// Exit codes
const (
	ExitSuccess     = 0 // Success, including runs with rejected rows
	ExitError       = 1 // Fatal error (invalid arguments, unreadable corpus, store failure)
	ExitConfigError = 2 // Configuration error (invalid config file or environment)
)

// exitError carries an exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, format string, args ...interface{}) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}
