package cli

import (
	"errors"
	"fmt"

	"flowclone/internal/config"
	"flowclone/internal/replicate"
)

// Process exit codes.
const (
	ExitSuccess        = 0
	ExitRootNotFound   = 1
	ExitValidation     = 2
	ExitTableIntegrity = 3
	ExitCollision      = 4
	ExitWriteFailed    = 5
	ExitStore          = 6
	ExitUsage          = 64
	ExitNotImplemented = 98
	ExitForbiddenHost  = 99
)

// ExitError carries an exit code alongside the failure.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without an underlying cause.
func NewExitError(code int, msg string) *ExitError {
	return &ExitError{Code: code, Message: msg}
}

// WrapExitError wraps err with an exit code and message.
func WrapExitError(code int, msg string, err error) *ExitError {
	return &ExitError{Code: code, Message: msg, Err: err}
}

// GetExitCode extracts the exit code from err. Errors that are not an
// ExitError are classified by their sentinel.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return classify(err)
}

var exitCodes = []struct {
	err  error
	code int
}{
	{config.ErrForbiddenHost, ExitForbiddenHost},
	{replicate.ErrNotImplemented, ExitNotImplemented},
	{replicate.ErrRootNotFound, ExitRootNotFound},
	{replicate.ErrWriteFailed, ExitWriteFailed},
	{replicate.ErrDestinationCollision, ExitCollision},
	{replicate.ErrDestinationAlreadyExists, ExitTableIntegrity},
	{replicate.ErrSourceTableEmpty, ExitTableIntegrity},
	{replicate.ErrInsufficientChildren, ExitValidation},
	{replicate.ErrNoChildren, ExitValidation},
	{replicate.ErrUnknownSourceChild, ExitValidation},
	{replicate.ErrDuplicateChild, ExitValidation},
	{replicate.ErrInvalidMapping, ExitValidation},
	{replicate.ErrMalformedIdentifier, ExitValidation},
	{replicate.ErrSameRoot, ExitValidation},
}

// classify maps a failure to its exit code. Anything unrecognised is a store
// or IO failure.
func classify(err error) int {
	for _, ec := range exitCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ExitStore
}
