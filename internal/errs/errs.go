// Package errs holds the error taxonomy of the report commands and the exit
// code each class maps to at the process boundary.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Exit codes returned by the report commands.
const (
	ExitOK          = 0
	ExitUnknown     = 1
	ExitUsage       = 2
	ExitFetch       = 3
	ExitEmptyResult = 4
	ExitRender      = 5
	ExitPersist     = 6
)

// UsageError is raised when the invocation is missing required input.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return "usage: " + e.Message }

// FetchError is raised when the query collaborator is unreachable or returns
// a payload that can not be parsed.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EmptyResultError reports a valid run identifier without records. It is not
// a failure of the tool: there is simply nothing to render.
type EmptyResultError struct {
	RunID string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no records found for run %q", e.RunID)
}

// RenderError signals an inconsistent report input, a bug in the caller.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("inconsistent report data: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// DeliveryError is raised by chat delivery and publishing. It never changes
// the exit code, the artifact is already on disk.
type DeliveryError struct {
	Target string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Target, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// PersistError is raised when the artifact can not be written to disk.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// NewFetchError wraps err as a FetchError for the operation op.
func NewFetchError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Op: op, Err: err}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		usageErr   *UsageError
		fetchErr   *FetchError
		emptyErr   *EmptyResultError
		renderErr  *RenderError
		persistErr *PersistError
	)
	switch {
	case errors.As(err, &usageErr):
		return ExitUsage
	case errors.As(err, &emptyErr):
		return ExitEmptyResult
	case errors.As(err, &fetchErr):
		return ExitFetch
	case errors.As(err, &renderErr):
		return ExitRender
	case errors.As(err, &persistErr):
		return ExitPersist
	}
	return ExitUnknown
}
