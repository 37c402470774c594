package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input rejected at the boundary.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a run has no checkpoint.
	ErrNotFound = errors.New("run not found")
	// ErrConflict is returned when a run is not awaiting input, or another
	// call on the same run is in flight.
	ErrConflict = errors.New("run conflict")
)

// TransientError wraps a collaborator failure that may succeed on retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError tags err as retryable.
func NewTransientError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// StageExecutionError aborts a Start/Resume call. The last checkpoint of the
// run is left as it was.
type StageExecutionError struct {
	RunID string
	Stage Stage
	Err   error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("run %s: stage %s failed: %v", e.RunID, e.Stage, e.Err)
}

func (e *StageExecutionError) Unwrap() error { return e.Err }
