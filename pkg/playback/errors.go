package playback

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoClassData     = errors.New("no classdata provided")
	ErrUnknownProperty = errors.New("object does not support property")
	ErrFocusRefused    = errors.New("unable to set focus")
	ErrEarlyExit       = errors.New("application exits before script is done")
	ErrAborted         = errors.New("playback aborted")
)

// VerificationMismatch is a verify step whose property differs from the
// expected value.
type VerificationMismatch struct {
	Property string
	Expected string
	Actual   string
}

func (e *VerificationMismatch) Error() string {
	return fmt.Sprintf("object property %s does not match: expected %q, got %q", e.Property, e.Expected, e.Actual)
}

// TimeoutError is a wait step that ran out of time.
type TimeoutError struct {
	Action  ActionType
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	switch e.Action {
	case WaitApplicationExit:
		return fmt.Sprintf("timed out waiting for application to exit (after %d msec)", e.Timeout.Milliseconds())
	case WaitEvent:
		return fmt.Sprintf("timed out waiting for event (after %d msec)", e.Timeout.Milliseconds())
	default:
		return fmt.Sprintf("%s timed out (after %d msec)", e.Action, e.Timeout.Milliseconds())
	}
}

// ActionError ties a failure to the script step that caused it.
type ActionError struct {
	// Index is the zero-based position of the step in the loaded script.
	Index  int
	Action *Action
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index+1, e.Action.Describe(), e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
