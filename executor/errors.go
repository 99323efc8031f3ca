package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/webpilot/types"
)

// DriverErrorKind classifies a driver failure so the engine can decide
// between the in-place script fallback and advancing to the next candidate.
type DriverErrorKind string

const (
	// DriverTimeout: the action did not complete within the action timeout.
	DriverTimeout DriverErrorKind = "timeout"
	// DriverNotFound: the selector matched no node.
	DriverNotFound DriverErrorKind = "not_found"
	// DriverNotInteractable: the node exists but cannot receive the action.
	DriverNotInteractable DriverErrorKind = "not_interactable"
	// DriverActionFailed: any other driver-side failure, e.g. a node
	// detached mid-attempt.
	DriverActionFailed DriverErrorKind = "action_failed"
)

// DriverError wraps a failure reported by the automation driver.
type DriverError struct {
	Kind DriverErrorKind
	Op   string
	Err  error
}

func (e *DriverError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("driver %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("driver %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *DriverError) Unwrap() error { return e.Err }

// NewDriverError builds a DriverError, promoting context deadline errors to
// the timeout kind.
func NewDriverError(op string, kind DriverErrorKind, err error) *DriverError {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = DriverTimeout
	}
	return &DriverError{Kind: kind, Op: op, Err: err}
}

// Retryable reports whether the failure warrants the in-place script
// fallback before advancing to the next candidate.
func (e *DriverError) Retryable() bool {
	switch e.Kind {
	case DriverTimeout, DriverNotFound, DriverNotInteractable:
		return true
	}
	return false
}

// failureReason maps a driver error onto the step-level failure taxonomy.
func failureReason(err error) types.FailureReason {
	var de *DriverError
	if errors.As(err, &de) && de.Kind == DriverTimeout {
		return types.ReasonDriverTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.ReasonDriverTimeout
	}
	return types.ReasonDriverActionError
}

// retryable reports whether err is a DriverError that warrants the script
// fallback. Timeouts surfaced as bare context errors count as well.
func retryable(err error) bool {
	var de *DriverError
	if errors.As(err, &de) {
		return de.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
