// Package coreerr defines the error taxonomy shared by session, registry,
// inject, decorators, and ipc.
package coreerr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers should use errors.Is against these, not string
// comparison.
var (
	// ErrSessionState is returned when a session operation is attempted
	// from a state that does not permit it.
	ErrSessionState = errors.New("session: operation not valid in current state")

	// ErrInvalidSession is returned when an operation targets a session
	// that is not (or is no longer) a member of its registry.
	ErrInvalidSession = errors.New("session: invalid or expired session")

	// ErrDependencyInit is returned by inject.Wrap when a dependency
	// declaration cannot be resolved (a non-struct dependency type, an
	// unknown inject tag, a field of a non-injectable type). Errors from a
	// Depends factory are returned as the factory produced them.
	ErrDependencyInit = errors.New("inject: dependency initialization failed")

	// ErrDependencyBind names a failure to bind a resolved value to its
	// target. inject.Wrap does not return it: a missing or mistyped value
	// is reported as a DependencyNotMatched.
	ErrDependencyBind = errors.New("inject: dependency bind failed")

	// ErrIPC is returned for plugin share registry violations (duplicate
	// registration, unknown share, static/non-static mismatch).
	ErrIPC = errors.New("ipc: plugin share violation")

	// ErrValidation is returned by decorators for misconfigured wraps:
	// SpeedLimit returns it for a non-positive limit or duration. Cooldown
	// does not validate its interval and never returns it.
	ErrValidation = errors.New("validation failed")
)

// DependencyNotMatched signals that an auto-resolved dependency field got
// no value from the context, or a value whose type does not fit the field.
// inject.Wrap's handler returns it without calling the wrapped function; it
// is a recoverable condition a caller can treat as "this handler does not
// accept this event".
type DependencyNotMatched struct {
	FuncName string
	ArgName  string
	RealType string
	Hint     string
}

func (e *DependencyNotMatched) Error() string {
	return fmt.Sprintf("inject: %s parameter %q (hint %s) not matched by type %s", e.FuncName, e.ArgName, e.Hint, e.RealType)
}

// SessionStateError is a concrete, wrapped form of ErrSessionState carrying
// the attempted operation and the session's actual state at the time.
type SessionStateError struct {
	Op    string
	State string
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("session: cannot %s from state %s", e.Op, e.State)
}

func (e *SessionStateError) Unwrap() error { return ErrSessionState }

// NewSessionStateError builds a SessionStateError for the given operation
// and current state.
func NewSessionStateError(op, state string) error {
	return &SessionStateError{Op: op, State: state}
}

// InvalidSessionError is a concrete, wrapped form of ErrInvalidSession,
// returned when an operation targets a session that has already expired
// rather than one merely in a disallowed-but-live state.
type InvalidSessionError struct {
	Op string
}

func (e *InvalidSessionError) Error() string {
	return fmt.Sprintf("session: cannot %s, session is expired", e.Op)
}

func (e *InvalidSessionError) Unwrap() error { return ErrInvalidSession }

// NewInvalidSessionError builds an InvalidSessionError for the given
// operation.
func NewInvalidSessionError(op string) error {
	return &InvalidSessionError{Op: op}
}
