package session

import (
	"fmt"
	"strings"
)

// SessionNotFoundError is returned when an included session file does not
// exist.
type SessionNotFoundError struct {
	Path string
	Err  error
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session file %s not found", e.Path)
}

func (e *SessionNotFoundError) Unwrap() error { return e.Err }

// IncludeCycleError is returned when a session includes itself, directly or
// through other sessions.
type IncludeCycleError struct {
	Chain []string
}

func (e *IncludeCycleError) Error() string {
	return fmt.Sprintf("include cycle: %s", strings.Join(e.Chain, " -> "))
}

// ImmutableArgumentError is returned when an action tries to assign a
// variable that names a bound argument.
type ImmutableArgumentError struct {
	Name string
}

func (e *ImmutableArgumentError) Error() string {
	return fmt.Sprintf("argument %q is immutable once bound", e.Name)
}
