package subst

import (
	"fmt"
	"strings"
)

// UnresolvedVariableError reports a reference with no binding and no default.
type UnresolvedVariableError struct {
	Kind string // "variable" or "environment variable"
	Name string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("unresolved %s %q: no value bound and no default", e.Kind, e.Name)
}

// ExternalCommandError reports a command substitution that could not run or
// exited with a non-zero status.
type ExternalCommandError struct {
	Argv     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalCommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", strings.Join(e.Argv, " "), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ExternalCommandError) Unwrap() error { return e.Err }

// InvalidGuardError reports a condition whose value is not a boolean.
type InvalidGuardError struct {
	Expr  string
	Value string
}

func (e *InvalidGuardError) Error() string {
	return fmt.Sprintf("condition %s resolved to %q, which is not a boolean", e.Expr, e.Value)
}
