// Package tools provides the blocking command runner shared by the
// substitution resolver (command substitutions) and the ephemeral resource
// manager (transform commands).
//
// Commands run here are synchronous: the orchestration goroutine waits for
// them because their output or side effect is needed before resolution can
// continue. Long-running processes belong to the supervisor package instead.
package tools
