package supervisor

import "fmt"

// ProcessSpawnError is returned when a process could not be started.
type ProcessSpawnError struct {
	Name       string
	Executable string
	Err        error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("failed to spawn process %s (%s): %v", e.Name, e.Executable, e.Err)
}

func (e *ProcessSpawnError) Unwrap() error { return e.Err }
