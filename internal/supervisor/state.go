package supervisor

// State is the lifecycle state of a supervised process.
type State int32

const (
	// Starting means the first start attempt has not completed.
	Starting State = iota
	// Running means the current attempt is alive.
	Running
	// Restarting means the process exited and waits for its respawn delay.
	Restarting
	// Exited means the process finished with status zero.
	Exited
	// Failed means the process exited abnormally or could not be started.
	Failed
	// Stopped means the process was terminated by shutdown.
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Restarting:
		return "restarting"
	case Exited:
		return "exited"
	case Failed:
		return "failed"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Terminal reports whether the process will not run again.
func (s State) Terminal() bool {
	return s == Exited || s == Failed || s == Stopped
}
