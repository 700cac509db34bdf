package supervisor

import (
	"errors"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Process is one supervised process and its respawn history.
type Process struct {
	desc ProcessDescriptor
	id   int
	sink *outputSink

	state    atomic.Int32
	restarts atomic.Int32

	mu       sync.Mutex
	cmd      *exec.Cmd
	exited   chan struct{}
	pid      int
	exitCode int
	lastErr  error
	started  time.Time

	done chan struct{}
}

func newProcess(d ProcessDescriptor, id int, sink *outputSink) *Process {
	return &Process{
		desc: d,
		id:   id,
		sink: sink,
		done: make(chan struct{}),
	}
}

// Name returns the descriptor name.
func (p *Process) Name() string { return p.desc.Name }

// Descriptor returns the descriptor the process was started from.
func (p *Process) Descriptor() ProcessDescriptor { return p.desc }

// State returns the current lifecycle state.
func (p *Process) State() State { return State(p.state.Load()) }

func (p *Process) setState(s State) { p.state.Store(int32(s)) }

// Done is closed once the process will not run again.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err returns the error of the last attempt, if any.
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// start launches one attempt. The caller must not hold p.mu.
func (p *Process) start(stopping func() bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stopping() {
		return errStopping
	}

	argv := p.desc.Argv()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = p.desc.Env
	cmd.Dir = p.desc.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = time.Second
	stdout, stderr := p.sink.writers()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		spawnErr := &ProcessSpawnError{Name: p.desc.Name, Executable: p.desc.Executable, Err: err}
		p.lastErr = spawnErr
		p.exitCode = 127
		return spawnErr
	}

	exited := make(chan struct{})
	p.cmd = cmd
	p.exited = exited
	p.pid = cmd.Process.Pid
	p.started = time.Now()
	p.lastErr = nil
	p.setState(Running)

	go func() {
		err := cmd.Wait()
		if errors.Is(err, exec.ErrWaitDelay) {
			// A child kept the output pipes open after the process exited.
			err = nil
		}
		stdout.Close()
		stderr.Close()
		p.mu.Lock()
		p.exitCode = exitCode(cmd, err)
		if err != nil {
			p.lastErr = err
		}
		p.mu.Unlock()
		close(exited)
	}()
	return nil
}

// current returns the live attempt, if any.
func (p *Process) current() (pid int, exited chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid, p.exited
}

func (p *Process) result() (code int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, p.lastErr
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		if code := cmd.ProcessState.ExitCode(); code >= 0 {
			return code
		}
		// Killed by a signal.
		if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
	}
	if err != nil {
		return 1
	}
	return 0
}

var errStopping = errors.New("supervisor is shutting down")

// Status is a point-in-time view of a process.
type Status struct {
	Name      string   `json:"name"`
	Instance  int      `json:"instance"`
	PID       int      `json:"pid"`
	State     string   `json:"state"`
	Restarts  int      `json:"restarts"`
	ExitCode  int      `json:"exit_code"`
	Required  bool     `json:"required"`
	Respawn   bool     `json:"respawn"`
	Argv      []string `json:"argv"`
	Error     string   `json:"error,omitempty"`
	StartedAt string   `json:"started_at,omitempty"`
}

// Status returns a snapshot of the process.
func (p *Process) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{
		Name:     p.desc.Name,
		Instance: p.id,
		PID:      p.pid,
		State:    p.State().String(),
		Restarts: int(p.restarts.Load()),
		ExitCode: p.exitCode,
		Required: p.desc.Required,
		Respawn:  p.desc.Respawn,
		Argv:     p.desc.Argv(),
	}
	if p.lastErr != nil {
		st.Error = p.lastErr.Error()
	}
	if !p.started.IsZero() {
		st.StartedAt = p.started.Format(time.RFC3339)
	}
	return st
}
