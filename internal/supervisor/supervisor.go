package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Options configures a Supervisor.
type Options struct {
	// Stdout receives "screen" output, one prefixed line at a time.
	Stdout io.Writer
	// LogDir receives per-process log files for "log" output.
	LogDir string
	// SigintTimeout is how long shutdown waits after SIGINT before SIGTERM.
	SigintTimeout time.Duration
	// SigtermTimeout is how long shutdown waits after SIGTERM before SIGKILL.
	SigtermTimeout time.Duration
}

const (
	defaultSigintTimeout  = 5 * time.Second
	defaultSigtermTimeout = 5 * time.Second
	killWait              = 2 * time.Second
)

// Reason explains why Wait returned.
type Reason int

const (
	// AllExited means every process finished on its own.
	AllExited Reason = iota
	// RequiredExited means a required process exited.
	RequiredExited
	// Interrupted means the context passed to Wait was canceled.
	Interrupted
)

func (r Reason) String() string {
	switch r {
	case AllExited:
		return "all processes exited"
	case RequiredExited:
		return "required process exited"
	case Interrupted:
		return "interrupted"
	}
	return "unknown"
}

// Supervisor owns the processes of one session.
type Supervisor struct {
	opts   Options
	screen *syncWriter

	mu    sync.Mutex
	procs []*Process
	seq   int

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
	required chan *Process
}

// New returns a Supervisor.
func New(opts Options) *Supervisor {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.SigintTimeout <= 0 {
		opts.SigintTimeout = defaultSigintTimeout
	}
	if opts.SigtermTimeout <= 0 {
		opts.SigtermTimeout = defaultSigtermTimeout
	}
	if opts.LogDir == "" {
		opts.LogDir = os.TempDir()
	}
	return &Supervisor{
		opts:     opts,
		screen:   &syncWriter{w: opts.Stdout},
		stop:     make(chan struct{}),
		required: make(chan *Process, 1),
	}
}

func (s *Supervisor) stopping() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// Spawn starts a process and its supervision loop. The first attempt is
// made synchronously. If it fails and the process does not respawn, the
// *ProcessSpawnError is returned and the process is recorded as failed.
func (s *Supervisor) Spawn(ctx context.Context, d ProcessDescriptor) (*Process, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.stopping() {
		s.mu.Unlock()
		return nil, &ProcessSpawnError{Name: d.Name, Executable: d.Executable, Err: errStopping}
	}
	s.seq++
	id := s.seq
	s.mu.Unlock()

	sink, err := newOutputSink(s.screen, s.opts.LogDir, d, id)
	if err != nil {
		return nil, &ProcessSpawnError{Name: d.Name, Executable: d.Executable, Err: err}
	}
	p := newProcess(d, id, sink)

	s.mu.Lock()
	s.procs = append(s.procs, p)
	s.mu.Unlock()

	logger := ctxlog.FromContext(ctx).With("process", d.Name, "instance", id)
	startErr := p.start(s.stopping)
	if startErr != nil && !d.Respawn {
		logger.Error("🔥 Process failed to start.", "error", startErr)
		p.setState(Failed)
		sink.note(zerolog.ErrorLevel, "spawn failed", map[string]any{"error": startErr.Error()})
		sink.Close()
		close(p.done)
		if d.Required {
			s.signalRequired(p)
		}
		return p, startErr
	}
	if startErr == nil {
		pid, _ := p.current()
		logger.Info("🚀 Process started.", "pid", pid, "argv", d.Argv())
	}

	s.wg.Add(1)
	go s.supervise(context.WithoutCancel(ctx), p, startErr)
	return p, nil
}

func (s *Supervisor) supervise(ctx context.Context, p *Process, startErr error) {
	defer s.wg.Done()
	defer close(p.done)
	defer p.sink.Close()
	logger := ctxlog.FromContext(ctx).With("process", p.desc.Name, "instance", p.id)

	for {
		if startErr == nil {
			_, exited := p.current()
			<-exited
			code, err := p.result()
			switch {
			case s.stopping():
				p.setState(Stopped)
				logger.Debug("Process stopped.", "exit_code", code)
				p.sink.note(zerolog.InfoLevel, "stopped", map[string]any{"exit_code": code})
				return
			case err == nil:
				logger.Info("🏁 Process exited.", "exit_code", code)
			default:
				logger.Warn("Process exited abnormally.", "exit_code", code, "error", err)
			}
			p.sink.note(zerolog.InfoLevel, "exited", map[string]any{"exit_code": code})
			if err == nil {
				p.setState(Exited)
			} else {
				p.setState(Failed)
			}
		} else if !errors.Is(startErr, errStopping) {
			logger.Error("🔥 Process failed to start.", "error", startErr)
			p.setState(Failed)
		}

		if s.stopping() {
			p.setState(Stopped)
			return
		}
		if p.desc.Required {
			logger.Warn("Required process exited, shutting down the session.")
			s.signalRequired(p)
			return
		}
		if !p.desc.Respawn {
			return
		}

		p.setState(Restarting)
		logger.Info("Respawning process.", "delay", p.desc.RespawnDelay)
		timer := time.NewTimer(p.desc.RespawnDelay)
		select {
		case <-s.stop:
			timer.Stop()
			p.setState(Stopped)
			return
		case <-timer.C:
		}

		p.restarts.Add(1)
		startErr = p.start(s.stopping)
		if errors.Is(startErr, errStopping) {
			p.setState(Stopped)
			return
		}
		if startErr == nil {
			pid, _ := p.current()
			logger.Info("🚀 Process respawned.", "pid", pid, "restarts", p.restarts.Load())
		}
	}
}

func (s *Supervisor) signalRequired(p *Process) {
	select {
	case s.required <- p:
	default:
	}
}

// Wait blocks until every process has finished, a required process exits,
// or ctx is canceled. The process is set for RequiredExited.
func (s *Supervisor) Wait(ctx context.Context) (Reason, *Process) {
	allDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(allDone)
	}()

	select {
	case p := <-s.required:
		return RequiredExited, p
	case <-ctx.Done():
		return Interrupted, nil
	case <-allDone:
		// A required process that failed its only start attempt never enters
		// the wait group.
		select {
		case p := <-s.required:
			return RequiredExited, p
		default:
		}
		return AllExited, nil
	}
}

// Shutdown stops all respawn loops and terminates every live process
// group, escalating from SIGINT to SIGTERM to SIGKILL. It returns once all
// supervision loops have finished.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	s.mu.Lock()
	s.stopOnce.Do(func() { close(s.stop) })
	procs := append([]*Process(nil), s.procs...)
	s.mu.Unlock()

	var g errgroup.Group
	for _, p := range procs {
		g.Go(func() error {
			return s.terminate(ctx, p)
		})
	}
	err := g.Wait()
	s.wg.Wait()
	if err == nil {
		logger.Debug("All processes terminated.", "count", len(procs))
	}
	return err
}

func (s *Supervisor) terminate(ctx context.Context, p *Process) error {
	pid, exited := p.current()
	if exited == nil {
		return nil
	}
	select {
	case <-exited:
		return nil
	default:
	}

	logger := ctxlog.FromContext(ctx).With("process", p.desc.Name, "pid", pid)
	steps := []struct {
		sig  syscall.Signal
		wait time.Duration
	}{
		{unix.SIGINT, s.opts.SigintTimeout},
		{unix.SIGTERM, s.opts.SigtermTimeout},
		{unix.SIGKILL, killWait},
	}
	for _, step := range steps {
		logger.Debug("Signalling process group.", "signal", step.sig.String())
		if err := unix.Kill(-pid, step.sig); err != nil && !errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("failed to signal process %s (pid %d): %w", p.desc.Name, pid, err)
		}
		timer := time.NewTimer(step.wait)
		select {
		case <-exited:
			timer.Stop()
			return nil
		case <-timer.C:
			logger.Warn("Process did not exit in time, escalating.", "signal", step.sig.String(), "waited", step.wait)
		}
	}
	return fmt.Errorf("process %s (pid %d) did not exit after SIGKILL", p.desc.Name, pid)
}

// Processes returns every process spawned so far, in spawn order.
func (s *Supervisor) Processes() []*Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Process(nil), s.procs...)
}

// Snapshot returns the status of every process.
func (s *Supervisor) Snapshot() []Status {
	procs := s.Processes()
	out := make([]Status, 0, len(procs))
	for _, p := range procs {
		out = append(out, p.Status())
	}
	return out
}

// Failed returns the processes that ended abnormally.
func (s *Supervisor) Failed() []*Process {
	var failed []*Process
	for _, p := range s.Processes() {
		if p.State() == Failed {
			failed = append(failed, p)
		}
	}
	return failed
}
