package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/launchgrid/internal/cleanup"
	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"github.com/specialistvlad/launchgrid/internal/ephemeral"
	"github.com/specialistvlad/launchgrid/internal/model"
	"github.com/specialistvlad/launchgrid/internal/params"
	"github.com/specialistvlad/launchgrid/internal/supervisor"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ExitStatus is the process exit status of a session run.
type ExitStatus int

const (
	// ExitOK means resolution succeeded and no process failed.
	ExitOK ExitStatus = 0
	// ExitFailure means resolution failed or a process exited abnormally.
	ExitFailure ExitStatus = 1
)

// Session is one launch description and the state of its current run.
type Session struct {
	desc *model.Description
	opts Options

	mu   sync.Mutex
	sup  *supervisor.Supervisor
	plan *Plan
}

// New returns a Session for desc.
func New(desc *model.Description, opts Options) *Session {
	opts.setDefaults()
	return &Session{desc: desc, opts: opts}
}

// Run binds overrides to the declared arguments, resolves the action
// forest once and supervises the started processes until they all exit, a
// required process exits, or ctx is canceled. Whatever the outcome, the
// shutdown hooks then run in reverse registration order, and every process
// still alive is terminated.
func (s *Session) Run(ctx context.Context, overrides map[string]string) (ExitStatus, error) {
	runID := uuid.New()
	ctx, logger := ctxlog.With(ctx, "run", runID.String()[:8])
	ctx, span := s.opts.Tracer.Start(ctx, "session.run", trace.WithAttributes(
		attribute.String("launchgrid.session.file", s.desc.FilePath),
		attribute.String("launchgrid.run.id", runID.String()),
		attribute.Bool("launchgrid.run.dry", s.opts.DryRun),
	))
	defer span.End()

	workDir := filepath.Join(s.opts.WorkDir, "launchgrid-"+runID.String())
	logDir := s.opts.LogDir
	if logDir == "" {
		logDir = filepath.Join(s.opts.WorkDir, "launchgrid-logs-"+runID.String())
	}

	reg := cleanup.NewRegistry()
	reg.RegisterRemove(workDir)
	sup := supervisor.New(supervisor.Options{
		Stdout:         s.opts.Stdout,
		LogDir:         logDir,
		SigintTimeout:  s.opts.SigintTimeout,
		SigtermTimeout: s.opts.SigtermTimeout,
	})
	plan := &Plan{}
	s.mu.Lock()
	s.sup, s.plan = sup, plan
	s.mu.Unlock()

	var realizer Realizer = spawnRealizer{sup: sup}
	if s.opts.DryRun {
		realizer = dryRunRealizer{}
	}
	r := &resolver{
		opts:      &s.opts,
		reg:       reg,
		params:    params.NewMaterializer(filepath.Join(workDir, "params"), reg),
		artifacts: &ephemeral.Manager{Dir: filepath.Join(workDir, "artifacts"), Cleanup: reg, Runner: s.opts.Runner},
		realizer:  realizer,
		plan:      plan,
		environ:   append(environ(nil), s.opts.Environ...),
		includes:  []string{absPath(s.desc.FilePath)},
		started:   make(map[string]bool),
	}

	logger.Info("🚀 Resolving session.", "file", s.desc.FilePath, "dry_run", s.opts.DryRun)
	resolveErr := r.resolveRoot(ctx, s.desc, overrides)

	interrupted := resolveErr != nil && ctx.Err() != nil && errors.Is(resolveErr, ctx.Err())
	switch {
	case interrupted:
		logger.Info("Interrupted during resolution.", "error", resolveErr)
		span.SetAttributes(attribute.String("launchgrid.run.end_reason", "interrupted"))
		resolveErr = nil
	case resolveErr != nil:
		logger.Error("🔥 Session resolution failed.", "error", resolveErr)
		span.RecordError(resolveErr)
		span.SetStatus(codes.Error, "resolution failed")
	case s.opts.DryRun:
		logger.Info("✅ Session resolved (dry run).", "processes", len(plan.Processes))
	default:
		logger.Info("✅ Session resolved.", "processes", len(plan.Processes))
		reason, p := sup.Wait(ctx)
		if p != nil {
			logger.Info("Session ending.", "reason", reason.String(), "process", p.Name())
		} else {
			logger.Info("Session ending.", "reason", reason.String())
		}
		span.SetAttributes(attribute.String("launchgrid.run.end_reason", reason.String()))
	}

	shutdownCtx := context.WithoutCancel(ctx)
	if err := reg.Run(shutdownCtx); err != nil {
		logger.Warn("Some shutdown hooks failed.", "error", err)
	}
	if err := sup.Shutdown(shutdownCtx); err != nil {
		logger.Error("🔥 Failed to terminate all processes.", "error", err)
	}

	status := ExitOK
	if resolveErr != nil {
		status = ExitFailure
	}
	if failed := sup.Failed(); len(failed) > 0 {
		status = ExitFailure
		for _, p := range failed {
			logger.Warn("Process ended abnormally.", "process", p.Name(), "error", p.Err())
		}
		span.SetStatus(codes.Error, fmt.Sprintf("%d processes failed", len(failed)))
	}
	logger.Info("🏁 Session finished.", "status", int(status))
	return status, resolveErr
}

// Processes returns the status of the processes of the current run.
func (s *Session) Processes() []supervisor.Status {
	s.mu.Lock()
	sup := s.sup
	s.mu.Unlock()
	if sup == nil {
		return nil
	}
	return sup.Snapshot()
}

// Plan returns what the current or last run resolved to.
func (s *Session) Plan() *Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}
