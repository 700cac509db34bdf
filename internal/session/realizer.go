package session

import (
	"context"
	"errors"

	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"github.com/specialistvlad/launchgrid/internal/supervisor"
)

// Realizer starts resolved processes.
type Realizer interface {
	Start(ctx context.Context, d supervisor.ProcessDescriptor) error
}

// spawnRealizer hands processes to a supervisor. A process that fails to
// start is left to its respawn policy and does not abort resolution.
type spawnRealizer struct {
	sup *supervisor.Supervisor
}

func (r spawnRealizer) Start(ctx context.Context, d supervisor.ProcessDescriptor) error {
	_, err := r.sup.Spawn(ctx, d)
	var spawnErr *supervisor.ProcessSpawnError
	if errors.As(err, &spawnErr) {
		ctxlog.FromContext(ctx).Warn("Continuing after spawn failure.", "process", d.Name, "error", err)
		return nil
	}
	return err
}

// dryRunRealizer starts nothing; the plan already records every process.
type dryRunRealizer struct{}

func (dryRunRealizer) Start(ctx context.Context, d supervisor.ProcessDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Dry run, not starting process.", "process", d.Name)
	return nil
}
