package session

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/specialistvlad/launchgrid/internal/fsutil"
	"github.com/specialistvlad/launchgrid/internal/model"
	"github.com/specialistvlad/launchgrid/internal/tools"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Loader reads a session file into a Description.
type Loader interface {
	Load(ctx context.Context, path string) (*model.Description, error)
}

// Default lifecycle coordinator.
const (
	DefaultLifecyclePackage    = "nav2_lifecycle_manager"
	DefaultLifecycleExecutable = "lifecycle_manager"
)

// Options configures a Session.
type Options struct {
	// Loader reads included session files.
	Loader Loader
	// Stdout receives "screen" process output.
	Stdout io.Writer
	// WorkDir is the parent of the per-run directory holding rendered
	// parameter files and artifacts. Defaults to os.TempDir().
	WorkDir string
	// LogDir receives per-process log files. Defaults to a per-run
	// directory next to the work directory.
	LogDir string
	// Prefixes locates installed packages.
	Prefixes fsutil.PrefixPath
	// Runner executes command substitutions, transforms and shutdown
	// commands. Defaults to tools.ExecRunner.
	Runner tools.CommandRunner
	// Environ is the base environment of every process. Defaults to
	// os.Environ().
	Environ []string

	SigintTimeout  time.Duration
	SigtermTimeout time.Duration

	LifecyclePackage    string
	LifecycleExecutable string

	// DryRun resolves the session and records the plan without starting
	// any process.
	DryRun bool

	Tracer trace.Tracer
}

func (o *Options) setDefaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.WorkDir == "" {
		o.WorkDir = os.TempDir()
	}
	if o.Runner == nil {
		o.Runner = tools.ExecRunner{}
	}
	if o.Environ == nil {
		o.Environ = os.Environ()
	}
	if o.LifecyclePackage == "" {
		o.LifecyclePackage = DefaultLifecyclePackage
	}
	if o.LifecycleExecutable == "" {
		o.LifecycleExecutable = DefaultLifecycleExecutable
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer("github.com/specialistvlad/launchgrid/internal/session")
	}
}
