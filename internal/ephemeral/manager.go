// Package ephemeral renders temporary files with external commands. Each
// rendered file is registered for removal before the command runs, so a
// failed or interrupted render leaves nothing behind once the session's
// cleanup hooks have run.
package ephemeral

import (
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/launchgrid/internal/cleanup"
	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"github.com/specialistvlad/launchgrid/internal/tools"
)

// Spec describes one artifact to render. Transform receives the output path
// and returns the command to run; it may also be nil when the file is only
// allocated. Env is the environment for the command; nil inherits.
type Spec struct {
	Name      string
	Prefix    string
	Suffix    string
	Inputs    []string
	Env       []string
	Transform func(outputPath string) ([]string, error)
}

// Manager allocates artifact paths under Dir.
type Manager struct {
	Dir     string
	Cleanup *cleanup.Registry
	Runner  tools.CommandRunner
}

// NewManager returns a Manager using the local command runner.
func NewManager(dir string, reg *cleanup.Registry) *Manager {
	return &Manager{Dir: dir, Cleanup: reg, Runner: tools.ExecRunner{}}
}

// Render allocates the output file, registers its removal, checks the
// inputs and runs the transform. The command's stdout is written to the
// output file unless the command already wrote the file itself.
func (m *Manager) Render(ctx context.Context, spec Spec) (string, error) {
	logger := ctxlog.FromContext(ctx).With("artifact", spec.Name)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory %s: %w", m.Dir, err)
	}
	f, err := os.CreateTemp(m.Dir, spec.Prefix+"*"+spec.Suffix)
	if err != nil {
		return "", fmt.Errorf("failed to allocate artifact %s: %w", spec.Name, err)
	}
	path := f.Name()
	f.Close()
	m.Cleanup.RegisterRemove(path)
	logger.Debug("Allocated artifact.", "path", path)

	for _, in := range spec.Inputs {
		if _, err := os.Stat(in); err != nil {
			return "", fmt.Errorf("artifact %s: input %s: %w", spec.Name, in, err)
		}
	}

	if spec.Transform == nil {
		return path, nil
	}
	argv, err := spec.Transform(path)
	if err != nil {
		return "", err
	}
	if len(argv) == 0 {
		return path, nil
	}

	logger.Debug("Running artifact transform.", "argv", argv)
	res, err := m.runner().Run(ctx, spec.Env, argv[0], argv[1:]...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("artifact %s: transform %q exited with status %d: %s", spec.Name, argv[0], res.ExitCode, res.Stderr)
	}

	if len(res.Stdout) > 0 {
		info, err := os.Stat(path)
		if err == nil && info.Size() == 0 {
			if err := os.WriteFile(path, res.Stdout, 0o644); err != nil {
				return "", fmt.Errorf("failed to write artifact %s: %w", path, err)
			}
		}
	}
	logger.Info("✅ Artifact rendered.", "path", path)
	return path, nil
}

func (m *Manager) runner() tools.CommandRunner {
	if m.Runner == nil {
		return tools.ExecRunner{}
	}
	return m.Runner
}
