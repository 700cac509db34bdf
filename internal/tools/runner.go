package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Result captures the outcome of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner abstracts blocking command execution.
type CommandRunner interface {
	Run(ctx context.Context, env []string, name string, args ...string) (Result, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// Run starts the command, waits for it and returns its captured output. A
// non-nil env replaces the inherited environment. The returned error is
// non-nil whenever the exit code is not zero.
func (ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if env != nil {
		cmd.Env = env
	}
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			// Killed by a signal, usually because ctx was canceled.
			res.ExitCode = 1
		}
		return res, err
	}

	res.ExitCode = 1
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		res.ExitCode = 127
	}
	return res, err
}

// FuncRunner adapts a plain function to CommandRunner. Tests use it to stub
// external tools.
type FuncRunner func(ctx context.Context, env []string, name string, args ...string) (Result, error)

// Run calls f.
func (f FuncRunner) Run(ctx context.Context, env []string, name string, args ...string) (Result, error) {
	return f(ctx, env, name, args...)
}
