package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/launchgrid/internal/hcl_adapter"
	"github.com/specialistvlad/launchgrid/internal/session"
	"github.com/specialistvlad/launchgrid/internal/testutil"
)

// HarnessResult holds the outcome of a session run driven through the App.
type HarnessResult struct {
	Output    string
	LogOutput string
	Status    session.ExitStatus
	Err       error
	App       *App
}

// TestConfig returns a configuration that keeps every file a run writes
// inside the test's temporary directories.
func TestConfig(t *testing.T, sessionPath string) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SessionPath = sessionPath
	cfg.LogLevel = "debug"
	cfg.WorkDir = t.TempDir()
	cfg.LogDir = t.TempDir()
	cfg.SigintTimeout = 300 * time.Millisecond
	cfg.SigtermTimeout = 300 * time.Millisecond
	return &cfg
}

// RunSession writes files to a temporary directory, loads entry from it
// with the HCL loader and runs it. configure may adjust the configuration
// before the app is built.
func RunSession(ctx context.Context, t *testing.T, files map[string]string, entry string, configure func(*Config)) *HarnessResult {
	t.Helper()
	root := testutil.WriteTree(t, files)
	cfg := TestConfig(t, filepath.Join(root, entry))
	if configure != nil {
		configure(cfg)
	}

	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	testutil.DumpLogs(t, logs)

	a, err := NewApp(out, logs, cfg, hcl_adapter.NewLoader())
	if err != nil {
		return &HarnessResult{LogOutput: logs.String(), Status: session.ExitFailure, Err: err}
	}
	status, err := a.Run(ctx)
	return &HarnessResult{
		Output:    out.String(),
		LogOutput: logs.String(),
		Status:    status,
		Err:       err,
		App:       a,
	}
}
