package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"github.com/specialistvlad/launchgrid/internal/model"
	"github.com/specialistvlad/launchgrid/internal/session"
)

// Version is stamped at build time.
var Version = "dev"

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	ctx    context.Context
	config *Config
	loader session.Loader
	desc   *model.Description

	session    *session.Session
	httpServer *http.Server
}

// NewApp loads the root session file. Logs go to logW; process output and
// printed plans go to outW.
func NewApp(outW, logW io.Writer, cfg *Config, loader session.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	path, err := filepath.Abs(cfg.SessionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session path: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &session.SessionNotFoundError{Path: path, Err: err}
	}
	desc, err := loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	actions := 0
	model.Walk(desc.Actions, func(model.Action) bool {
		actions++
		return true
	})
	logger.Debug("Session file loaded.", "path", path, "arguments", len(desc.Arguments), "actions", actions)

	return &App{
		outW:   outW,
		logger: logger,
		ctx:    ctx,
		config: cfg,
		loader: loader,
		desc:   desc,
	}, nil
}

// Session returns the session of the current run, or nil before Run.
func (a *App) Session() *session.Session {
	return a.session
}

func (a *App) sessionOptions() session.Options {
	environ := a.config.Environ
	if environ == nil {
		environ = os.Environ()
	}
	return session.Options{
		Loader:         a.loader,
		Stdout:         a.outW,
		WorkDir:        a.config.WorkDir,
		LogDir:         a.config.LogDir,
		Prefixes:       a.config.Prefixes(EnvironMap(environ)),
		Environ:        environ,
		SigintTimeout:  a.config.SigintTimeout,
		SigtermTimeout: a.config.SigtermTimeout,
		DryRun:         a.config.DryRun,
	}
}
