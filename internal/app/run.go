package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"github.com/specialistvlad/launchgrid/internal/model"
	"github.com/specialistvlad/launchgrid/internal/session"
	"github.com/specialistvlad/launchgrid/internal/telemetry"
)

// Run executes the loaded session until it ends or ctx is canceled.
func (a *App) Run(ctx context.Context) (session.ExitStatus, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	if a.config.ShowArgs {
		return session.ExitOK, writeArguments(a.outW, a.desc)
	}

	shutdownTracing, err := telemetry.Setup(ctx, a.config.OTLPEndpoint, Version)
	if err != nil {
		a.logger.Warn("Tracing disabled, exporter setup failed.", "error", err)
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("Failed to flush traces.", "error", err)
		}
	}()

	a.session = session.New(a.desc, a.sessionOptions())
	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	status, err := a.session.Run(ctx, a.config.Overrides)
	if a.config.DryRun {
		if plan := a.session.Plan(); plan != nil {
			if werr := plan.Write(a.outW); werr != nil {
				a.logger.Warn("Failed to print plan.", "error", werr)
			}
		}
	}
	a.logger.Debug("App.Run method finished.", "status", int(status))
	return status, err
}

// writeArguments lists the declared arguments of the root session file.
func writeArguments(w io.Writer, desc *model.Description) error {
	var b strings.Builder
	if len(desc.Arguments) == 0 {
		b.WriteString("No arguments.\n")
	} else {
		b.WriteString("Arguments (pass arguments as '<name>:=<value>'):\n")
	}
	for _, arg := range desc.Arguments {
		fmt.Fprintf(&b, "\n    '%s':\n", arg.Name)
		description := arg.Description
		if description == "" {
			description = "no description given"
		}
		fmt.Fprintf(&b, "        %s\n", description)
		if arg.Required() {
			b.WriteString("        (required)\n")
		} else {
			fmt.Fprintf(&b, "        (default: %s)\n", arg.Default)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
