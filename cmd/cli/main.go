package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/launchgrid/internal/app"
	"github.com/specialistvlad/launchgrid/internal/cli"
	"github.com/specialistvlad/launchgrid/internal/hcl_adapter"
)

// main is the entrypoint for the launchgrid application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code, err := run(ctx, os.Stdout, os.Stderr, os.Args[1:], os.Environ())
	stop()
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

// run encapsulates the main application logic for easier testing and error
// handling. It returns the exit code of the session.
func run(ctx context.Context, outW, errW io.Writer, args, environ []string) (int, error) {
	config, shouldExit, err := cli.Parse(args, environ, outW)
	if err != nil {
		return cli.ExitUsage, err
	}
	if shouldExit {
		return 0, nil
	}

	a, err := app.NewApp(outW, errW, config, hcl_adapter.NewLoader())
	if err != nil {
		return 1, err
	}
	status, err := a.Run(ctx)
	if err != nil && status == 0 {
		status = 1
	}
	return int(status), err
}
