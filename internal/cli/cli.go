package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/launchgrid/internal/app"
	"github.com/spf13/pflag"
)

// Exit codes.
const (
	ExitUsage = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments against the process environment.
// It returns a populated Config, a boolean indicating if the program should
// exit cleanly, or an ExitError.
func Parse(args []string, environ []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("launchgrid", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SortFlags = false

	flagSet.Usage = func() {
		fmt.Fprint(output, `
launchgrid - Launches and supervises a robot bringup described by a session file.

Usage:
  launchgrid [options] SESSION.hcl [name:=value ...]

Arguments:
  SESSION.hcl
    The root session file.
  name:=value
    Overrides the session argument "name".

Options:
`)
		flagSet.PrintDefaults()
	}

	defaults := app.DefaultConfig()
	configPath := flagSet.StringP("config", "c", "", "Path to a TOML configuration file (env LAUNCHGRID_CONFIG).")
	dryRun := flagSet.BoolP("dry-run", "n", false, "Resolve the session and print the plan without starting processes.")
	showArgs := flagSet.BoolP("show-args", "s", false, "Print the arguments the session file declares and exit.")
	logFormat := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevel := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logDir := flagSet.String("log-dir", "", "Directory for per-process log files.")
	workDir := flagSet.String("work-dir", "", "Directory for rendered parameter files and artifacts.")
	prefixPath := flagSet.String("prefix-path", "", "Install prefixes to look packages up in, separated by ':'. Defaults to AMENT_PREFIX_PATH.")
	sigint := flagSet.Duration("sigint-timeout", defaults.SigintTimeout, "How long processes get to exit after SIGINT.")
	sigterm := flagSet.Duration("sigterm-timeout", defaults.SigtermTimeout, "How long processes get to exit after SIGTERM.")
	healthPort := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	otelEndpoint := flagSet.String("otel-endpoint", "", "OTLP/HTTP endpoint for traces. Empty disables tracing.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No session file provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	overrides, err := ParseOverrides(flagSet.Args()[1:])
	if err != nil {
		return nil, false, err
	}

	env := app.EnvironMap(environ)
	cfg := defaults
	if *configPath == "" {
		*configPath = env[app.EnvPrefix+"CONFIG"]
	}
	if *configPath != "" {
		if err := app.LoadFile(&cfg, *configPath); err != nil {
			return nil, false, usageError("%s", err.Error())
		}
	}
	if err := app.ApplyEnv(&cfg, env); err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	changed := flagSet.Changed
	if changed("log-format") {
		cfg.LogFormat = *logFormat
	}
	if changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if changed("log-dir") {
		cfg.LogDir = *logDir
	}
	if changed("work-dir") {
		cfg.WorkDir = *workDir
	}
	if changed("prefix-path") {
		cfg.PrefixPath = *prefixPath
	}
	if changed("sigint-timeout") {
		cfg.SigintTimeout = *sigint
	}
	if changed("sigterm-timeout") {
		cfg.SigtermTimeout = *sigterm
	}
	if changed("healthcheck-port") {
		cfg.HealthcheckPort = *healthPort
	}
	if changed("otel-endpoint") {
		cfg.OTLPEndpoint = *otelEndpoint
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.SessionPath = flagSet.Arg(0)
	cfg.Overrides = overrides
	cfg.DryRun = *dryRun
	cfg.ShowArgs = *showArgs
	cfg.Environ = environ
	slog.Debug("CLI parameter layering complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("CLI parser finished successfully.", "session", config.SessionPath, "overrides", len(overrides))
	return config, false, nil
}

// ParseOverrides reads name:=value arguments. A later value for the same
// name wins.
func ParseOverrides(args []string) (map[string]string, error) {
	overrides := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, ":=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, usageError("malformed launch argument %q, expected '<name>:=<value>'", arg)
		}
		overrides[name] = value
	}
	return overrides, nil
}
