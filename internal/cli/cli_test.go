package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	// --- Act ---
	cfg, shouldExit, err := Parse([]string{"bringup.hcl"}, nil, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	require.False(t, shouldExit)
	require.Equal(t, "bringup.hcl", cfg.SessionPath)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 5*time.Second, cfg.SigintTimeout)
	require.Empty(t, cfg.Overrides)
	require.False(t, cfg.DryRun)
}

func TestParse_Overrides(t *testing.T) {
	// --- Act ---
	cfg, _, err := Parse([]string{"-n", "bringup.hcl", "namespace:=robot1", "use_sim:=true", "namespace:=robot2", "map:="}, nil, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	require.True(t, cfg.DryRun)
	require.Equal(t, map[string]string{"namespace": "robot2", "use_sim": "true", "map": ""}, cfg.Overrides)
}

func TestParse_MalformedOverride(t *testing.T) {
	for _, arg := range []string{"namespace=robot1", ":=robot1"} {
		t.Run(arg, func(t *testing.T) {
			_, _, err := Parse([]string{"bringup.hcl", arg}, nil, &bytes.Buffer{})

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, ExitUsage, exitErr.Code)
			require.Contains(t, exitErr.Message, "malformed launch argument")
		})
	}
}

func TestParse_HelpAndNoSession(t *testing.T) {
	for name, args := range map[string][]string{"help": {"-h"}, "no session": {}} {
		t.Run(name, func(t *testing.T) {
			out := &bytes.Buffer{}

			cfg, shouldExit, err := Parse(args, nil, out)

			require.NoError(t, err)
			require.True(t, shouldExit)
			require.Nil(t, cfg)
			require.Contains(t, out.String(), "Usage:")
			require.Contains(t, out.String(), "--sigterm-timeout")
		})
	}
}

func TestParse_UnknownFlag(t *testing.T) {
	_, _, err := Parse([]string{"--bogus", "bringup.hcl"}, nil, &bytes.Buffer{})

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, ExitUsage, exitErr.Code)
}

func TestParse_Layering(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	configPath := filepath.Join(dir, "launchgrid.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
log_level = "warn"
log_format = "json"
sigint_timeout = "2s"
healthcheck_port = 8080
`), 0o600))
	environ := []string{
		"LAUNCHGRID_CONFIG=" + configPath,
		"LAUNCHGRID_LOG_FORMAT=text",
		"LAUNCHGRID_HEALTHCHECK_PORT=9090",
	}

	// --- Act ---
	cfg, _, err := Parse([]string{"--healthcheck-port", "7070", "--log-level", "DEBUG", "bringup.hcl"}, environ, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel, "flag beats file")
	require.Equal(t, "text", cfg.LogFormat, "env beats file")
	require.Equal(t, 2*time.Second, cfg.SigintTimeout, "file beats default")
	require.Equal(t, 7070, cfg.HealthcheckPort, "flag beats env")
	require.Equal(t, environ, cfg.Environ)
}

func TestParse_InvalidConfig(t *testing.T) {
	cases := map[string][]string{
		"missing config file": {"--config", filepath.Join(t.TempDir(), "absent.toml"), "bringup.hcl"},
		"bad log level":       {"--log-level", "loud", "bringup.hcl"},
		"bad log format":      {"--log-format", "xml", "bringup.hcl"},
		"negative timeout":    {"--sigint-timeout", "-1s", "bringup.hcl"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse(args, nil, &bytes.Buffer{})

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, ExitUsage, exitErr.Code)
		})
	}
}
