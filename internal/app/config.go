package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/specialistvlad/launchgrid/internal/fsutil"
)

// EnvPrefix prefixes every environment variable read into a Config.
const EnvPrefix = "LAUNCHGRID_"

// Config holds all the necessary configuration for an App instance to run.
// Values are layered: DefaultConfig, then the TOML file, then LAUNCHGRID_*
// environment variables, then command-line flags.
type Config struct {
	// SessionPath is the root session file.
	SessionPath string `toml:"-"`
	// Overrides are the name:=value arguments given on the command line.
	Overrides map[string]string `toml:"-"`
	DryRun    bool              `toml:"-"`
	ShowArgs  bool              `toml:"-"`
	// Environ is the base environment of spawned processes. Defaults to
	// os.Environ().
	Environ []string `toml:"-"`

	LogFormat string `toml:"log_format" env:"LOG_FORMAT"`
	LogLevel  string `toml:"log_level" env:"LOG_LEVEL"`
	// LogDir receives per-process log files.
	LogDir string `toml:"log_dir" env:"LOG_DIR"`
	// WorkDir holds the per-run directory of rendered files.
	WorkDir string `toml:"work_dir" env:"WORK_DIR"`
	// PrefixPath lists install prefixes, separated like PATH. Falls back
	// to AMENT_PREFIX_PATH when empty.
	PrefixPath string `toml:"prefix_path" env:"PREFIX_PATH"`

	SigintTimeout   time.Duration `toml:"sigint_timeout" env:"SIGINT_TIMEOUT"`
	SigtermTimeout  time.Duration `toml:"sigterm_timeout" env:"SIGTERM_TIMEOUT"`
	HealthcheckPort int           `toml:"healthcheck_port" env:"HEALTHCHECK_PORT"`
	OTLPEndpoint    string        `toml:"otel_endpoint" env:"OTEL_ENDPOINT"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LogFormat:      "text",
		LogLevel:       "info",
		SigintTimeout:  5 * time.Second,
		SigtermTimeout: 5 * time.Second,
	}
}

// LoadFile layers the TOML file at path over cfg. Keys absent from the
// file keep their current values.
func LoadFile(cfg *Config, path string) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv layers LAUNCHGRID_* variables from environ over cfg.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Prefixes returns the install prefixes packages are looked up in.
func (c *Config) Prefixes(environ map[string]string) fsutil.PrefixPath {
	if c.PrefixPath != "" {
		return fsutil.ParsePrefixPath(c.PrefixPath)
	}
	return fsutil.ParsePrefixPath(environ["AMENT_PREFIX_PATH"])
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.SessionPath == "" {
		return nil, errors.New("a session file is required")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.SigintTimeout <= 0 || cfg.SigtermTimeout <= 0 {
		return nil, errors.New("signal timeouts must be positive")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}

// EnvironMap splits KEY=VALUE pairs into a map.
func EnvironMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}
