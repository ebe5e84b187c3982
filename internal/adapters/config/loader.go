package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"tsmodbot/internal/ports"
)

// Load builds the configuration from defaults, then the YAML file at path (a missing
// file is skipped), then environment variables. A .env file, if any, must already
// have been loaded into the environment.
func Load(path string) (ports.Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return ports.Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return ports.Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	normalize(&cfg)
	return cfg, nil
}

func mergeFile(cfg *ports.Config, path string) error {
	// #nosec G304 -- path is intentionally user-configurable via CONFIG_PATH
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func normalize(cfg *ports.Config) {
	cfg.TeamSpeak.Protocol = strings.ToLower(strings.TrimSpace(cfg.TeamSpeak.Protocol))
	if cfg.TeamSpeak.Protocol == "" {
		cfg.TeamSpeak.Protocol = ProtocolRaw
	}
	if cfg.TeamSpeak.Protocol == ProtocolSSH && cfg.TeamSpeak.QueryPort == DefaultQueryPort {
		cfg.TeamSpeak.QueryPort = DefaultSSHPort
	}
	cfg.Music.NCM.BaseURL = strings.TrimRight(cfg.Music.NCM.BaseURL, "/")
	cfg.Music.TS3A.BaseURL = strings.TrimRight(cfg.Music.TS3A.BaseURL, "/")
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
}

// Validate reports every problem that would prevent the bot from connecting.
func Validate(cfg ports.Config) error {
	var errs []error

	ts := cfg.TeamSpeak
	if strings.TrimSpace(ts.Host) == "" {
		errs = append(errs, errors.New("teamspeak host is required (TS_HOST)"))
	}
	if strings.TrimSpace(ts.Username) == "" {
		errs = append(errs, errors.New("teamspeak query username is required (TS_USERNAME)"))
	}
	if ts.Protocol != ProtocolRaw && ts.Protocol != ProtocolSSH {
		errs = append(errs, fmt.Errorf("unsupported query protocol %q (want raw or ssh)", ts.Protocol))
	}
	if !validPort(ts.QueryPort) {
		errs = append(errs, fmt.Errorf("invalid query port %d", ts.QueryPort))
	}
	if !validPort(ts.ServerPort) {
		errs = append(errs, fmt.Errorf("invalid server port %d", ts.ServerPort))
	}
	if p := cfg.App.Prefix; p == "" || strings.ContainsAny(p, " \t\n") {
		errs = append(errs, fmt.Errorf("invalid command prefix %q", p))
	}
	if cfg.App.HealthPort < 0 || cfg.App.HealthPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid health port %d", cfg.App.HealthPort))
	}

	return errors.Join(errs...)
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

func ResolveEnvPath() string {
	if p := os.Getenv("ENV_PATH"); p != "" {
		return p
	}
	return resolveNearExecutable(".env")
}

func ResolveConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return resolveNearExecutable(filepath.Join("config", "bot.yaml"))
}

// resolveNearExecutable prefers a file next to the binary and falls back to the
// working directory.
func resolveNearExecutable(name string) string {
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return name
	}
	return filepath.Join(cwd, name)
}
