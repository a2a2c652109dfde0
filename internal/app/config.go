package app

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// AgentURL is the base URL of the A2A agent this client talks to.
	AgentURL string `yaml:"agent_url"`
	// AuthToken, when set, is sent on every request as "Authorization: eva <token>".
	AuthToken             string `yaml:"auth_token"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	// DataDir holds the SQLite database and the client log.
	DataDir string `yaml:"data_dir"`
}

func DefaultConfig() Config {
	return Config{
		AgentURL:              "http://localhost:9999",
		RequestTimeoutSeconds: 120,
		DataDir:               DefaultDataDir(),
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.AgentURL == "" {
		cfg.AgentURL = "http://localhost:9999"
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = 120
	}
	if cfg.RequestTimeoutSeconds > 600 {
		cfg.RequestTimeoutSeconds = 600
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		return errors.New("no path provided for config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "eva-chat", "config.yml")
}

// DefaultDataDir prefers the XDG data dir and falls back to ~/.local/share.
func DefaultDataDir() string {
	if base := os.Getenv("XDG_DATA_HOME"); base != "" {
		return filepath.Join(base, "eva-chat")
	}
	if base, err := os.UserHomeDir(); err == nil && base != "" {
		return filepath.Join(base, ".local", "share", "eva-chat")
	}
	return filepath.Join(os.TempDir(), "eva-chat")
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
