package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - AUTOBOT_CONFIG_PATH: config file location (default: ~/.config/autobot.toml)
//   - AUTOBOT_HOME: base directory for autobot data (default: ~/.local/share/autobot)
func GetDefaults() (map[string]string, error) {
	configPath, err := envOrHome("AUTOBOT_CONFIG_PATH", ".config", "autobot.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome("AUTOBOT_HOME", ".local", "share", "autobot")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"env_file":    ".env",
	}, nil
}

// envOrHome returns the value of key, or the path under the home directory.
func envOrHome(key string, elem ...string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
